// Package sqlite implements the relational storage backend: a single SQLite
// file holding contexts, their tags, and the linkage table between them.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/extended-memory/mcp-storage/internal/connstring"
	"github.com/extended-memory/mcp-storage/internal/memerr"
)

// Storage is the relational backend. It satisfies memory.Storage.
type Storage struct {
	db     *sql.DB
	log    *slog.Logger
	fallback string
	path   string
}

// Option customizes New.
type Option func(*Storage)

// WithLogger overrides the default slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) { s.log = l }
}

// WithFallbackProject overrides the default normalization fallback ("general").
func WithFallbackProject(name string) Option {
	return func(s *Storage) { s.fallback = name }
}

// New opens (creating if necessary) the SQLite database described by cfg.
// Initialization is fail-fast: any error here must propagate, never be
// silently swallowed in favor of a different backend.
func New(cfg *connstring.SQLiteConfig, opts ...Option) (*Storage, error) {
	const op = "sqlite.New"
	if cfg == nil {
		return nil, memerr.ConfigErr(op, fmt.Errorf("nil sqlite config"))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, memerr.ConfigErr(op, fmt.Errorf("create database directory: %w", err))
	}

	dsn := connString(cfg)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, memerr.ConfigErr(op, fmt.Errorf("open sqlite database: %w", err))
	}
	db.SetMaxOpenConns(1)

	s := &Storage{
		db:       db,
		log:      slog.Default(),
		fallback: "general",
		path:     cfg.DatabasePath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// connString builds the ncruces/go-sqlite3 DSN: busy_timeout from the
// configured timeout, foreign_keys always on, and the requested
// journal_mode.
func connString(cfg *connstring.SQLiteConfig) string {
	busyMs := int64(cfg.Timeout * 1000)
	return fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)&_pragma=journal_mode(%s)&_time_format=sqlite",
		cfg.DatabasePath, busyMs, cfg.JournalMode,
	)
}

// Initialize creates the schema and required indexes if absent. Table
// creation failures are fatal (Storage error); index-creation failures are
// logged and swallowed, since they affect performance, not correctness.
func (s *Storage) Initialize(ctx context.Context) error {
	const op = "sqlite.Initialize"
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return memerr.StorageErr(op, wrapDBError("create schema", err))
	}
	for _, stmt := range indexDDL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.log.Warn("performance index creation failed", "stmt", stmt, "error", err)
		}
	}
	return nil
}

// HealthCheck reports whether the database is reachable.
func (s *Storage) HealthCheck(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS contexts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT,
	content TEXT NOT NULL,
	importance_level INTEGER NOT NULL CHECK (importance_level BETWEEN 1 AND 10),
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at TIMESTAMP,
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS context_tags (
	context_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	PRIMARY KEY (context_id, tag_id),
	FOREIGN KEY (context_id) REFERENCES contexts(id) ON DELETE CASCADE,
	FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// indexDDL is the fixed required index set from the storage schema. Created
// best-effort during Initialize.
var indexDDL = []string{
	`CREATE INDEX IF NOT EXISTS idx_contexts_project_created ON contexts(project_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_project_importance ON contexts(project_id, importance_level)`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_importance ON contexts(importance_level)`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_created ON contexts(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_context_tags_tag ON context_tags(tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_context_tags_context ON context_tags(context_id)`,
	`CREATE INDEX IF NOT EXISTS idx_context_tags_tag_context ON context_tags(tag_id, context_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name)`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_project ON contexts(project_id)`,
}

func nowUTC() time.Time { return time.Now().UTC() }
