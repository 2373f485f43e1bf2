// Package rediskv implements the key-value storage backend: contexts are
// JSON documents keyed by UUID, with denormalized per-project and per-tag
// id-list indexes kept alongside them.
package rediskv

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/extended-memory/mcp-storage/internal/connstring"
	"github.com/extended-memory/mcp-storage/internal/memerr"
)

// Storage is the key-value backend. It satisfies memory.Storage.
type Storage struct {
	client   *redis.Client
	log      *slog.Logger
	prefix   string
	ttl      time.Duration
	fallback string
}

// Option customizes New.
type Option func(*Storage)

// WithLogger overrides the default slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) { s.log = l }
}

// WithKeyPrefix overrides the default "extended_memory" key prefix, mirroring
// the REDIS_KEY_PREFIX environment variable.
func WithKeyPrefix(prefix string) Option {
	return func(s *Storage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL overrides the default TTL applied to every write. A zero TTL
// disables TTL refresh entirely.
func WithTTL(ttl time.Duration) Option {
	return func(s *Storage) { s.ttl = ttl }
}

// WithFallbackProject overrides the default normalization fallback.
func WithFallbackProject(name string) Option {
	return func(s *Storage) { s.fallback = name }
}

// New opens a connection to the Redis-shaped store described by cfg and
// pings it. Initialization is fail-fast: a misconfigured Redis must crash
// at startup, never silently fall back to the relational backend.
func New(cfg *connstring.RedisConfig, opts ...Option) (*Storage, error) {
	const op = "rediskv.New"
	if cfg == nil {
		return nil, memerr.ConfigErr(op, fmt.Errorf("nil redis config"))
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.Database,
		DialTimeout:  time.Duration(cfg.SocketConnectTimeout * float64(time.Second)),
		ReadTimeout:  time.Duration(cfg.SocketTimeout * float64(time.Second)),
		WriteTimeout: time.Duration(cfg.SocketTimeout * float64(time.Second)),
		PoolSize:     cfg.MaxConnections,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, memerr.ConfigErr(op, fmt.Errorf("connect to redis: %w", err))
	}

	s := &Storage{
		client:   client,
		log:      slog.Default(),
		prefix:   "extended_memory",
		ttl:      8760 * time.Hour,
		fallback: "general",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize confirms connectivity and ensures the `<prefix>:projects`
// sentinel hash exists — the key-value backend has no schema to create, but
// this mirrors the relational backend's vestigial `projects` table as a
// namespace marker no read path depends on.
func (s *Storage) Initialize(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return memerr.StorageErr("rediskv.Initialize", err)
	}
	if err := s.client.HSetNX(ctx, s.projectsKey(), "_sentinel", "1").Err(); err != nil {
		s.log.Warn("projects sentinel init failed", "error", err)
	}
	return nil
}

// HealthCheck reports whether Redis is reachable.
func (s *Storage) HealthCheck(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

// Close releases the underlying client.
func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) contextKey(id string) string { return fmt.Sprintf("%s:context:%s", s.prefix, id) }
func (s *Storage) projectKey(projectID string) string {
	return fmt.Sprintf("%s:project:%s:contexts", s.prefix, projectID)
}
func (s *Storage) tagKey(tag string) string { return fmt.Sprintf("%s:tag:%s:contexts", s.prefix, tag) }
func (s *Storage) projectsKey() string      { return fmt.Sprintf("%s:projects", s.prefix) }
func (s *Storage) tagScanPattern() string   { return fmt.Sprintf("%s:tag:*:contexts", s.prefix) }
