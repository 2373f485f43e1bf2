package sqlite

import (
	"context"

	"github.com/extended-memory/mcp-storage/internal/memory"
)

// ListAllProjects derives the project list by scanning distinct project ids
// in contexts; the vestigial projects table is never read (see design
// notes).
func (s *Storage) ListAllProjects(ctx context.Context) ([]memory.ProjectInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, COUNT(*) FROM contexts WHERE project_id IS NOT NULL GROUP BY project_id ORDER BY project_id`)
	if err != nil {
		s.log.Warn("list_all_projects failed", "error", err)
		return nil, nil
	}
	defer func() { _ = rows.Close() }()

	var result []memory.ProjectInfo
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			s.log.Warn("list_all_projects scan failed", "error", err)
			return nil, nil
		}
		result = append(result, memory.ProjectInfo{ID: id, Name: id, ContextCount: count})
	}
	return result, nil
}

// LoadHighImportanceContexts is a convenience entry point equivalent to
// LoadContexts with importance_threshold=7 and no project scoping.
func (s *Storage) LoadHighImportanceContexts(ctx context.Context, limit int) ([]memory.Context, error) {
	return s.LoadContexts(ctx, memory.LoadFilter{ImportanceThreshold: 7, Limit: limit})
}

// CleanupExpired removes contexts whose expires_at has passed. The core
// never sets expires_at itself; this exists for operator-driven cleanup.
func (s *Storage) CleanupExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contexts WHERE expires_at IS NOT NULL AND expires_at <= ?`, nowUTC())
	if err != nil {
		s.log.Warn("cleanup_expired failed", "error", err)
		return 0, nil
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
