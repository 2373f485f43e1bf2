package rediskv

import (
	"context"
	"strings"

	"github.com/extended-memory/mcp-storage/internal/memory"
)

// ListAllProjects scans project index-list keys and reports each one's
// current length as its context count. The sentinel `<prefix>:projects`
// hash is never read from — it exists only so the namespace key is present
// after the first save, matching the relational backend's vestigial table.
func (s *Storage) ListAllProjects(ctx context.Context) ([]memory.ProjectInfo, error) {
	var result []memory.ProjectInfo
	prefix := s.prefix + ":project:"
	const suffix = ":contexts"
	iter := s.client.Scan(ctx, 0, s.prefix+":project:*:contexts", 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
		n, err := s.client.LLen(ctx, key).Result()
		if err != nil {
			continue
		}
		result = append(result, memory.ProjectInfo{ID: id, Name: id, ContextCount: int(n)})
	}
	if err := iter.Err(); err != nil {
		s.log.Warn("list_all_projects scan failed", "error", err)
		return nil, nil
	}
	return result, nil
}

// LoadHighImportanceContexts is a convenience entry point equivalent to
// LoadContexts with importance_threshold=7 and no project scoping.
func (s *Storage) LoadHighImportanceContexts(ctx context.Context, limit int) ([]memory.Context, error) {
	return s.LoadContexts(ctx, memory.LoadFilter{ImportanceThreshold: 7, Limit: limit})
}

// CleanupExpired is a no-op on this backend: Redis TTLs already expire
// documents automatically, so there is nothing for a manual cleanup entry
// point to do beyond what the store already does on its own.
func (s *Storage) CleanupExpired(ctx context.Context) (int, error) {
	return 0, nil
}
