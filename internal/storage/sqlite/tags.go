package sqlite

import (
	"context"
	"strconv"
	"strings"

	"github.com/extended-memory/mcp-storage/internal/memory"
)

// resolveIDsByTags implements the tag-index resolution step of the query
// planner: OR semantics across the tag set, optionally scoped by project.
func (s *Storage) resolveIDsByTags(ctx context.Context, tags []string, projectID string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(tags))
	args := make([]any, len(tags))
	for i, t := range tags {
		placeholders[i] = "?"
		args[i] = strings.ToLower(strings.TrimSpace(t))
	}
	query := `SELECT DISTINCT ct.context_id FROM context_tags ct
	          JOIN tags t ON t.id = ct.tag_id
	          JOIN contexts c ON c.id = ct.context_id
	          WHERE t.name IN (` + strings.Join(placeholders, ",") + `)`
	if projectID != "" {
		query += ` AND c.project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY ct.context_id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("resolve ids by tags", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBError("scan tag-resolved id", err)
		}
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return ids, wrapDBError("iterate tag-resolved ids", rows.Err())
}

// FindContextsByTag joins tags -> context_tags -> contexts and returns
// matching context ids, newest first.
func (s *Storage) FindContextsByTag(ctx context.Context, tag, projectID string) ([]string, error) {
	ids, err := s.resolveIDsByTags(ctx, []string{tag}, projectID)
	if err != nil {
		s.log.Warn("find_contexts_by_tag failed", "tag", tag, "error", err)
		return nil, nil
	}
	return ids, nil
}

// FindContextsByMultipleTags resolves ids via OR semantics across tags, then
// loads the contexts through the batch path, honoring limit.
func (s *Storage) FindContextsByMultipleTags(ctx context.Context, tags []string, projectID string, limit int) ([]memory.Context, error) {
	ids, err := s.resolveIDsByTags(ctx, tags, projectID)
	if err != nil {
		s.log.Warn("find_contexts_by_multiple_tags failed", "error", err)
		return nil, nil
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	rows, err := s.LoadContextsByIDs(ctx, ids)
	if err != nil {
		return nil, nil
	}
	return rows, nil
}

// GetContextTags returns the tag list for a single context. Only used by
// the trait's single-id accessor, never looped across multiple contexts —
// bulk reads always go through attachTags.
func (s *Storage) GetContextTags(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.name FROM context_tags ct JOIN tags t ON t.id = ct.tag_id WHERE ct.context_id = ?`, id)
	if err != nil {
		s.log.Warn("get_context_tags failed", "id", id, "error", err)
		return nil, nil
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			s.log.Warn("get_context_tags scan failed", "error", err)
			return nil, nil
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// AddContextTag upserts a single tag and its linkage to an existing context.
func (s *Storage) AddContextTag(ctx context.Context, id, tag string) (bool, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Warn("add_context_tag failed", "error", err)
		return false, nil
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag); err != nil {
		s.log.Warn("add_context_tag tag upsert failed", "error", err)
		return false, nil
	}
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO context_tags (context_id, tag_id) SELECT ?, id FROM tags WHERE name = ?`, id, tag)
	if err != nil {
		s.log.Warn("add_context_tag link failed", "error", err)
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		s.log.Warn("add_context_tag commit failed", "error", err)
		return false, nil
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetPopularTags returns tags satisfying usage_count >= minUsage, the
// parity decision recorded in the design notes (no recency OR-clause on
// either backend). Ordered by usage desc then name for determinism.
func (s *Storage) GetPopularTags(ctx context.Context, limit, minUsage int, projectID string) ([]memory.PopularTag, error) {
	query := `SELECT t.name, COUNT(*) AS usage_count
	          FROM tags t JOIN context_tags ct ON ct.tag_id = t.id`
	args := []any{}
	if projectID != "" {
		query += ` JOIN contexts c ON c.id = ct.context_id WHERE c.project_id = ?`
		args = append(args, projectID)
	}
	query += ` GROUP BY t.name HAVING usage_count >= ? ORDER BY usage_count DESC, t.name ASC LIMIT ?`
	args = append(args, minUsage, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log.Warn("get_popular_tags failed", "error", err)
		return nil, nil
	}
	defer func() { _ = rows.Close() }()

	var result []memory.PopularTag
	for rows.Next() {
		var tag string
		var count int
		if err := rows.Scan(&tag, &count); err != nil {
			s.log.Warn("get_popular_tags scan failed", "error", err)
			return nil, nil
		}
		result = append(result, memory.PopularTag{Tag: tag, Count: count})
	}
	return result, nil
}

// CleanupUnusedTags removes tag dictionary entries with no remaining
// linkage, returning the number removed.
func (s *Storage) CleanupUnusedTags(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tags WHERE id NOT IN (SELECT DISTINCT tag_id FROM context_tags)`)
	if err != nil {
		s.log.Warn("cleanup_unused_tags failed", "error", err)
		return 0, nil
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
