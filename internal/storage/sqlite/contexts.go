package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/extended-memory/mcp-storage/internal/memerr"
	"github.com/extended-memory/mcp-storage/internal/memory"
	"github.com/extended-memory/mcp-storage/internal/normalize"
)

// SaveContext inserts a context row and upserts its tags in a single
// transaction, per the "one transaction per save" rule.
func (s *Storage) SaveContext(ctx context.Context, content string, importance int, projectID string, tags []string) (string, error) {
	const op = "sqlite.SaveContext"
	if importance < 1 || importance > 10 {
		return "", memerr.ValidationErr(op, fmt.Errorf("importance_level %d out of range 1..10", importance))
	}
	normProject := normalize.ProjectID(projectID, s.fallback)
	normTags := normalizeTags(tags)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Warn("save_context failed", "error", err)
		return "", nil
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO contexts (project_id, content, importance_level, status, created_at, last_accessed)
		 VALUES (?, ?, ?, 'active', ?, ?)`,
		normProject, content, importance, nowUTC(), nowUTC(),
	)
	if err != nil {
		s.log.Error("save_context insert failed", "error", err)
		return "", nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		s.log.Error("save_context read id failed", "error", err)
		return "", nil
	}

	for _, tag := range normTags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag); err != nil {
			s.log.Warn("tag upsert failed", "tag", tag, "error", err)
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO context_tags (context_id, tag_id)
			 SELECT ?, id FROM tags WHERE name = ?`, id, tag); err != nil {
			s.log.Warn("context_tag link failed", "tag", tag, "error", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		normProject, normProject); err != nil {
		s.log.Debug("vestigial projects table write failed", "error", err)
	}

	if err := tx.Commit(); err != nil {
		s.log.Error("save_context commit failed", "error", err)
		return "", nil
	}

	return strconv.FormatInt(id, 10), nil
}

// LoadContext loads a single context with its tags.
func (s *Storage) LoadContext(ctx context.Context, id string) (*memory.Context, error) {
	const op = "sqlite.LoadContext"
	nID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, memerr.ValidationErr(op, fmt.Errorf("invalid id %q", id))
	}

	rows, err := s.queryContexts(ctx, `SELECT `+contextColumns+` FROM contexts WHERE id = ?`, nID)
	if err != nil {
		s.log.Warn("load_context failed", "id", id, "error", err)
		return nil, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := s.attachTags(ctx, rows); err != nil {
		s.log.Warn("load_context tag attach failed", "id", id, "error", err)
	}
	return &rows[0], nil
}

// LoadContexts is the planner entry point for project/importance/tag-filtered
// bulk reads. Per the query-planner rules: a tag filter resolves candidate
// ids first; otherwise all filters apply in one SQL statement.
func (s *Storage) LoadContexts(ctx context.Context, filter memory.LoadFilter) ([]memory.Context, error) {
	if len(filter.TagsFilter) > 0 {
		ids, err := s.resolveIDsByTags(ctx, filter.TagsFilter, filter.ProjectID)
		if err != nil {
			s.log.Warn("load_contexts tag resolution failed", "error", err)
			return nil, nil
		}
		rows, err := s.LoadContextsByIDs(ctx, ids)
		if err != nil {
			return nil, nil
		}
		filtered := rows[:0:0]
		for _, r := range rows {
			if r.ImportanceLevel >= filter.ImportanceThreshold {
				filtered = append(filtered, r)
			}
		}
		memory.SortDescending(filtered)
		return memory.Window(filtered, filter.Offset, filter.Limit), nil
	}

	query := `SELECT ` + contextColumns + ` FROM contexts WHERE importance_level >= ?`
	args := []any{filter.ImportanceThreshold}
	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.queryContexts(ctx, query, args...)
	if err != nil {
		s.log.Warn("load_contexts query failed", "error", err)
		return nil, nil
	}
	if err := s.attachTags(ctx, rows); err != nil {
		s.log.Warn("load_contexts tag attach failed", "error", err)
	}
	return rows, nil
}

// LoadContextsByIDs issues one WHERE id IN (...) query followed by one batch
// tag query, satisfying the central batch-loading invariant. Missing ids are
// silently skipped.
func (s *Storage) LoadContextsByIDs(ctx context.Context, ids []string) ([]memory.Context, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT ` + contextColumns + ` FROM contexts WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := s.queryContexts(ctx, query, args...)
	if err != nil {
		s.log.Warn("load_contexts_by_ids query failed", "error", err)
		return nil, nil
	}
	if err := s.attachTags(ctx, rows); err != nil {
		s.log.Warn("load_contexts_by_ids tag attach failed", "error", err)
	}
	return rows, nil
}

// SearchContexts applies the query-planner rules to a richer filter set:
// content_search is a reserved substring hook applied in memory post-filter.
func (s *Storage) SearchContexts(ctx context.Context, filter memory.SearchFilter) ([]memory.Context, error) {
	rows, err := s.LoadContexts(ctx, memory.LoadFilter{
		ProjectID:           filter.ProjectID,
		Limit:               filter.Limit,
		ImportanceThreshold: filter.ImportanceMin,
		TagsFilter:          filter.TagsFilter,
	})
	if err != nil {
		return nil, err
	}
	if filter.ContentSearch == "" {
		return rows, nil
	}
	needle := strings.ToLower(filter.ContentSearch)
	filtered := rows[:0:0]
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Content), needle) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// UpdateContext replaces content and/or importance_level, the only two
// mutable fields per the lifecycle contract.
func (s *Storage) UpdateContext(ctx context.Context, id string, content *string, importance *int) (bool, error) {
	const op = "sqlite.UpdateContext"
	if content == nil && importance == nil {
		return false, nil
	}
	if importance != nil && (*importance < 1 || *importance > 10) {
		return false, memerr.ValidationErr(op, fmt.Errorf("importance_level %d out of range 1..10", *importance))
	}

	sets := []string{}
	args := []any{}
	if content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *content)
	}
	if importance != nil {
		sets = append(sets, "importance_level = ?")
		args = append(args, *importance)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE contexts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		s.log.Warn("update_context failed", "id", id, "error", err)
		return false, nil
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteContext removes a context row; ON DELETE CASCADE removes its
// linkages. Reports whether a row was actually removed.
func (s *Storage) DeleteContext(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contexts WHERE id = ?`, id)
	if err != nil {
		s.log.Warn("delete_context failed", "id", id, "error", err)
		return false, nil
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

const contextColumns = `id, project_id, content, importance_level, status, created_at, expires_at, access_count, last_accessed`

func (s *Storage) queryContexts(ctx context.Context, query string, args ...any) ([]memory.Context, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("query contexts", err)
	}
	defer func() { _ = rows.Close() }()

	var result []memory.Context
	for rows.Next() {
		var (
			id              int64
			projectID       sql.NullString
			content         string
			importance      int
			status          string
			createdAt       time.Time
			expiresAt       sql.NullTime
			accessCount     int
			lastAccessed    time.Time
		)
		if err := rows.Scan(&id, &projectID, &content, &importance, &status, &createdAt, &expiresAt, &accessCount, &lastAccessed); err != nil {
			return nil, wrapDBError("scan context row", err)
		}
		c := memory.Context{
			ID:              strconv.FormatInt(id, 10),
			Content:         content,
			ImportanceLevel: importance,
			ProjectID:       projectID.String,
			Status:          memory.Status(status),
			CreatedAt:       createdAt,
			AccessCount:     accessCount,
			LastAccessed:    lastAccessed,
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			c.ExpiresAt = &t
		}
		result = append(result, c)
	}
	return result, wrapDBError("iterate context rows", rows.Err())
}

// attachTags performs the single batch query that loads tags for every row
// in rows and assigns them in place. This is the one place LoadContexts and
// friends may load tags from — never loop per-context.
func (s *Storage) attachTags(ctx context.Context, rows []memory.Context) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]any, len(rows))
	placeholders := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		placeholders[i] = "?"
	}
	query := `SELECT ct.context_id, t.name FROM context_tags ct
	          JOIN tags t ON t.id = ct.tag_id
	          WHERE ct.context_id IN (` + strings.Join(placeholders, ",") + `)`
	dbRows, err := s.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return wrapDBError("batch load tags", err)
	}
	defer func() { _ = dbRows.Close() }()

	byID := make(map[string][]string)
	for dbRows.Next() {
		var contextID int64
		var tag string
		if err := dbRows.Scan(&contextID, &tag); err != nil {
			return wrapDBError("scan tag row", err)
		}
		key := strconv.FormatInt(contextID, 10)
		byID[key] = append(byID[key], tag)
	}
	if err := dbRows.Err(); err != nil {
		return wrapDBError("iterate tag rows", err)
	}

	for i := range rows {
		rows[i].Tags = byID[rows[i].ID]
	}
	return nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
