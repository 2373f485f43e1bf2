package rediskv

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/extended-memory/mcp-storage/internal/memerr"
	"github.com/extended-memory/mcp-storage/internal/memory"
	"github.com/extended-memory/mcp-storage/internal/normalize"
)

// SaveContext generates a UUID, writes the document, left-pushes the id onto
// the project and tag index lists, and refreshes TTLs — all on one
// pipeline, so the document and its index entries land in one round-trip.
func (s *Storage) SaveContext(ctx context.Context, content string, importance int, projectID string, tags []string) (string, error) {
	const op = "rediskv.SaveContext"
	if importance < 1 || importance > 10 {
		return "", memerr.ValidationErr(op, fmt.Errorf("importance_level %d out of range 1..10", importance))
	}
	normProject := normalize.ProjectID(projectID, s.fallback)
	normTags := normalizeTags(tags)

	id := uuid.NewString()
	now := nowUTC()
	doc := document{
		ID:              id,
		Content:         content,
		ImportanceLevel: importance,
		ProjectID:       normProject,
		Tags:            normTags,
		CreatedAt:       now,
		Status:          string(memory.StatusActive),
		LastAccessed:    now,
	}
	raw, err := marshalDocument(doc)
	if err != nil {
		s.log.Error("save_context marshal failed", "error", err)
		return "", nil
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.contextKey(id), raw, s.ttl)
	pipe.LPush(ctx, s.projectKey(normProject), id)
	for _, tag := range normTags {
		pipe.LPush(ctx, s.tagKey(tag), id)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, s.projectKey(normProject), s.ttl)
		for _, tag := range normTags {
			pipe.Expire(ctx, s.tagKey(tag), s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("save_context pipeline failed", "error", err)
		return "", nil
	}
	return id, nil
}

// LoadContext performs a single GET of the document key.
func (s *Storage) LoadContext(ctx context.Context, id string) (*memory.Context, error) {
	raw, err := s.client.Get(ctx, s.contextKey(id)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		s.log.Warn("load_context failed", "id", id, "error", err)
		return nil, nil
	}
	doc, err := unmarshalDocument(raw)
	if err != nil {
		s.log.Warn("load_context unmarshal failed", "id", id, "error", err)
		return nil, nil
	}
	c := doc.toContext()
	return &c, nil
}

// LoadContexts dispatches per the query planner: tag filter takes priority
// over project scoping, falling back to a bounded scan when neither is
// given.
func (s *Storage) LoadContexts(ctx context.Context, filter memory.LoadFilter) ([]memory.Context, error) {
	var ids []string
	var err error

	switch {
	case len(filter.TagsFilter) > 0:
		ids, err = s.unionTagIDs(ctx, filter.TagsFilter)
		if err == nil && filter.ProjectID != "" {
			ids, err = s.intersectWithProject(ctx, ids, filter.ProjectID)
		}
	case filter.ProjectID != "":
		stop := int64(-1)
		if filter.Limit > 0 {
			stop = int64(filter.Offset + filter.Limit - 1)
		}
		ids, err = s.client.LRange(ctx, s.projectKey(filter.ProjectID), 0, stop).Result()
	default:
		bound := 0
		if filter.Limit > 0 {
			bound = filter.Offset + filter.Limit
		}
		ids, err = s.scanAllContextIDs(ctx, bound)
	}
	if err != nil {
		s.log.Warn("load_contexts id resolution failed", "error", err)
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

// LoadContextsByIDs performs a single MGET round-trip, the mandatory
// optimized path for batch reads on this backend.
func (s *Storage) LoadContextsByIDs(ctx context.Context, ids []string) ([]memory.Context, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.contextKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		s.log.Warn("load_contexts_by_ids mget failed", "error", err)
		return nil, nil
	}

	var result []memory.Context
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // stale index entry pointing at an expired/missing document
		}
		doc, err := unmarshalDocument(str)
		if err != nil {
			s.log.Warn("load_contexts_by_ids unmarshal failed", "error", err)
			continue
		}
		result = append(result, doc.toContext())
	}
	return result, nil
}

// SearchContexts layers the reserved content_search substring hook on top of
// LoadContexts' planner behavior.
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
	filtered := rows[:0:0]
	for _, r := range rows {
		if containsFold(r.Content, filter.ContentSearch) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// UpdateContext rewrites the document in place with a refreshed TTL.
func (s *Storage) UpdateContext(ctx context.Context, id string, content *string, importance *int) (bool, error) {
	const op = "rediskv.UpdateContext"
	if content == nil && importance == nil {
		return false, nil
	}
	if importance != nil && (*importance < 1 || *importance > 10) {
		return false, memerr.ValidationErr(op, fmt.Errorf("importance_level %d out of range 1..10", *importance))
	}

	raw, err := s.client.Get(ctx, s.contextKey(id)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		s.log.Warn("update_context get failed", "id", id, "error", err)
		return false, nil
	}
	doc, err := unmarshalDocument(raw)
	if err != nil {
		s.log.Warn("update_context unmarshal failed", "id", id, "error", err)
		return false, nil
	}
	if content != nil {
		doc.Content = *content
	}
	if importance != nil {
		doc.ImportanceLevel = *importance
	}
	newRaw, err := marshalDocument(doc)
	if err != nil {
		s.log.Error("update_context marshal failed", "error", err)
		return false, nil
	}
	if err := s.client.Set(ctx, s.contextKey(id), newRaw, s.ttl).Err(); err != nil {
		s.log.Warn("update_context set failed", "id", id, "error", err)
		return false, nil
	}
	return true, nil
}

// DeleteContext reads the document to learn its project/tags, deletes it,
// and best-effort LREMs its id from every index list it appeared in. A
// failure to clean up one list is logged but does not abort the rest of
// the cascade.
func (s *Storage) DeleteContext(ctx context.Context, id string) (bool, error) {
	raw, err := s.client.Get(ctx, s.contextKey(id)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		s.log.Warn("delete_context get failed", "id", id, "error", err)
		return false, nil
	}
	doc, err := unmarshalDocument(raw)
	if err != nil {
		s.log.Warn("delete_context unmarshal failed", "id", id, "error", err)
		return false, nil
	}

	if err := s.client.Del(ctx, s.contextKey(id)).Err(); err != nil {
		s.log.Warn("delete_context del failed", "id", id, "error", err)
		return false, nil
	}

	if doc.ProjectID != "" {
		if err := s.client.LRem(ctx, s.projectKey(doc.ProjectID), 0, id).Err(); err != nil {
			s.log.Warn("delete_context project index cleanup failed", "id", id, "error", err)
		}
	}
	for _, tag := range doc.Tags {
		if err := s.client.LRem(ctx, s.tagKey(tag), 0, id).Err(); err != nil {
			s.log.Warn("delete_context tag index cleanup failed", "id", id, "tag", tag, "error", err)
		}
	}
	return true, nil
}
