package rediskv

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/extended-memory/mcp-storage/internal/analytics"
	"github.com/extended-memory/mcp-storage/internal/memory"
)

// FindContextsByTag returns ids bearing tag, optionally scoped by project,
// via a single LRANGE of the tag's index list.
func (s *Storage) FindContextsByTag(ctx context.Context, tag, projectID string) ([]string, error) {
	ids, err := s.client.LRange(ctx, s.tagKey(strings.ToLower(strings.TrimSpace(tag))), 0, -1).Result()
	if err != nil {
		s.log.Warn("find_contexts_by_tag failed", "tag", tag, "error", err)
		return nil, nil
	}
	if projectID == "" {
		return ids, nil
	}
	kept, err := s.intersectWithProject(ctx, ids, projectID)
	if err != nil {
		s.log.Warn("find_contexts_by_tag project scope failed", "tag", tag, "error", err)
		return nil, nil
	}
	return kept, nil
}

// FindContextsByMultipleTags resolves the union of tag lists with one
// pipeline, optionally intersects with the project list, then batch-GETs
// the documents.
func (s *Storage) FindContextsByMultipleTags(ctx context.Context, tags []string, projectID string, limit int) ([]memory.Context, error) {
	ids, err := s.unionTagIDs(ctx, tags)
	if err != nil {
		s.log.Warn("find_contexts_by_multiple_tags union failed", "error", err)
		return nil, nil
	}
	if projectID != "" {
		ids, err = s.intersectWithProject(ctx, ids, projectID)
		if err != nil {
			s.log.Warn("find_contexts_by_multiple_tags project scope failed", "error", err)
			return nil, nil
		}
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

// GetContextTags reads a single document and returns its embedded tag list.
func (s *Storage) GetContextTags(ctx context.Context, id string) ([]string, error) {
	c, err := s.LoadContext(ctx, id)
	if err != nil || c == nil {
		return nil, nil
	}
	return c.Tags, nil
}

// AddContextTag rewrites the document with the new tag appended and pushes
// the id onto that tag's index list.
func (s *Storage) AddContextTag(ctx context.Context, id, tag string) (bool, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false, nil
	}
	raw, err := s.client.Get(ctx, s.contextKey(id)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		s.log.Warn("add_context_tag get failed", "id", id, "error", err)
		return false, nil
	}
	doc, err := unmarshalDocument(raw)
	if err != nil {
		s.log.Warn("add_context_tag unmarshal failed", "id", id, "error", err)
		return false, nil
	}
	for _, t := range doc.Tags {
		if t == tag {
			return true, nil
		}
	}
	doc.Tags = append(doc.Tags, tag)
	newRaw, err := marshalDocument(doc)
	if err != nil {
		s.log.Error("add_context_tag marshal failed", "error", err)
		return false, nil
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.contextKey(id), newRaw, s.ttl)
	pipe.LPush(ctx, s.tagKey(tag), id)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.tagKey(tag), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("add_context_tag pipeline failed", "id", id, "error", err)
		return false, nil
	}
	return true, nil
}

// GetPopularTags scans the tag-index keyspace, pipelines a LRANGE per tag,
// and keeps those with usage_count >= minUsage. A project scope batch-GETs
// every candidate context once and counts only matching occurrences. This is
// the mandatory batched path: no per-tag round-trip outside the pipeline.
func (s *Storage) GetPopularTags(ctx context.Context, limit, minUsage int, projectID string) ([]memory.PopularTag, error) {
	tagNames, err := s.scanTagNames(ctx)
	if err != nil {
		s.log.Warn("get_popular_tags scan failed", "error", err)
		return nil, nil
	}
	if len(tagNames) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.StringSliceCmd, len(tagNames))
	for i, tag := range tagNames {
		cmds[i] = pipe.LRange(ctx, s.tagKey(tag), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		s.log.Warn("get_popular_tags pipeline failed", "error", err)
		return nil, nil
	}

	tagIDs := make(map[string][]string, len(tagNames))
	for i, tag := range tagNames {
		ids, err := cmds[i].Result()
		if err != nil {
			continue
		}
		tagIDs[tag] = ids
	}

	var inProject map[string]bool
	if projectID != "" {
		all := make(map[string]struct{})
		for _, ids := range tagIDs {
			for _, id := range ids {
				all[id] = struct{}{}
			}
		}
		candidates := make([]string, 0, len(all))
		for id := range all {
			candidates = append(candidates, id)
		}
		kept, err := s.intersectWithProject(ctx, candidates, projectID)
		if err != nil {
			s.log.Warn("get_popular_tags project scope failed", "error", err)
			return nil, nil
		}
		inProject = make(map[string]bool, len(kept))
		for _, id := range kept {
			inProject[id] = true
		}
	}

	var result []memory.PopularTag
	for tag, ids := range tagIDs {
		count := len(ids)
		if inProject != nil {
			count = 0
			for _, id := range ids {
				if inProject[id] {
					count++
				}
			}
		}
		if count < minUsage {
			continue
		}
		result = append(result, memory.PopularTag{Tag: tag, Count: count})
	}

	analytics.SortPopularTags(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CleanupUnusedTags deletes tag-index keys whose list has drained to empty.
// Usually a no-op: Redis removes a list key itself once the last LREM
// empties it, so this only catches keys left in a degenerate state.
func (s *Storage) CleanupUnusedTags(ctx context.Context) (int, error) {
	tagNames, err := s.scanTagNames(ctx)
	if err != nil {
		return 0, nil
	}
	removed := 0
	for _, tag := range tagNames {
		n, err := s.client.LLen(ctx, s.tagKey(tag)).Result()
		if err != nil {
			continue
		}
		if n == 0 {
			if err := s.client.Del(ctx, s.tagKey(tag)).Err(); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *Storage) scanTagNames(ctx context.Context) ([]string, error) {
	var names []string
	prefix := fmt.Sprintf("%s:tag:", s.prefix)
	const suffix = ":contexts"
	iter := s.client.Scan(ctx, 0, s.tagScanPattern(), 1000).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
		names = append(names, name)
	}
	return names, iter.Err()
}
