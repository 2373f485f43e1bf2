package rediskv

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func nowUTC() time.Time { return time.Now().UTC() }

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
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

// scanAllContextIDs is the unscoped-read fallback: neither a project nor a
// tag filter was given, so a bounded keyspace SCAN is the only option.
func (s *Storage) scanAllContextIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+":context:*", 1000).Iterator()
	prefixLen := len(s.prefix + ":context:")
	for iter.Next(ctx) {
		key := iter.Val()
		ids = append(ids, key[prefixLen:])
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, iter.Err()
}

// unionTagIDs pipelines one LRANGE per tag and unions the results — the
// mandatory batched path for multi-tag OR resolution. naiveUnionTagIDs below
// is kept only as an unexported reference implementation exercised by the
// consistency test; the pipelined path is the only one production reads use.
func (s *Storage) unionTagIDs(ctx context.Context, tags []string) ([]string, error) {
	normTags := normalizeTags(tags)
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.StringSliceCmd, len(normTags))
	for i, tag := range normTags {
		cmds[i] = pipe.LRange(ctx, s.tagKey(tag), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var union []string
	for _, cmd := range cmds {
		ids, err := cmd.Result()
		if err != nil {
			continue
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	return union, nil
}

// naiveUnionTagIDs is the forbidden per-tag fan-out path: one round-trip per
// tag instead of a single pipeline. Never called from production code paths
// — kept only so TestUnionTagIDsPipelinedMatchesNaive can assert the
// pipelined path above produces an identical result set.
func (s *Storage) naiveUnionTagIDs(ctx context.Context, tags []string) ([]string, error) {
	seen := make(map[string]struct{})
	var union []string
	for _, tag := range normalizeTags(tags) {
		ids, err := s.client.LRange(ctx, s.tagKey(tag), 0, -1).Result()
		if err != nil {
			continue
		}
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	return union, nil
}

// intersectWithProject keeps only ids whose document's project_id matches
// projectID, via one MGET batch rather than a per-id GET.
func (s *Storage) intersectWithProject(ctx context.Context, ids []string, projectID string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.contextKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	var kept []string
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		doc, err := unmarshalDocument(str)
		if err != nil {
			continue
		}
		if doc.ProjectID == projectID {
			kept = append(kept, ids[i])
		}
	}
	return kept, nil
}
