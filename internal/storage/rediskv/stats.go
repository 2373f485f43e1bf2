package rediskv

import (
	"context"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/extended-memory/mcp-storage/internal/analytics"
	"github.com/extended-memory/mcp-storage/internal/memory"
)

// GetStorageStats scans every context document once to aggregate counts, the
// importance histogram, and the oldest/newest timestamps, and reads Redis's
// own `INFO memory` for the byte-size figure (there is no file to stat on
// this backend).
func (s *Storage) GetStorageStats(ctx context.Context) (memory.StorageStats, error) {
	var stats memory.StorageStats

	ids, err := s.scanAllContextIDs(ctx, 0)
	if err != nil {
		s.log.Warn("get_storage_stats scan failed", "error", err)
		stats.ImportanceHistogram = make(map[int]int)
		return stats, nil
	}
	rows, err := s.LoadContextsByIDs(ctx, ids)
	if err != nil {
		stats.ImportanceHistogram = make(map[int]int)
		return stats, nil
	}

	projects := make(map[string]struct{})
	for _, r := range rows {
		if r.Status == memory.StatusActive {
			stats.ActiveContexts++
		}
		if r.ProjectID != "" {
			projects[r.ProjectID] = struct{}{}
		}
	}
	stats.DistinctProjects = len(projects)
	stats.ImportanceHistogram = analytics.Histogram(rows)
	oldest, newest := analytics.OldestNewest(rows)
	if oldest != nil {
		stats.OldestContext = &oldest.CreatedAt
	}
	if newest != nil {
		stats.NewestContext = &newest.CreatedAt
	}

	tagNames, err := s.scanTagNames(ctx)
	if err == nil {
		stats.TagCount = len(tagNames)
	}

	stats.ByteSize = s.usedMemoryBytes(ctx)
	return stats, nil
}

// usedMemoryBytes parses `used_memory:<n>` out of `INFO memory`, the
// standard way to get a Redis-backed store's footprint without a file to
// os.Stat.
func (s *Storage) usedMemoryBytes(ctx context.Context) int64 {
	info, err := s.client.Info(ctx, "memory").Result()
	if err != nil {
		s.log.Warn("get_storage_stats info memory failed", "error", err)
		return 0
	}
	for _, line := range strings.Split(info, "\r\n") {
		if strings.HasPrefix(line, "used_memory:") {
			n, err := strconv.ParseInt(strings.TrimPrefix(line, "used_memory:"), 10, 64)
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// AnalyzeTagPatterns builds per-tag usage/importance/recency summaries by
// pipelining LRANGE across every tag key, then batch-loading all referenced
// documents once, matching the batch-or-bug invariant even for analytics.
func (s *Storage) AnalyzeTagPatterns(ctx context.Context, limit int) ([]memory.TagPattern, error) {
	tagNames, err := s.scanTagNames(ctx)
	if err != nil {
		s.log.Warn("analyze_tag_patterns scan failed", "error", err)
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.StringSliceCmd, len(tagNames))
	for i, tag := range tagNames {
		cmds[i] = pipe.LRange(ctx, s.tagKey(tag), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		s.log.Warn("analyze_tag_patterns pipeline failed", "error", err)
		return nil, nil
	}

	tagToIDs := make(map[string][]string, len(tagNames))
	allIDs := make(map[string]struct{})
	for i, tag := range tagNames {
		ids, err := cmds[i].Result()
		if err != nil {
			continue
		}
		tagToIDs[tag] = ids
		for _, id := range ids {
			allIDs[id] = struct{}{}
		}
	}

	idList := make([]string, 0, len(allIDs))
	for id := range allIDs {
		idList = append(idList, id)
	}
	rows, err := s.LoadContextsByIDs(ctx, idList)
	if err != nil {
		return nil, nil
	}
	byID := make(map[string]memory.Context, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	var result []memory.TagPattern
	for tag, ids := range tagToIDs {
		var p memory.TagPattern
		p.Tag = tag
		projects := make(map[string]struct{})
		var importanceSum int
		var n int
		for _, id := range ids {
			c, ok := byID[id]
			if !ok {
				continue
			}
			n++
			importanceSum += c.ImportanceLevel
			if c.ProjectID != "" {
				projects[c.ProjectID] = struct{}{}
			}
			if c.CreatedAt.After(p.LatestUsage) {
				p.LatestUsage = c.CreatedAt
			}
		}
		if n == 0 {
			continue
		}
		p.UsageCount = n
		p.AvgImportance = float64(importanceSum) / float64(n)
		p.ProjectCount = len(projects)
		result = append(result, p)
	}

	analytics.SortTagPatterns(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
