package sqlite

import (
	"context"
	"os"

	"github.com/extended-memory/mcp-storage/internal/memory"
)

// GetStorageStats aggregates counts, the tag dictionary size, file size, and
// an importance histogram.
func (s *Storage) GetStorageStats(ctx context.Context) (memory.StorageStats, error) {
	var stats memory.StorageStats
	stats.ImportanceHistogram = make(map[int]int)

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contexts WHERE status = 'active'`).Scan(&stats.ActiveContexts); err != nil {
		s.log.Warn("get_storage_stats active count failed", "error", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT project_id) FROM contexts WHERE project_id IS NOT NULL`).Scan(&stats.DistinctProjects); err != nil {
		s.log.Warn("get_storage_stats project count failed", "error", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&stats.TagCount); err != nil {
		s.log.Warn("get_storage_stats tag count failed", "error", err)
	}

	var oldest, newest memory.Context
	rows, err := s.queryContexts(ctx, `SELECT `+contextColumns+` FROM contexts ORDER BY created_at ASC LIMIT 1`)
	if err == nil && len(rows) > 0 {
		oldest = rows[0]
		stats.OldestContext = &oldest.CreatedAt
	}
	rows, err = s.queryContexts(ctx, `SELECT `+contextColumns+` FROM contexts ORDER BY created_at DESC LIMIT 1`)
	if err == nil && len(rows) > 0 {
		newest = rows[0]
		stats.NewestContext = &newest.CreatedAt
	}

	histRows, err := s.db.QueryContext(ctx, `SELECT importance_level, COUNT(*) FROM contexts GROUP BY importance_level`)
	if err != nil {
		s.log.Warn("get_storage_stats histogram failed", "error", err)
	} else {
		defer func() { _ = histRows.Close() }()
		for histRows.Next() {
			var level, count int
			if err := histRows.Scan(&level, &count); err == nil {
				stats.ImportanceHistogram[level] = count
			}
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.ByteSize = info.Size()
	}

	return stats, nil
}

// AnalyzeTagPatterns joins tags to contexts for a usage/importance/recency
// summary per tag, sorted by usage desc then latest desc.
func (s *Storage) AnalyzeTagPatterns(ctx context.Context, limit int) ([]memory.TagPattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name,
		       COUNT(*) AS usage_count,
		       AVG(c.importance_level) AS avg_importance,
		       MAX(c.created_at) AS latest_usage,
		       COUNT(DISTINCT c.project_id) AS project_count
		FROM tags t
		JOIN context_tags ct ON ct.tag_id = t.id
		JOIN contexts c ON c.id = ct.context_id
		GROUP BY t.name
		ORDER BY usage_count DESC, latest_usage DESC
		LIMIT ?`, limit)
	if err != nil {
		s.log.Warn("analyze_tag_patterns failed", "error", err)
		return nil, nil
	}
	defer func() { _ = rows.Close() }()

	var result []memory.TagPattern
	for rows.Next() {
		var p memory.TagPattern
		if err := rows.Scan(&p.Tag, &p.UsageCount, &p.AvgImportance, &p.LatestUsage, &p.ProjectCount); err != nil {
			s.log.Warn("analyze_tag_patterns scan failed", "error", err)
			return nil, nil
		}
		result = append(result, p)
	}
	return result, nil
}
