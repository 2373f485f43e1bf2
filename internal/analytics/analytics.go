// Package analytics holds the histogram and sorting helpers the key-value
// backend's GetStorageStats, GetPopularTags and AnalyzeTagPatterns use to
// aggregate in memory. The relational backend does not call them: its SQL
// queries produce the same histogram shape and the same orderings
// ("count desc, then name asc" for popular tags, "usage desc, then latest
// desc" for tag patterns) directly.
package analytics

import (
	"sort"

	"github.com/extended-memory/mcp-storage/internal/memory"
)

// Histogram buckets contexts by importance level into a {level: count} map,
// the shape both backends' GetStorageStats embeds.
func Histogram(contexts []memory.Context) map[int]int {
	hist := make(map[int]int, 10)
	for _, c := range contexts {
		hist[c.ImportanceLevel]++
	}
	return hist
}

// SortPopularTags orders tags by count desc, then name asc, the fixed tie
// break both backends' GetPopularTags must agree on. Popularity is plain
// usage_count comparison with no recency bonus on either backend.
func SortPopularTags(tags []memory.PopularTag) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Tag < tags[j].Tag
	})
}

// SortTagPatterns orders patterns by usage desc, then latest-usage desc.
func SortTagPatterns(patterns []memory.TagPattern) {
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].UsageCount != patterns[j].UsageCount {
			return patterns[i].UsageCount > patterns[j].UsageCount
		}
		return patterns[i].LatestUsage.After(patterns[j].LatestUsage)
	})
}

// OldestNewest scans contexts once for the earliest and latest CreatedAt,
// the pair both backends' GetStorageStats report.
func OldestNewest(contexts []memory.Context) (oldest, newest *memory.Context) {
	for i := range contexts {
		c := &contexts[i]
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
		if newest == nil || c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	return oldest, newest
}
