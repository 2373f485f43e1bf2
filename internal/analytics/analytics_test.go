package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/analytics"
	"github.com/extended-memory/mcp-storage/internal/memory"
)

func TestHistogram(t *testing.T) {
	contexts := []memory.Context{
		{ImportanceLevel: 5}, {ImportanceLevel: 5}, {ImportanceLevel: 9},
	}
	hist := analytics.Histogram(contexts)
	assert.Equal(t, 2, hist[5])
	assert.Equal(t, 1, hist[9])
}

func TestSortPopularTags_DescByCountThenTag(t *testing.T) {
	tags := []memory.PopularTag{
		{Tag: "z", Count: 3},
		{Tag: "a", Count: 3},
		{Tag: "b", Count: 5},
	}
	analytics.SortPopularTags(tags)
	require.Len(t, tags, 3)
	assert.Equal(t, "b", tags[0].Tag)
	assert.Equal(t, "a", tags[1].Tag)
	assert.Equal(t, "z", tags[2].Tag)
}

func TestSortTagPatterns_DescByUsageCount(t *testing.T) {
	patterns := []memory.TagPattern{
		{Tag: "low", UsageCount: 1},
		{Tag: "high", UsageCount: 10},
	}
	analytics.SortTagPatterns(patterns)
	assert.Equal(t, "high", patterns[0].Tag)
}

func TestOldestNewest(t *testing.T) {
	now := time.Now()
	contexts := []memory.Context{
		{ID: "mid", CreatedAt: now},
		{ID: "old", CreatedAt: now.Add(-time.Hour)},
		{ID: "new", CreatedAt: now.Add(time.Hour)},
	}
	oldest, newest := analytics.OldestNewest(contexts)
	require.NotNil(t, oldest)
	require.NotNil(t, newest)
	assert.Equal(t, "old", oldest.ID)
	assert.Equal(t, "new", newest.ID)
}

func TestOldestNewest_Empty(t *testing.T) {
	oldest, newest := analytics.OldestNewest(nil)
	assert.Nil(t, oldest)
	assert.Nil(t, newest)
}
