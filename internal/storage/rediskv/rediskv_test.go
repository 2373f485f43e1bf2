package rediskv_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/connstring"
	"github.com/extended-memory/mcp-storage/internal/memory"
	"github.com/extended-memory/mcp-storage/internal/storage/rediskv"
)

func newTestStorage(t *testing.T) *rediskv.Storage {
	t.Helper()
	mr := miniredis.RunT(t)
	port := 0
	for _, r := range mr.Port() {
		port = port*10 + int(r-'0')
	}
	cfg := &connstring.RedisConfig{Host: mr.Host(), Port: port, MaxConnections: 4}
	s, err := rediskv.New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	id, err := s.SaveContext(ctx, "Hello", 7, "demo", []string{"a", "b"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rows, err := s.LoadContexts(ctx, memory.LoadFilter{ProjectID: "demo", ImportanceThreshold: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hello", rows[0].Content)
	assert.ElementsMatch(t, []string{"a", "b"}, rows[0].Tags)
}

func TestTagFilterOrSemantics(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	c1, _ := s.SaveContext(ctx, "c1", 9, "proj", []string{"x", "y"})
	c2, _ := s.SaveContext(ctx, "c2", 5, "proj", []string{"y", "z"})
	_, _ = s.SaveContext(ctx, "c3", 8, "proj", []string{"z"})

	rows, err := s.LoadContexts(ctx, memory.LoadFilter{ProjectID: "proj", ImportanceThreshold: 1, Limit: 10, TagsFilter: []string{"y"}})
	require.NoError(t, err)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	assert.ElementsMatch(t, []string{c1, c2}, ids)
}

func TestPopularTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	for i := 0; i < 5; i++ {
		_, err := s.SaveContext(ctx, "bulk item", 5, "bulk", []string{"common"})
		require.NoError(t, err)
	}

	tags, err := s.GetPopularTags(ctx, 10, 2, "")
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	assert.Equal(t, "common", tags[0].Tag)
	assert.Equal(t, 5, tags[0].Count)
}

func TestPopularTagsProjectScoped(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	for i := 0; i < 3; i++ {
		_, err := s.SaveContext(ctx, "a", 5, "alpha", []string{"shared"})
		require.NoError(t, err)
	}
	_, err := s.SaveContext(ctx, "b", 5, "beta", []string{"shared"})
	require.NoError(t, err)

	tags, err := s.GetPopularTags(ctx, 10, 2, "alpha")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "shared", tags[0].Tag)
	assert.Equal(t, 3, tags[0].Count)

	// beta has a single occurrence, below min_usage when scoped to it.
	tags, err = s.GetPopularTags(ctx, 10, 2, "beta")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestDeleteContextIsIdempotentFalseOnSecondCall(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	id, _ := s.SaveContext(ctx, "c", 5, "p", nil)

	first, err := s.DeleteContext(ctx, id)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := s.DeleteContext(ctx, id)
	require.NoError(t, err)
	assert.False(t, second)

	loaded, err := s.LoadContext(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCleanupUnusedTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	id, _ := s.SaveContext(ctx, "c", 5, "p", []string{"solo"})
	_, err := s.DeleteContext(ctx, id)
	require.NoError(t, err)

	// The delete's LREM drained the "solo" tag list, and Redis drops an
	// empty list key on its own, so there is nothing left to clean up.
	n, err := s.CleanupUnusedTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListAllProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	_, err := s.SaveContext(ctx, "a", 5, "proj-one", nil)
	require.NoError(t, err)
	_, err = s.SaveContext(ctx, "b", 5, "proj-two", nil)
	require.NoError(t, err)

	projects, err := s.ListAllProjects(ctx)
	require.NoError(t, err)
	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.ID
	}
	// Project ids are normalized on save: hyphens become spaces.
	assert.ElementsMatch(t, []string{"proj one", "proj two"}, names)
}

func TestGetStorageStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	_, err := s.SaveContext(ctx, "a", 3, "p", []string{"x"})
	require.NoError(t, err)
	_, err = s.SaveContext(ctx, "b", 9, "p", []string{"y"})
	require.NoError(t, err)

	stats, err := s.GetStorageStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveContexts)
	assert.Equal(t, 1, stats.DistinctProjects)
	assert.Equal(t, 1, stats.ImportanceHistogram[3])
	assert.Equal(t, 1, stats.ImportanceHistogram[9])
}
