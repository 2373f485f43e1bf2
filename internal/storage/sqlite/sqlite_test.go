package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/connstring"
	"github.com/extended-memory/mcp-storage/internal/memory"
	"github.com/extended-memory/mcp-storage/internal/storage/sqlite"
)

func newTestStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.db")
	cfg := &connstring.SQLiteConfig{DatabasePath: path, Timeout: 30, JournalMode: "WAL", CheckSameThread: true}
	s, err := sqlite.New(cfg)
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
	assert.Equal(t, 7, rows[0].ImportanceLevel)
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
	ids := []string{rows[0].ID, rows[1].ID}
	assert.ElementsMatch(t, []string{c1, c2}, ids)
}

func TestFindContextsByTagIsProjectScoped(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	c1, _ := s.SaveContext(ctx, "c1", 5, "A", []string{"t"})
	c2, _ := s.SaveContext(ctx, "c2", 5, "B", []string{"t"})

	scopedA, err := s.FindContextsByTag(ctx, "t", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{c1}, scopedA)

	all, err := s.FindContextsByTag(ctx, "t", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c1, c2}, all)
}

func TestPopularTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	for i := 0; i < 50; i++ {
		_, err := s.SaveContext(ctx, "bulk item", 5, "bulk", []string{"common"})
		require.NoError(t, err)
	}

	tags, err := s.GetPopularTags(ctx, 10, 2, "")
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	assert.Equal(t, "common", tags[0].Tag)
	assert.Equal(t, 50, tags[0].Count)
}

func TestLoadContextsOffsetPaginates(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := s.SaveContext(ctx, "page item", 5, "pages", nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	first, err := s.LoadContexts(ctx, memory.LoadFilter{ProjectID: "pages", ImportanceThreshold: 1, Limit: 2})
	require.NoError(t, err)
	second, err := s.LoadContexts(ctx, memory.LoadFilter{ProjectID: "pages", ImportanceThreshold: 1, Limit: 2, Offset: 2})
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	// Newest first: the second page continues exactly where the first ended.
	assert.Equal(t, ids[4], first[0].ID)
	assert.Equal(t, ids[3], first[1].ID)
	assert.Equal(t, ids[2], second[0].ID)
	assert.Equal(t, ids[1], second[1].ID)
}

func TestForgetContextIsIdempotentFalseOnSecondCall(t *testing.T) {
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

	n, err := s.CleanupUnusedTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
