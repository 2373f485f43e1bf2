// Package parity holds only a cross-backend test: it seeds identical data
// into both the relational and key-value backends and asserts
// GetPopularTags agrees, so the two popularity implementations can't
// silently drift apart.
package parity_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/connstring"
	"github.com/extended-memory/mcp-storage/internal/memory"
	"github.com/extended-memory/mcp-storage/internal/storage/rediskv"
	"github.com/extended-memory/mcp-storage/internal/storage/sqlite"
)

func seed(t *testing.T, store memory.Storage) {
	t.Helper()
	ctx := context.Background()
	fixture := []struct {
		tags []string
	}{
		{[]string{"gold", "silver"}},
		{[]string{"gold"}},
		{[]string{"gold", "bronze"}},
		{[]string{"silver", "bronze"}},
		{[]string{"bronze"}},
	}
	for i, f := range fixture {
		_, err := store.SaveContext(ctx, "item", 5, "proj", f.tags)
		require.NoError(t, err, "seed item %d", i)
	}
}

func TestPopularTagParity(t *testing.T) {
	ctx := context.Background()

	sqlitePath := filepath.Join(t.TempDir(), "memory.db")
	sqliteStore, err := sqlite.New(&connstring.SQLiteConfig{DatabasePath: sqlitePath, Timeout: 30, JournalMode: "WAL", CheckSameThread: true})
	require.NoError(t, err)
	require.NoError(t, sqliteStore.Initialize(ctx))
	defer sqliteStore.Close()

	mr := miniredis.RunT(t)
	port := 0
	for _, r := range mr.Port() {
		port = port*10 + int(r-'0')
	}
	redisStore, err := rediskv.New(&connstring.RedisConfig{Host: mr.Host(), Port: port, MaxConnections: 4})
	require.NoError(t, err)
	require.NoError(t, redisStore.Initialize(ctx))
	defer redisStore.Close()

	seed(t, sqliteStore)
	seed(t, redisStore)

	sqliteTags, err := sqliteStore.GetPopularTags(ctx, 10, 2, "")
	require.NoError(t, err)
	redisTags, err := redisStore.GetPopularTags(ctx, 10, 2, "")
	require.NoError(t, err)

	require.Equal(t, len(sqliteTags), len(redisTags))
	for i := range sqliteTags {
		require.Equal(t, sqliteTags[i].Tag, redisTags[i].Tag, "tag order mismatch at index %d", i)
		require.Equal(t, sqliteTags[i].Count, redisTags[i].Count, "count mismatch for tag %s", sqliteTags[i].Tag)
	}
}
