package initservice_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/connstring"
	"github.com/extended-memory/mcp-storage/internal/initservice"
	"github.com/extended-memory/mcp-storage/internal/memerr"
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

func TestLoadSmartContexts_HighAndRecentSlabsDeduped(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	svc := initservice.New(store)

	highID, err := store.SaveContext(ctx, "high importance", 9, "proj", nil)
	require.NoError(t, err)
	_, err = store.SaveContext(ctx, "recent but low", 5, "proj", nil)
	require.NoError(t, err)
	_, err = store.SaveContext(ctx, "too low to include", 2, "proj", nil)
	require.NoError(t, err)

	contexts, err := svc.LoadSmartContexts(ctx, "proj", 50)
	require.NoError(t, err)
	require.Len(t, contexts, 2)

	var sawHigh bool
	for _, c := range contexts {
		if c.ID == highID {
			sawHigh = true
		}
	}
	assert.True(t, sawHigh)
}

func TestLoadSmartContexts_StaleRecentDropped(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	future := time.Now().Add(10 * 24 * time.Hour)
	svc := initservice.New(store, initservice.WithClock(func() time.Time { return future }))

	_, err := store.SaveContext(ctx, "not high enough, will go stale", 5, "proj", nil)
	require.NoError(t, err)

	contexts, err := svc.LoadSmartContexts(ctx, "proj", 50)
	require.NoError(t, err)
	assert.Empty(t, contexts)
}

func TestLoadInitContexts_BlockedInstructionPathPropagates(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	svc := initservice.New(store)

	_, err := svc.LoadInitContexts(ctx, "proj", 10, "/etc/passwd.md")
	require.Error(t, err)
	assert.True(t, memerr.IsKind(err, memerr.Permission))
}

func TestLoadInitContexts_MissingInstructionFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	svc := initservice.New(store)

	_, err := store.SaveContext(ctx, "hello", 8, "proj", nil)
	require.NoError(t, err)

	result, err := svc.LoadInitContexts(ctx, "proj", 10, filepath.Join(t.TempDir(), "missing.md"))
	require.NoError(t, err)
	assert.Empty(t, result.InitInstruction)
	assert.Len(t, result.Contexts, 1)
}
