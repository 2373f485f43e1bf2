package factory_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/memerr"
	"github.com/extended-memory/mcp-storage/internal/storage/factory"
)

func TestNew_SQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.db")
	store, err := factory.New(context.Background(), fmt.Sprintf("sqlite:///%s", path), factory.Options{})
	require.NoError(t, err)
	defer store.Close()

	id, err := store.SaveContext(context.Background(), "hello", 5, "demo", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestNew_UnsupportedSchemeIsConfigurationError(t *testing.T) {
	_, err := factory.New(context.Background(), "mongodb://localhost/db", factory.Options{})
	require.Error(t, err)
	assert.True(t, memerr.IsKind(err, memerr.Configuration))
}

func TestNew_PostgreSQLIsReservedNotImplemented(t *testing.T) {
	_, err := factory.New(context.Background(), "postgresql://localhost/db", factory.Options{})
	require.Error(t, err)
	assert.True(t, memerr.IsKind(err, memerr.Configuration))
}
