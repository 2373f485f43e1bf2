package instructionfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/instructionfile"
	"github.com/extended-memory/mcp-storage/internal/memerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsEmpty(t *testing.T) {
	out, err := instructionfile.Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoad_PlainFile(t *testing.T) {
	path := writeFile(t, "note.md", "Remember the project context.")
	out, err := instructionfile.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "Remember the project context.", out)
}

func TestLoad_FrontMatterSubstitution(t *testing.T) {
	path := writeFile(t, "note.md", "---\ngreeting: hi\n---\n{{greeting}} {{project}}.")
	out, err := instructionfile.Load(path, map[string]string{"project": "demo"})
	require.NoError(t, err)
	assert.Equal(t, "hi demo.", out)
}

func TestLoad_DisallowedExtensionIsPermissionError(t *testing.T) {
	path := writeFile(t, "note.sh", "echo hi")
	_, err := instructionfile.Load(path, nil)
	require.Error(t, err)
	assert.True(t, memerr.IsKind(err, memerr.Permission))
}

func TestLoad_BlockedPrefixIsPermissionError(t *testing.T) {
	_, err := instructionfile.Load("/etc/passwd.md", nil)
	require.Error(t, err)
	assert.True(t, memerr.IsKind(err, memerr.Permission))
}

func TestLoad_MissingFileIsStorageErrorNotPermission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.md")
	_, err := instructionfile.Load(path, nil)
	require.Error(t, err)
	assert.True(t, memerr.IsKind(err, memerr.Storage))
	assert.False(t, memerr.IsKind(err, memerr.Permission))
}
