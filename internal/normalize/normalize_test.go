package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/extended-memory/mcp-storage/internal/normalize"
)

func TestProjectID_Fallback(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		assert.Equal(t, "general", normalize.ProjectID(in, "general"))
	}
}

func TestProjectID_CustomFallback(t *testing.T) {
	assert.Equal(t, "scratch", normalize.ProjectID("", "scratch"))
}

func TestProjectID_Collision(t *testing.T) {
	want := "my project"
	assert.Equal(t, want, normalize.ProjectID("My_Project", "general"))
	assert.Equal(t, want, normalize.ProjectID("my-project", "general"))
	assert.Equal(t, want, normalize.ProjectID("  MY  PROJECT  ", "general"))
}

func TestProjectID_Idempotent(t *testing.T) {
	in := "  SOME_PROJECT-NAME  "
	once := normalize.ProjectID(in, "general")
	twice := normalize.ProjectID(once, "general")
	assert.Equal(t, once, twice)
	assert.Equal(t, "some project name", once)
}
