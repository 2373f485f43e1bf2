package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortDescending_NumericIDTieBreak(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	contexts := []Context{
		{ID: "9", CreatedAt: ts},
		{ID: "10", CreatedAt: ts},
		{ID: "2", CreatedAt: ts},
	}

	SortDescending(contexts)

	// Equal timestamps break numerically: "10" outranks "9" despite
	// lexicographic order saying otherwise.
	assert.Equal(t, "10", contexts[0].ID)
	assert.Equal(t, "9", contexts[1].ID)
	assert.Equal(t, "2", contexts[2].ID)
}

func TestSortDescending_TimestampDominatesID(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	contexts := []Context{
		{ID: "100", CreatedAt: ts},
		{ID: "1", CreatedAt: ts.Add(time.Second)},
	}

	SortDescending(contexts)

	assert.Equal(t, "1", contexts[0].ID)
	assert.Equal(t, "100", contexts[1].ID)
}

func TestSortDescending_UUIDsFallBackToLexicographic(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	contexts := []Context{
		{ID: "aaaa-1111", CreatedAt: ts},
		{ID: "bbbb-2222", CreatedAt: ts},
	}

	SortDescending(contexts)

	assert.Equal(t, "bbbb-2222", contexts[0].ID)
	assert.Equal(t, "aaaa-1111", contexts[1].ID)
}

func TestWindow(t *testing.T) {
	contexts := []Context{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Len(t, Window(contexts, 0, 2), 2)
	assert.Equal(t, "b", Window(contexts, 1, 1)[0].ID)
	assert.Nil(t, Window(contexts, 3, 10))
	assert.Len(t, Window(contexts, 0, 0), 3)
}
