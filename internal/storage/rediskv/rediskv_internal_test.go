package rediskv

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/connstring"
)

// newInternalTestStorage mirrors the external test helper but lives in
// package rediskv so it can reach unexported methods like unionTagIDs.
func newInternalTestStorage(t *testing.T) *Storage {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &connstring.RedisConfig{Host: mr.Host(), Port: mustAtoi(t, mr.Port()), MaxConnections: 4}
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			t.Fatalf("not a port: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// TestUnionTagIDsPipelinedMatchesNaive checks the pipelined batch path and
// the per-tag fan-out reference path return identical result sets, since
// only the former is ever wired into production reads.
func TestUnionTagIDsPipelinedMatchesNaive(t *testing.T) {
	ctx := context.Background()
	s := newInternalTestStorage(t)

	_, err := s.SaveContext(ctx, "c1", 5, "proj", []string{"alpha", "beta"})
	require.NoError(t, err)
	_, err = s.SaveContext(ctx, "c2", 5, "proj", []string{"beta", "gamma"})
	require.NoError(t, err)
	_, err = s.SaveContext(ctx, "c3", 5, "proj", []string{"delta"})
	require.NoError(t, err)

	tags := []string{"alpha", "beta", "gamma", "missing"}
	pipelined, err := s.unionTagIDs(ctx, tags)
	require.NoError(t, err)
	naive, err := s.naiveUnionTagIDs(ctx, tags)
	require.NoError(t, err)

	sort.Strings(pipelined)
	sort.Strings(naive)
	require.Equal(t, naive, pipelined)
}
