package memory

import (
	"sort"
	"strconv"
)

// SortDescending orders contexts by (created_at, id) descending, the fixed
// sort order every bulk read uses. The id tie-break compares numerically
// when both ids are decimal integers (the relational backend's monotonic
// row ids, where "10" must outrank "9") and lexicographically otherwise
// (the key-value backend's UUIDs).
func SortDescending(contexts []Context) {
	sort.SliceStable(contexts, func(i, j int) bool {
		a, b := contexts[i], contexts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return idAfter(a.ID, b.ID)
	})
}

// idAfter reports whether id a ranks ahead of b in descending order.
func idAfter(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na > nb
	}
	return a > b
}

// Truncate returns contexts[:limit], or contexts unchanged if limit <= 0 or
// limit >= len(contexts).
func Truncate(contexts []Context, limit int) []Context {
	if limit <= 0 || limit >= len(contexts) {
		return contexts
	}
	return contexts[:limit]
}

// Window applies an offset then a limit, for load paths that paginate in
// memory rather than in the storage statement.
func Window(contexts []Context, offset, limit int) []Context {
	if offset > 0 {
		if offset >= len(contexts) {
			return nil
		}
		contexts = contexts[offset:]
	}
	return Truncate(contexts, limit)
}
