package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputSetNoOpWhenEqual(t *testing.T) {
	db := NewDatabase()
	in := NewInput[string](db, "file.py", "hello")
	before := db.revision
	changed := in.Set("hello")
	assert.False(t, changed)
	assert.Equal(t, before, db.revision)
}

func TestInputSetBumpsOnChange(t *testing.T) {
	db := NewDatabase()
	in := NewInput[string](db, "file.py", "hello")
	before := db.revision
	changed := in.Set("world")
	assert.True(t, changed)
	assert.Greater(t, db.revision, before)
}

func TestQueryMemoizesUntilInputChanges(t *testing.T) {
	db := NewDatabase()
	in := NewInput[int](db, "n", 1)
	calls := 0
	q := NewQuery[int](db, "double", func(h *Handle, args any) int {
		calls++
		return in.Get(h) * 2
	})

	h := db.Root()
	v := q.Get(h, "x", nil)
	require.Equal(t, 2, v)
	require.Equal(t, 1, calls)

	// Re-reading without any input change must not recompute.
	v = q.Get(h, "x", nil)
	require.Equal(t, 2, v)
	require.Equal(t, 1, calls)

	in.Set(5)
	h = db.Root()
	v = q.Get(h, "x", nil)
	require.Equal(t, 10, v)
	require.Equal(t, 2, calls)
}

func TestQueryBackdatingSkipsDownstreamRecompute(t *testing.T) {
	db := NewDatabase()
	src := NewInput[string](db, "src", "abc")
	extractCalls := 0
	lengthCalls := 0

	extract := NewQuery[int](db, "extract", func(h *Handle, args any) int {
		extractCalls++
		s := src.Get(h)
		return len(s) // structurally equal output for byte-equal-length inputs
	})
	length := NewQuery[string](db, "describe", func(h *Handle, args any) string {
		lengthCalls++
		n := extract.Get(h, "k", nil)
		if n > 2 {
			return "long"
		}
		return "short"
	})

	h := db.Root()
	require.Equal(t, "long", length.Get(h, "k", nil))
	require.Equal(t, 1, extractCalls)
	require.Equal(t, 1, lengthCalls)

	// Change src to a different 3-byte string: extract recomputes (len==3,
	// same value as before -> backdated), so describe must NOT recompute.
	src.Set("xyz")
	h = db.Root()
	require.Equal(t, "long", length.Get(h, "k", nil))
	require.Equal(t, 2, extractCalls, "extract recomputes because its input changed")
	require.Equal(t, 1, lengthCalls, "describe must be skipped: extract's output was backdated")
}

func TestAccumulatorDeduplicatesAndScopesToQuery(t *testing.T) {
	db := NewDatabase()
	in := NewInput[[]string](db, "items", []string{"a", "b", "a"})
	acc := NewAccumulator[string]("diagnostics")

	leaf := NewQuery[struct{}](db, "leaf", func(h *Handle, args any) struct{} {
		for _, s := range in.Get(h) {
			acc.Push(h, s)
		}
		return struct{}{}
	})
	root := NewQuery[struct{}](db, "root", func(h *Handle, args any) struct{} {
		leaf.Get(h, "k", nil)
		acc.Push(h, "root-own")
		return struct{}{}
	})

	h := db.Root()
	vals := All(h, acc, root, "k", nil)
	assert.ElementsMatch(t, []string{"a", "b", "root-own"}, vals)
}

func TestHandleCancellationOnConcurrentWrite(t *testing.T) {
	db := NewDatabase()
	in := NewInput[int](db, "n", 1)
	h := db.Root()
	assert.False(t, h.Cancelled())
	in.Set(2)
	assert.True(t, h.Cancelled())
	assert.Error(t, h.CheckCancelled())

	h2 := h.Clone()
	assert.False(t, h2.Cancelled())
}
