package intern

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternDeduplicates(t *testing.T) {
	tbl := NewTable(KindTag)
	a := tbl.Intern("trans")
	b := tbl.Intern("trans")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, tbl.Len())
}

func TestInternRoundTrip(t *testing.T) {
	tbl := NewTable(KindLibrary)
	id := tbl.Intern("i18n")
	require.Equal(t, "i18n", tbl.Lookup(id))
}

func TestInternDistinctKindsDoNotCollide(t *testing.T) {
	tables := NewTables()
	tagID := tables.Intern(KindTag, "include")
	filterID := tables.Intern(KindFilter, "include")
	// Same text, different namespace: the ids need not differ numerically,
	// but looking each back up must stay within its own namespace.
	assert.Equal(t, "include", tables.Lookup(KindTag, tagID))
	assert.Equal(t, "include", tables.Lookup(KindFilter, filterID))
}

func TestInternConcurrentDuplicatesAgree(t *testing.T) {
	tbl := NewTable(KindSymbol)
	const n = 64
	ids := make([]ID, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			ids[i] = tbl.Intern("shared")
		}()
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestInternOrdering(t *testing.T) {
	tbl := NewTable(KindModule)
	a := tbl.Intern("app.templatetags.first")
	b := tbl.Intern("app.templatetags.second")
	assert.NotEqual(t, a, b)
	assert.True(t, a < b || a > b) // totally ordered, not required to be insertion order numerically
}
