package loadscope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/loadscope"
	"github.com/djls-project/djls/span"
)

func sp(start, length int) span.Span { return span.New("t.html", start, length) }

func TestFullLoadThenSelectiveOfSameLibrary(t *testing.T) {
	tr := loadscope.New([]loadscope.LoadOccurrence{
		{Span: sp(0, 20), Bits: []string{"i18n", "static"}},
		{Span: sp(30, 15), Bits: []string{"trans", "from", "i18n"}},
	})
	state := tr.AvailableAt(100)
	assert.True(t, state.IsLoaded("i18n"))
	assert.True(t, state.IsLoaded("static"))
}

func TestSelectiveImportBeforeFullLoadIsSuperseded(t *testing.T) {
	tr := loadscope.New([]loadscope.LoadOccurrence{
		{Span: sp(30, 15), Bits: []string{"trans", "from", "i18n"}},
		{Span: sp(60, 10), Bits: []string{"i18n"}},
	})
	before := tr.AvailableAt(50)
	require.True(t, before.IsLoaded("i18n"))
	assert.Contains(t, before.SelectiveImports["i18n"], "trans")

	after := tr.AvailableAt(100)
	assert.True(t, after.FullyLoaded["i18n"])
	assert.Empty(t, after.SelectiveImports["i18n"])
}

func TestAvailableAtIsMonotonic(t *testing.T) {
	tr := loadscope.New([]loadscope.LoadOccurrence{
		{Span: sp(0, 10), Bits: []string{"i18n"}},
		{Span: sp(50, 10), Bits: []string{"static"}},
	})
	early := tr.AvailableAt(5)
	assert.False(t, early.IsLoaded("static"))
	late := tr.AvailableAt(200)
	assert.True(t, late.IsLoaded("i18n"))
	assert.True(t, late.IsLoaded("static"))
}
