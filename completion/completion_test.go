package completion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/completion"
	"github.com/djls-project/djls/inventory"
	"github.com/djls-project/djls/loadscope"
	"github.com/djls-project/djls/rulespec"
)

func strPtr(s string) *string                             { return &s }
func kindPtr(k inventory.SymbolKind) *inventory.SymbolKind { return &k }

func TestClassifyTagNameMidType(t *testing.T) {
	ctx := completion.Classify("{% loa", 6)
	assert.Equal(t, completion.TagName, ctx.Kind)
	assert.Equal(t, "loa", ctx.Partial)
}

func TestClassifyTagNameRightAfterOpener(t *testing.T) {
	ctx := completion.Classify("{%", 2)
	assert.Equal(t, completion.TagName, ctx.Kind)
	assert.True(t, ctx.NeedsLeadingSpace)
}

func TestClassifyLibraryNamePartial(t *testing.T) {
	ctx := completion.Classify("{% load i18n l1", 15)
	assert.Equal(t, completion.LibraryName, ctx.Kind)
	assert.Equal(t, "l1", ctx.Partial)
}

func TestClassifyLibraryNameFreshAfterSpace(t *testing.T) {
	ctx := completion.Classify("{% load ", 8)
	assert.Equal(t, completion.LibraryName, ctx.Kind)
	assert.Empty(t, ctx.Partial)
}

func TestClassifyTagArgumentFreshPosition(t *testing.T) {
	ctx := completion.Classify("{% mytag ", 9)
	assert.Equal(t, completion.TagArgument, ctx.Kind)
	assert.Equal(t, "mytag", ctx.TagName)
	assert.Equal(t, 0, ctx.Position)
}

func TestClassifyFilterAfterLastUnquotedPipe(t *testing.T) {
	src := `{{ var|default:"a|b"|up`
	ctx := completion.Classify(src, len(src))
	assert.Equal(t, completion.Filter, ctx.Kind)
	assert.Equal(t, "up", ctx.Partial)
}

func TestClassifyNoneForBareVariable(t *testing.T) {
	ctx := completion.Classify("{{ x", 4)
	assert.Equal(t, completion.None, ctx.Kind)
}

func TestClassifyNoneInsideFilterArgument(t *testing.T) {
	src := `{{ var|default:"a`
	ctx := completion.Classify(src, len(src))
	assert.Equal(t, completion.None, ctx.Kind)
}

func TestBuildSnippetOrdersAsVarLast(t *testing.T) {
	rule := &rulespec.TagRule{
		SupportsAsVar: true,
		ExtractedArgs: []rulespec.ExtractedArg{
			{Name: "mode", Kind: rulespec.AKChoice, Choices: []string{"a", "b"}},
			{Name: "count", Kind: rulespec.AKVariable},
			{Name: "strict", Kind: rulespec.AKKeyword},
		},
	}
	snippet := completion.BuildSnippet("mytag", rule)
	assert.Equal(t, "mytag ${1:count} ${2:strict} ${3|a,b|} as ${4:varname}", snippet)
}

func TestBuildSnippetKeepsDeclarationOrderWithoutAsVar(t *testing.T) {
	rule := &rulespec.TagRule{
		ExtractedArgs: []rulespec.ExtractedArg{
			{Name: "mode", Kind: rulespec.AKChoice, Choices: []string{"a", "b"}},
			{Name: "count", Kind: rulespec.AKVariable},
		},
	}
	snippet := completion.BuildSnippet("mytag", rule)
	assert.Equal(t, "mytag ${1|a,b|} ${2:count}", snippet)
}

func TestPlanTagNameOffersAvailableAndAlmostAvailable(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{
		Builtins: []string{"django.template.defaulttags"},
		Libraries: map[string]string{
			"mylib": "app.templatetags.mylib",
		},
		Symbols: []inventory.InspectorSymbol{
			{Kind: kindPtr(inventory.SymTag), Name: "if", Module: "django.template.defaulttags"},
			{Kind: kindPtr(inventory.SymTag), Name: "ifchanged", LoadName: strPtr("mylib"), LibraryModule: "app.templatetags.mylib"},
		},
	})
	tracker := loadscope.New(nil)
	items := completion.Plan("{% if", 5, inv, tracker, nil)
	require.NotEmpty(t, items)
	var gotIf, gotIfchanged bool
	for _, it := range items {
		if it.Label == "if" {
			gotIf = true
			assert.False(t, it.AlmostAvailable)
		}
		if it.Label == "ifchanged" {
			gotIfchanged = true
			assert.True(t, it.AlmostAvailable)
			assert.Equal(t, "mylib", it.RequiresLoad)
		}
	}
	assert.True(t, gotIf)
	assert.True(t, gotIfchanged)
}

func TestPlanLibraryNamePrefixFilter(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{
		Libraries: map[string]string{"i18n": "django.templatetags.i18n", "l10n": "django.templatetags.l10n"},
	})
	tracker := loadscope.New(nil)
	items := completion.Plan("{% load i1", 10, inv, tracker, nil)
	require.Len(t, items, 1)
	assert.Equal(t, "i18n", items[0].Label)
}

func TestPlanTagArgumentBuildsSnippet(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{
		Builtins: []string{"django.template.defaulttags"},
		Symbols: []inventory.InspectorSymbol{
			{Kind: kindPtr(inventory.SymTag), Name: "mytag", Module: "django.template.defaulttags"},
		},
	})
	tracker := loadscope.New(nil)
	rules := map[completion.RuleKey]*rulespec.TagRule{
		{Library: "", Name: "mytag"}: {
			ExtractedArgs: []rulespec.ExtractedArg{{Name: "value", Kind: rulespec.AKVariable}},
		},
	}
	items := completion.Plan("{% mytag ", 9, inv, tracker, rules)
	require.Len(t, items, 1)
	assert.Equal(t, "mytag ${1:value}", items[0].Snippet)
}
