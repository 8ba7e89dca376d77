package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/diagnostics"
	"github.com/djls-project/djls/inventory"
	"github.com/djls-project/djls/rulespec"
	"github.com/djls-project/djls/validate"
)

func strPtr(s string) *string { return &s }

func kindPtr(k inventory.SymbolKind) *inventory.SymbolKind { return &k }

func builtinInventory(names ...string) *inventory.Inventory {
	inv := inventory.New()
	syms := make([]inventory.InspectorSymbol, 0, len(names))
	for _, n := range names {
		syms = append(syms, inventory.InspectorSymbol{Kind: kindPtr(inventory.SymTag), Name: n, Module: "django.template.defaulttags"})
	}
	inv.FoldInspector(inventory.InspectorReport{Builtins: []string{"django.template.defaulttags"}, Symbols: syms})
	return inv
}

func TestUnknownTagEmitsS108(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{}) // both layers known, nothing found
	inv.FoldScan(nil)
	out := validate.Validate(validate.Input{File: "t.html", Source: `{% mytag %}`, Inventory: inv})
	require.Len(t, out, 1)
	assert.Equal(t, diagnostics.UnknownTag, out[0].Kind)
	assert.Equal(t, "mytag", out[0].Name)
}

func TestUnknownTagSuppressedWhenKnowledgeMissing(t *testing.T) {
	inv := inventory.New() // neither layer has reported
	out := validate.Validate(validate.Input{File: "t.html", Source: `{% mytag %}`, Inventory: inv})
	assert.Empty(t, out)
}

func TestLoadedTagRuleViolationEmitsS114(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{
		Libraries: map[string]string{"mylib": "app.templatetags.mylib"},
		Symbols: []inventory.InspectorSymbol{
			{Kind: kindPtr(inventory.SymTag), Name: "mytag", LoadName: strPtr("mylib"), LibraryModule: "app.templatetags.mylib"},
		},
	})
	rules := validate.RuleSet{Tags: map[validate.RuleKey]*rulespec.TagRule{
		{Library: "mylib", Name: "mytag"}: {ArgConstraints: []rulespec.ArgConstraint{{Kind: rulespec.Min, N: 2}}},
	}}
	out := validate.Validate(validate.Input{File: "t.html", Source: `{% load mylib %}{% mytag %}`, Inventory: inv, Rules: rules})
	require.Len(t, out, 1)
	assert.Equal(t, diagnostics.RuleViolation, out[0].Kind)
}

func TestEnabledButUnloadedTagEmitsS109(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{
		Libraries: map[string]string{"mylib": "app.templatetags.mylib"},
		Symbols: []inventory.InspectorSymbol{
			{Kind: kindPtr(inventory.SymTag), Name: "mytag", LoadName: strPtr("mylib"), LibraryModule: "app.templatetags.mylib"},
		},
	})
	out := validate.Validate(validate.Input{File: "t.html", Source: `{% mytag %}`, Inventory: inv})
	require.Len(t, out, 1)
	assert.Equal(t, diagnostics.TagFromUnloadedLibrary, out[0].Kind)
	assert.Equal(t, []string{"mylib"}, out[0].Libraries)
}

func TestVerbatimBlockSuppressesInnerDiagnostics(t *testing.T) {
	inv := builtinInventory("verbatim", "endverbatim")
	rules := validate.RuleSet{Tags: map[validate.RuleKey]*rulespec.TagRule{
		{Library: "", Name: "verbatim"}: {Block: &rulespec.BlockSpec{EndTag: "endverbatim", Opaque: true}},
	}}
	out := validate.Validate(validate.Input{
		File:      "t.html",
		Source:    `{% verbatim %}{% unknowntag %}{% endverbatim %}`,
		Inventory: inv,
		Rules:     rules,
	})
	assert.Empty(t, out)
}

// Spec seed 8: a {% load %} before {% extends %} still counts as a
// meaningful node — {% extends %} must be the literal first tag in the
// file, matching original_source's tag_before_extends_s122 test on this
// same input.
func TestExtendsAfterLoadEmitsS122(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{
		Builtins:  []string{"django.template.defaulttags"},
		Libraries: map[string]string{"i18n": "django.templatetags.i18n"},
		Symbols:   []inventory.InspectorSymbol{{Kind: kindPtr(inventory.SymTag), Name: "extends", Module: "django.template.defaulttags"}},
	})
	out := validate.Validate(validate.Input{
		File:      "t.html",
		Source:    `{% load i18n %}{% extends "base.html" %}`,
		Inventory: inv,
	})
	require.Len(t, out, 1)
	assert.Equal(t, diagnostics.ExtendsNotFirst, out[0].Kind)
}

func TestSecondExtendsEmitsS123(t *testing.T) {
	inv := builtinInventory("extends")
	out := validate.Validate(validate.Input{
		File:      "t.html",
		Source:    `{% extends "a.html" %}{% extends "b.html" %}`,
		Inventory: inv,
	})
	var kinds []diagnostics.Kind
	for _, d := range out {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, diagnostics.ExtendsMultiple)
	assert.Contains(t, kinds, diagnostics.ExtendsNotFirst)
}

func TestScannedNotEnabledTagEmitsS118WithAppLabel(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{})
	inv.FoldScan([]inventory.ScanResult{
		{
			LoadName:  "mylib",
			Module:    "app.templatetags.mylib",
			AppModule: "myproject.blog",
			Symbols:   []inventory.Symbol{{Name: "mytag", Kind: inventory.SymTag}},
		},
	})
	out := validate.Validate(validate.Input{File: "t.html", Source: `{% mytag %}`, Inventory: inv})
	require.Len(t, out, 1)
	assert.Equal(t, diagnostics.TagNotInInstalledApps, out[0].Kind)
	assert.Equal(t, "myproject.blog", out[0].AppModule)
	assert.Equal(t, []string{"blog"}, out[0].AppLabels)
}

func TestLoadOfUnknownLibraryEmitsS120(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{})
	out := validate.Validate(validate.Input{File: "t.html", Source: `{% load nosuchlib %}`, Inventory: inv})
	require.Len(t, out, 1)
	assert.Equal(t, diagnostics.LoadUnknownLibrary, out[0].Kind)
	assert.Equal(t, "nosuchlib", out[0].Name)
}
