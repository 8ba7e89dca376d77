package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/inventory"
)

func TestFoldScanThenInspectorMarksNotEnabled(t *testing.T) {
	inv := inventory.New()
	inv.FoldScan([]inventory.ScanResult{
		{LoadName: "myapp_tags", Module: "myapp.templatetags.myapp_tags", AppModule: "myapp", SourcePath: "myapp/templatetags/myapp_tags.py"},
	})
	inv.FoldInspector(inventory.InspectorReport{Libraries: map[string]string{"static": "django.templatetags.static"}})

	assert.Nil(t, inv.EnabledLoadable("myapp_tags"))
	best := inv.BestLoadable("myapp_tags")
	require.NotNil(t, best)
	assert.Equal(t, inventory.NotEnabled, best.Enablement)
}

func TestFoldInspectorEnabledBeforeScan(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{
		Libraries: map[string]string{"myapp_tags": "myapp.templatetags.myapp_tags"},
		Symbols: []inventory.InspectorSymbol{
			{Kind: kindPtr(inventory.SymTag), Name: "render_widget", LoadName: strPtr("myapp_tags"), LibraryModule: "myapp.templatetags.myapp_tags"},
		},
	})
	lib := inv.EnabledLoadable("myapp_tags")
	require.NotNil(t, lib)
	require.Len(t, lib.Symbols, 1)
	assert.Equal(t, "render_widget", lib.Symbols[0].Name)
}

func TestResolvePrefersLoadedLibraryOverBuiltin(t *testing.T) {
	inv := inventory.New()
	inv.FoldInspector(inventory.InspectorReport{
		Libraries: map[string]string{"myapp_tags": "myapp.templatetags.myapp_tags"},
		Builtins:  []string{"django.template.defaulttags"},
		Symbols: []inventory.InspectorSymbol{
			{Kind: kindPtr(inventory.SymTag), Name: "now", LibraryModule: "django.template.defaulttags", Module: "django.template.defaulttags"},
			{Kind: kindPtr(inventory.SymTag), Name: "now", LoadName: strPtr("myapp_tags"), LibraryModule: "myapp.templatetags.myapp_tags"},
		},
	})
	lib, ok := inv.Resolve("now", inventory.SymTag, []string{"myapp_tags"})
	require.True(t, ok)
	assert.Equal(t, "myapp_tags", lib)
}

func kindPtr(k inventory.SymbolKind) *inventory.SymbolKind { return &k }
func strPtr(s string) *string                              { return &s }
