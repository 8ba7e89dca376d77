package configsurface_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/configsurface"
	"github.com/djls-project/djls/rulespec"
	"github.com/djls-project/djls/validate"
)

func TestParseSeverityCaseInsensitive(t *testing.T) {
	sev, ok := configsurface.ParseSeverity("WARNING")
	require.True(t, ok)
	assert.Equal(t, configsurface.SeverityWarning, sev)
}

func TestParseSeverityUnknown(t *testing.T) {
	_, ok := configsurface.ParseSeverity("critical")
	assert.False(t, ok)
}

func TestSeverityMapLastEntryWins(t *testing.T) {
	opts := configsurface.Options{Diagnostic: []string{"S108=warning", "S108=error", "S109=off"}}
	m, err := opts.SeverityMap()
	require.NoError(t, err)
	assert.Equal(t, configsurface.SeverityError, m["S108"])
	assert.Equal(t, configsurface.SeverityOff, m["S109"])
}

func TestSeverityMapRejectsMalformedEntry(t *testing.T) {
	opts := configsurface.Options{Diagnostic: []string{"S108"}}
	_, err := opts.SeverityMap()
	assert.Error(t, err)
}

func TestMergeTagSpecsLaterLayerWins(t *testing.T) {
	base := validate.RuleSet{
		Tags: map[validate.RuleKey]*rulespec.TagRule{
			{Library: "", Name: "cycle"}: {ArgConstraints: []rulespec.ArgConstraint{{Kind: rulespec.Min, N: 1}}},
		},
	}
	layerOne := []configsurface.TagSpecOverride{
		{Name: "cycle", Rule: &rulespec.TagRule{ArgConstraints: []rulespec.ArgConstraint{{Kind: rulespec.Min, N: 2}}}},
	}
	layerTwo := []configsurface.TagSpecOverride{
		{Name: "cycle", Rule: &rulespec.TagRule{ArgConstraints: []rulespec.ArgConstraint{{Kind: rulespec.Min, N: 3}}}},
	}
	merged := configsurface.MergeTagSpecs(base, layerOne, layerTwo)
	rule := merged.Tags[validate.RuleKey{Library: "", Name: "cycle"}]
	require.NotNil(t, rule)
	assert.Equal(t, 3, rule.ArgConstraints[0].N)
}

func TestMergeTagSpecsAddsNewEntryWithoutDroppingBase(t *testing.T) {
	base := validate.RuleSet{
		Tags: map[validate.RuleKey]*rulespec.TagRule{
			{Library: "", Name: "cycle"}: {SupportsAsVar: true},
		},
	}
	overrides := []configsurface.TagSpecOverride{
		{Library: "mylib", Name: "mytag", Rule: &rulespec.TagRule{SupportsAsVar: false}},
	}
	merged := configsurface.MergeTagSpecs(base, overrides)
	assert.True(t, merged.Tags[validate.RuleKey{Library: "", Name: "cycle"}].SupportsAsVar)
	require.Contains(t, merged.Tags, validate.RuleKey{Library: "mylib", Name: "mytag"})
}

func TestLoadTagSpecFileDecodesConstraints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tagspecs.json")
	content := `{
		"tags": [
			{
				"name": "cycle",
				"arg_constraints": [{"kind": "min", "n": 1}],
				"required_keywords": [{"position": {"dir": "backward", "k": 2}, "literal": "as"}],
				"supports_as_var": true
			}
		],
		"filters": [
			{"name": "truncatewords", "expects_arg": true}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tags, filters, err := configsurface.LoadTagSpecFile(path)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "cycle", tags[0].Name)
	assert.Equal(t, rulespec.Min, tags[0].Rule.ArgConstraints[0].Kind)
	assert.Equal(t, 1, tags[0].Rule.ArgConstraints[0].N)
	assert.Equal(t, rulespec.Backward, tags[0].Rule.RequiredKeywords[0].Position.Dir)
	assert.True(t, tags[0].Rule.SupportsAsVar)

	require.Len(t, filters, 1)
	assert.Equal(t, "truncatewords", filters[0].Name)
	assert.True(t, filters[0].Rule.ExpectsArg)
}

func TestLoadTagSpecFileRejectsUnknownConstraintKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tagspecs.json")
	content := `{"tags": [{"name": "cycle", "arg_constraints": [{"kind": "bogus"}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, _, err := configsurface.LoadTagSpecFile(path)
	assert.Error(t, err)
}
