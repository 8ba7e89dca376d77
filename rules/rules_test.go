package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/pyparse"
	"github.com/djls-project/djls/registry"
	"github.com/djls-project/djls/rules"
	"github.com/djls-project/djls/rulespec"
)

func scan(t *testing.T, src string) []registry.Registration {
	t.Helper()
	mod, err := pyparse.Parse("t.py", src)
	require.NoError(t, err)
	return registry.Scan(mod)
}

func TestExtractFilterDetectsOptionalArg(t *testing.T) {
	regs := scan(t, `
@register.filter
def truncate(value, length=30):
    pass
`)
	require.Len(t, regs, 1)
	fr := rules.ExtractFilter(regs[0])
	require.NotNil(t, fr)
	assert.True(t, fr.ExpectsArg)
	assert.True(t, fr.ArgOptional)
}

func TestExtractSimpleTagArgs(t *testing.T) {
	regs := scan(t, `
@register.simple_tag(takes_context=True)
def greet(context, name, *, loud=False):
    pass
`)
	require.Len(t, regs, 1)
	tr := rules.ExtractSimpleOrInclusionTag(regs[0])
	require.NotNil(t, tr)
	require.Len(t, tr.ExtractedArgs, 2)
	assert.Equal(t, "name", tr.ExtractedArgs[0].Name)
	assert.Equal(t, rulespec.AKVariable, tr.ExtractedArgs[0].Kind)
	assert.Equal(t, "loud", tr.ExtractedArgs[1].Name)
	assert.Equal(t, rulespec.AKKeyword, tr.ExtractedArgs[1].Kind)
}

func TestExtractTagWithBlockSpec(t *testing.T) {
	regs := scan(t, `
@register.tag
def do_if(parser, token):
    bits = token.split_contents()
    if len(bits) < 2:
        raise TemplateSyntaxError("if requires a condition")
    nodelist = parser.parse(("elif", "else", "endif"))
    return IfNode(nodelist)
`)
	require.Len(t, regs, 1)
	tr := rules.ExtractTag(regs[0])
	require.NotNil(t, tr)
	require.Len(t, tr.ArgConstraints, 1)
	assert.Equal(t, rulespec.ArgConstraint{Kind: rulespec.Min, N: 2}, tr.ArgConstraints[0])
	require.NotNil(t, tr.Block)
	assert.Equal(t, "endif", tr.Block.EndTag)
	assert.ElementsMatch(t, []string{"elif", "else"}, tr.Block.Intermediates)
}

func TestExtractTagOpaqueBlock(t *testing.T) {
	regs := scan(t, `
@register.tag
def do_verbatim(parser, token):
    parser.skip_past("endverbatim")
    return VerbatimNode()
`)
	require.Len(t, regs, 1)
	tr := rules.ExtractTag(regs[0])
	require.NotNil(t, tr)
	require.NotNil(t, tr.Block)
	assert.True(t, tr.Block.Opaque)
	assert.Equal(t, "endverbatim", tr.Block.EndTag)
}
