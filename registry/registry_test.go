package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/pyparse"
	"github.com/djls-project/djls/registry"
)

func TestDecoratorFormUsesFunctionName(t *testing.T) {
	mod, err := pyparse.Parse("t.py", `
@register.tag
def do_cycle(parser, token):
    pass
`)
	require.NoError(t, err)
	regs := registry.Scan(mod)
	require.Len(t, regs, 1)
	assert.Equal(t, "do_cycle", regs[0].Name)
	assert.Equal(t, registry.Tag, regs[0].Kind)
	require.NotNil(t, regs[0].Func)
}

func TestDecoratorFormExplicitName(t *testing.T) {
	mod, err := pyparse.Parse("t.py", `
@register.filter(name="upper_first")
def do_upper(value):
    pass
`)
	require.NoError(t, err)
	regs := registry.Scan(mod)
	require.Len(t, regs, 1)
	assert.Equal(t, "upper_first", regs[0].Name)
	assert.Equal(t, registry.Filter, regs[0].Kind)
}

func TestCallStyleFormWithTwoPositionalArgs(t *testing.T) {
	mod, err := pyparse.Parse("t.py", `
def do_thing(parser, token):
    pass
register.tag("thing", do_thing)
`)
	require.NoError(t, err)
	regs := registry.Scan(mod)
	require.Len(t, regs, 1)
	assert.Equal(t, "thing", regs[0].Name)
	assert.Equal(t, "do_thing", regs[0].FuncName)
	require.NotNil(t, regs[0].Func)
}

func TestTakesContextFlag(t *testing.T) {
	mod, err := pyparse.Parse("t.py", `
@register.simple_tag(takes_context=True)
def do_ctx(context, value):
    pass
`)
	require.NoError(t, err)
	regs := registry.Scan(mod)
	require.Len(t, regs, 1)
	assert.True(t, regs[0].TakesContext)
}
