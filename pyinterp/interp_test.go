package pyinterp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/pyinterp"
	"github.com/djls-project/djls/pyparse"
	"github.com/djls-project/djls/rulespec"
)

// runOn parses src (a module consisting of one top-level function
// definition) and runs the interpreter over its body.
func runOn(t *testing.T, src string) *pyinterp.Findings {
	t.Helper()
	mod, err := pyparse.Parse("t.py", src)
	require.NoError(t, err)
	require.Len(t, mod.Statements, 1)
	fn := mod.Statements[0].FuncDef
	require.NotNil(t, fn)
	return pyinterp.Run(fn.Params, fn.Body)
}

func TestArgCountMinFromRaiseGuard(t *testing.T) {
	src := `def do_cycle(parser, token):
    args = token.split_contents()
    if len(args) < 2:
        raise TemplateSyntaxError("cycle requires at least two arguments")
    return CycleNode(args[1:])
`
	f := runOn(t, src)
	require.Len(t, f.ArgConstraints, 1)
	assert.Equal(t, rulespec.ArgConstraint{Kind: rulespec.Min, N: 2}, f.ArgConstraints[0])
}

func TestRequiredKeywordFromPoppedElement(t *testing.T) {
	src := `def do_if(parser, token):
    bits = token.split_contents()
    tag_name = bits.pop(0)
    mode = bits.pop(0)
    if mode != "strict":
        raise TemplateSyntaxError("expected 'strict'")
`
	f := runOn(t, src)
	require.Len(t, f.RequiredKeywords, 1)
	rk := f.RequiredKeywords[0]
	assert.Equal(t, "strict", rk.Literal)
	assert.Equal(t, rulespec.Forward, rk.Position.Dir)
	assert.Equal(t, 2, rk.Position.K)
}

func TestChoiceAtFromInComparison(t *testing.T) {
	src := `def do_align(parser, token):
    bits = token.split_contents()
    if bits[1] not in ("left", "right", "center"):
        raise TemplateSyntaxError("bad alignment")
`
	f := runOn(t, src)
	require.Len(t, f.ChoiceAtList, 1)
	c := f.ChoiceAtList[0]
	assert.Equal(t, []string{"left", "right", "center"}, c.Allowed)
	assert.Equal(t, rulespec.Forward, c.Position.Dir)
	assert.Equal(t, 1, c.Position.K)
}

func TestAsVarDetection(t *testing.T) {
	src := `def do_now(parser, token):
    bits = token.split_contents()
    if len(bits) == 3:
        if bits[1] != "as":
            raise TemplateSyntaxError("expected 'as'")
`
	f := runOn(t, src)
	assert.True(t, f.SupportsAsVar)
}

func TestOptionLoopKnownOptions(t *testing.T) {
	src := `def do_paginate(parser, token):
    bits = token.split_contents()
    while bits:
        option = bits.pop(0)
        if option == "asc":
            pass
        elif option == "desc":
            pass
        else:
            raise TemplateSyntaxError("unknown option")
`
	f := runOn(t, src)
	require.NotNil(t, f.KnownOptions)
	assert.Equal(t, []string{"asc", "desc"}, f.KnownOptions.Values)
	assert.True(t, f.KnownOptions.RejectsUnknown)
}

func TestStarredDestructureTracksOffsets(t *testing.T) {
	src := `def do_with(parser, token):
    tag_name, *rest, last = token.split_contents()
    if last != "only":
        raise TemplateSyntaxError("expected 'only' at the end")
`
	f := runOn(t, src)
	require.Len(t, f.RequiredKeywords, 1)
	rk := f.RequiredKeywords[0]
	assert.Equal(t, "only", rk.Literal)
	assert.Equal(t, rulespec.Backward, rk.Position.Dir)
	assert.Equal(t, 1, rk.Position.K)
}
