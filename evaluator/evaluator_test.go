package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djls-project/djls/diagnostics"
	"github.com/djls-project/djls/evaluator"
	"github.com/djls-project/djls/rulespec"
	"github.com/djls-project/djls/span"
)

func sp() span.Span { return span.New("t.html", 0, 10) }

func TestArgCountViolationEmitsDiagnostic(t *testing.T) {
	rule := &rulespec.TagRule{
		ArgConstraints: []rulespec.ArgConstraint{{Kind: rulespec.Exact, N: 3}},
	}
	ds := evaluator.Evaluate("mytag", []string{"a"}, rule, sp())
	require.Len(t, ds, 1)
	assert.Equal(t, diagnostics.RuleViolation, ds[0].Kind)
	assert.Contains(t, ds[0].Message, "exactly 2")
}

func TestArgCountSatisfiedEmitsNothing(t *testing.T) {
	rule := &rulespec.TagRule{
		ArgConstraints: []rulespec.ArgConstraint{{Kind: rulespec.Min, N: 2}},
	}
	ds := evaluator.Evaluate("mytag", []string{"a"}, rule, sp())
	assert.Empty(t, ds)
}

func TestRequiredKeywordForwardPosition(t *testing.T) {
	rule := &rulespec.TagRule{
		RequiredKeywords: []rulespec.RequiredKeyword{
			{Position: rulespec.PositionRef{Dir: rulespec.Forward, K: 2}, Literal: "in"},
		},
	}
	// bits = ["item", "of", "list"]; forward k=2 -> bits[1] == "of", mismatch.
	ds := evaluator.Evaluate("for", []string{"item", "of", "list"}, rule, sp())
	require.Len(t, ds, 1)
	assert.Contains(t, ds[0].Message, `"in"`)
}

func TestRequiredKeywordOutOfBoundsSkipped(t *testing.T) {
	rule := &rulespec.TagRule{
		RequiredKeywords: []rulespec.RequiredKeyword{
			{Position: rulespec.PositionRef{Dir: rulespec.Forward, K: 5}, Literal: "as"},
		},
	}
	ds := evaluator.Evaluate("mytag", []string{"a"}, rule, sp())
	assert.Empty(t, ds)
}

func TestChoiceAtBackwardPositionMismatch(t *testing.T) {
	rule := &rulespec.TagRule{
		ChoiceAtList: []rulespec.ChoiceAt{
			{Position: rulespec.PositionRef{Dir: rulespec.Backward, K: 1}, Allowed: []string{"asc", "desc"}},
		},
	}
	// bits = ["field", "sideways"]; backward k=1 -> bits[len-1] = "sideways".
	ds := evaluator.Evaluate("sort", []string{"field", "sideways"}, rule, sp())
	require.Len(t, ds, 1)
	assert.Contains(t, ds[0].Message, "asc, desc")
}

func TestAsVarStrippingMatchesShorterBits(t *testing.T) {
	rule := &rulespec.TagRule{
		SupportsAsVar:  true,
		ArgConstraints: []rulespec.ArgConstraint{{Kind: rulespec.Exact, N: 2}},
	}
	withAs := evaluator.Evaluate("mytag", []string{"x", "as", "y"}, rule, sp())
	withoutAs := evaluator.Evaluate("mytag", []string{"x"}, rule, sp())
	assert.Equal(t, withoutAs, withAs)
}

func TestKnownOptionsDuplicateRejected(t *testing.T) {
	rule := &rulespec.TagRule{
		KnownOptions: &rulespec.KnownOptions{Values: []string{"reversed"}, AllowDuplicates: false},
	}
	ds := evaluator.Evaluate("mytag", []string{"reversed", "reversed"}, rule, sp())
	require.Len(t, ds, 1)
	assert.Contains(t, ds[0].Message, "more than once")
}

func TestKnownOptionsDuplicateAllowedWhenFlagSet(t *testing.T) {
	rule := &rulespec.TagRule{
		KnownOptions: &rulespec.KnownOptions{Values: []string{"reversed"}, AllowDuplicates: true},
	}
	ds := evaluator.Evaluate("mytag", []string{"reversed", "reversed"}, rule, sp())
	assert.Empty(t, ds)
}
