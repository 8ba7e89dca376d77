package pyinterp

import "github.com/djls-project/djls/rulespec"

// Findings is everything the interpreter recovered from one compile
// function body.
type Findings struct {
	ArgConstraints   []rulespec.ArgConstraint
	RequiredKeywords []rulespec.RequiredKeyword
	ChoiceAtList     []rulespec.ChoiceAt
	KnownOptions     *rulespec.KnownOptions
	SupportsAsVar    bool
}

func (f *Findings) addArgConstraint(c rulespec.ArgConstraint) {
	f.ArgConstraints = append(f.ArgConstraints, c)
}

func (f *Findings) addRequiredKeyword(pos rulespec.PositionRef, literal string) {
	if literal == "as" {
		f.SupportsAsVar = true
	}
	f.RequiredKeywords = append(f.RequiredKeywords, rulespec.RequiredKeyword{Position: pos, Literal: literal})
}

func (f *Findings) addChoiceAt(pos rulespec.PositionRef, allowed []string) {
	f.ChoiceAtList = append(f.ChoiceAtList, rulespec.ChoiceAt{Position: pos, Allowed: allowed})
}

func (f *Findings) setKnownOptions(values []string, rejectsUnknown bool) {
	if f.KnownOptions != nil {
		f.KnownOptions.Values = append(f.KnownOptions.Values, values...)
		return
	}
	f.KnownOptions = &rulespec.KnownOptions{Values: values, RejectsUnknown: rejectsUnknown, AllowDuplicates: true}
}

// PositionRef converts a VSplitElement value into original-split
// coordinates, or reports ok=false if v isn't a resolvable split element.
func (v Value) PositionRef() (rulespec.PositionRef, bool) {
	if v.Kind != VSplitElement {
		return rulespec.PositionRef{}, false
	}
	if v.Position >= 0 {
		return rulespec.PositionRef{Dir: rulespec.Forward, K: v.Base + v.Position}, true
	}
	return rulespec.PositionRef{Dir: rulespec.Backward, K: v.PopsFromEnd + (-v.Position)}, true
}

// adjustedN translates a threshold compared against v (a VSplitLength)
// into the equivalent threshold against the length of the original,
// unmutated split_contents() result.
func (v Value) adjustedN(n int) int {
	return n + v.Base + v.PopsFromEnd
}
