// Package evaluator is the rule evaluator (spec.md §4.H): given a tag
// occurrence's name, argument bits, and extracted rule, it emits zero or
// more structured diagnostics.
//
// Grounded on _examples/thought-machine-please/src/parse/asp/interpreter.go's
// "evaluate a value against a structural check, append to a result slice"
// shape, generalized from "run a build rule's pre-conditions" to "check a
// tag occurrence's bits against its extracted constraints."
package evaluator

import (
	"fmt"
	"strings"

	"github.com/djls-project/djls/diagnostics"
	"github.com/djls-project/djls/rulespec"
	"github.com/djls-project/djls/span"
)

// Evaluate checks a tag occurrence's argument bits (excluding the tag name
// itself) against rule and returns every violated constraint as a
// diagnostic (spec.md §4.H). sp is the occurrence's span, attached to every
// emitted diagnostic.
func Evaluate(tagName string, bits []string, rule *rulespec.TagRule, sp span.Span) []diagnostics.Diagnostic {
	if rule == nil {
		return nil
	}
	if rule.SupportsAsVar && len(bits) >= 2 && bits[len(bits)-2] == "as" {
		bits = bits[:len(bits)-2]
	}
	splitLength := len(bits) + 1

	var out []diagnostics.Diagnostic
	for _, c := range rule.ArgConstraints {
		if !c.Satisfies(splitLength) {
			out = append(out, diagnostics.Diagnostic{
				Kind:    diagnostics.RuleViolation,
				Span:    sp,
				Name:    tagName,
				Message: argCountMessage(tagName, c, splitLength),
			})
		}
	}
	for _, kw := range rule.RequiredKeywords {
		idx := kw.Position.Index(len(bits))
		if idx < 0 {
			continue
		}
		if bits[idx] != kw.Literal {
			out = append(out, diagnostics.Diagnostic{
				Kind:    diagnostics.RuleViolation,
				Span:    sp,
				Name:    tagName,
				Message: fmt.Sprintf("%q expected %q at argument %d, got %q", tagName, kw.Literal, idx+1, bits[idx]),
			})
		}
	}
	for _, ch := range rule.ChoiceAtList {
		idx := ch.Position.Index(len(bits))
		if idx < 0 {
			continue
		}
		if !contains(ch.Allowed, bits[idx]) {
			out = append(out, diagnostics.Diagnostic{
				Kind:    diagnostics.RuleViolation,
				Span:    sp,
				Name:    tagName,
				Message: fmt.Sprintf("%q expected one of %s at argument %d, got %q", tagName, strings.Join(ch.Allowed, ", "), idx+1, bits[idx]),
			})
		}
	}
	if rule.KnownOptions != nil && !rule.KnownOptions.AllowDuplicates {
		seen := map[string]bool{}
		known := map[string]bool{}
		for _, v := range rule.KnownOptions.Values {
			known[v] = true
		}
		for _, b := range bits {
			if !known[b] {
				continue
			}
			if seen[b] {
				out = append(out, diagnostics.Diagnostic{
					Kind:    diagnostics.RuleViolation,
					Span:    sp,
					Name:    tagName,
					Message: fmt.Sprintf("%q option %q given more than once", tagName, b),
				})
			}
			seen[b] = true
		}
	}
	return out
}

// argCountMessage spells out the constraint in argument counts (spec.md
// §4.H: "subtract 1 from the underlying count" — split_length counts the
// tag-name token, the user-facing argument count does not).
func argCountMessage(tagName string, c rulespec.ArgConstraint, splitLength int) string {
	got := splitLength - 1
	switch c.Kind {
	case rulespec.Exact:
		return fmt.Sprintf("%q expects exactly %d argument(s), got %d", tagName, c.N-1, got)
	case rulespec.Min:
		return fmt.Sprintf("%q expects at least %d argument(s), got %d", tagName, c.N-1, got)
	case rulespec.Max:
		return fmt.Sprintf("%q expects at most %d argument(s), got %d", tagName, c.N-1, got)
	case rulespec.OneOf:
		counts := make([]string, len(c.Set))
		for i, n := range c.Set {
			counts[i] = fmt.Sprintf("%d", n-1)
		}
		return fmt.Sprintf("%q expects one of %s argument(s), got %d", tagName, strings.Join(counts, "/"), got)
	default:
		return fmt.Sprintf("%q violated an argument-count rule", tagName)
	}
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
