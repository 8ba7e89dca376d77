package pyinterp

import (
	"github.com/djls-project/djls/pyast"
	"github.com/djls-project/djls/rulespec"
)

// extractFromCond inspects cond and adds any constraints it can express to
// findings. negate is true when cond describes the INVALID case (an
// `if cond: raise ...` guard, spec.md §4.C) and false when cond describes
// the condition that must hold (an `assert cond`). keepLength controls
// whether argument-count constraints are recorded: spec.md §4.C's boolean
// composition rule keeps keyword/choice constraints from both sides of an
// `and` but drops length constraints, since a length bound alone is not
// sufficient to err when it's one conjunct of several.
func extractFromCond(cond *pyast.Expr, negate bool, findings *Findings, env map[string]Value) {
	extractFromCondKeepLength(cond, negate, true, findings, env)
}

func extractFromCondKeepLength(cond *pyast.Expr, negate, keepLength bool, findings *Findings, env map[string]Value) {
	if cond == nil {
		return
	}
	switch cond.Kind {
	case pyast.ExprUnaryOp:
		if cond.Name == "not" {
			extractFromCondKeepLength(cond.X, !negate, keepLength, findings, env)
		}
	case pyast.ExprBoolOp:
		// cond is the raw (un-negated) textual condition; "and"/"or" here
		// refer to its own operator, not to whether it's currently being
		// read as the invalid or valid case.
		keepLen := keepLength && cond.Name != "and"
		for _, v := range cond.Values {
			extractFromCondKeepLength(v, negate, keepLen, findings, env)
		}
	case pyast.ExprCompare:
		extractFromCompare(cond, negate, keepLength, findings, env)
	}
}

func extractFromCompare(cond *pyast.Expr, negate, keepLength bool, findings *Findings, env map[string]Value) {
	if len(cond.Values) == 3 && len(cond.Ops) == 2 && cond.Ops[0] == "<=" && cond.Ops[1] == "<=" {
		// `lo <= len(x) <= hi`.
		extractFromCompare(&pyast.Expr{Kind: pyast.ExprCompare, Values: cond.Values[0:2], Ops: cond.Ops[0:1]}, negate, keepLength, findings, env)
		extractFromCompare(&pyast.Expr{Kind: pyast.ExprCompare, Values: cond.Values[1:3], Ops: cond.Ops[1:2]}, negate, keepLength, findings, env)
		return
	}
	if len(cond.Values) != 2 || len(cond.Ops) != 1 {
		return
	}
	left := evalExpr(cond.Values[0], env)
	right := evalExpr(cond.Values[1], env)
	op := cond.Ops[0]
	if negate {
		op = negateOp(op)
	}

	switch {
	case left.Kind == VSplitLength && isIntLiteral(cond.Values[1]):
		if keepLength {
			addLengthConstraint(findings, left, op, right.Int)
		}
	case right.Kind == VSplitLength && isIntLiteral(cond.Values[0]):
		if keepLength {
			addLengthConstraint(findings, right, flipOp(op), left.Int)
		}
	case left.Kind == VSplitLength:
		if keepLength {
			addLengthSetConstraint(findings, left, op, cond.Values[1])
		}
	case left.Kind == VSplitElement:
		addElementConstraint(findings, left, op, cond.Values[1])
	case right.Kind == VSplitElement:
		addElementConstraint(findings, right, flipOp(op), cond.Values[0])
	}
}

func isIntLiteral(e *pyast.Expr) bool { return e != nil && e.Kind == pyast.ExprConstInt }

func addLengthConstraint(findings *Findings, v Value, op string, n int) {
	if (op == ">=" || op == "<") && n == 0 {
		// `len(x) >= 0` is always true (a split result can't have negative
		// length) and contributes no constraint, whether it is read as the
		// valid case or, negated to `< 0`, as a raise guard's invalid case.
		return
	}
	adj := v.adjustedN(n)
	switch op {
	case "<":
		findings.addArgConstraint(rulespec.ArgConstraint{Kind: rulespec.Max, N: adj - 1})
	case "<=":
		findings.addArgConstraint(rulespec.ArgConstraint{Kind: rulespec.Max, N: adj})
	case ">":
		findings.addArgConstraint(rulespec.ArgConstraint{Kind: rulespec.Min, N: adj + 1})
	case ">=":
		findings.addArgConstraint(rulespec.ArgConstraint{Kind: rulespec.Min, N: adj})
	case "==":
		findings.addArgConstraint(rulespec.ArgConstraint{Kind: rulespec.Exact, N: adj})
	}
	// "!=" carries no usable single-sided constraint and is dropped.
}

// addLengthSetConstraint handles `len(x) not in (a, b, c)` / `len(x) in (...)`.
func addLengthSetConstraint(findings *Findings, v Value, op string, other *pyast.Expr) {
	if op != "in" {
		return
	}
	ints, ok := intLiteralList(other)
	if !ok {
		return
	}
	set := make([]int, len(ints))
	for i, n := range ints {
		set[i] = v.adjustedN(n)
	}
	findings.addArgConstraint(rulespec.ArgConstraint{Kind: rulespec.OneOf, Set: set})
}

func addElementConstraint(findings *Findings, v Value, op string, other *pyast.Expr) {
	pos, ok := v.PositionRef()
	if !ok {
		return
	}
	switch op {
	case "==":
		if s, ok := stringLiteral(other); ok {
			findings.addRequiredKeyword(pos, s)
		}
	case "in":
		if ss, ok := stringLiteralList(other); ok {
			findings.addChoiceAt(pos, ss)
		}
	}
	// "!=" and "not in" describe what's excluded, not what's required; a
	// single comparison can't express that as a positive constraint.
}

func intLiteralList(e *pyast.Expr) ([]int, bool) {
	if e == nil || (e.Kind != pyast.ExprTuple && e.Kind != pyast.ExprList) {
		return nil, false
	}
	out := make([]int, 0, len(e.Values))
	for _, v := range e.Values {
		if !isIntLiteral(v) {
			return nil, false
		}
		out = append(out, v.IntVal)
	}
	return out, true
}

func negateOp(op string) string {
	switch op {
	case "<":
		return ">="
	case "<=":
		return ">"
	case ">":
		return "<="
	case ">=":
		return "<"
	case "==":
		return "!="
	case "!=":
		return "=="
	case "in":
		return "not in"
	case "not in":
		return "in"
	}
	return op
}

func flipOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op
}
