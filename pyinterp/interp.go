package pyinterp

import (
	"strings"

	"github.com/djls-project/djls/pyast"
)

// Run abstractly interprets a compile function's body and returns what it
// could recover. params seeds the initial environment: a parameter whose
// name contains "parser" is bound VParser, otherwise one whose name
// contains "token" is bound VToken (covering the conventional Django
// `def do_x(parser, token):` signature), everything else starts Unknown.
func Run(params []pyast.Param, body []*pyast.Stmt) *Findings {
	env := map[string]Value{}
	for _, p := range params {
		switch {
		case strings.Contains(p.Name, "parser"):
			env[p.Name] = Value{Kind: VParser}
		case strings.Contains(p.Name, "token"):
			env[p.Name] = Value{Kind: VToken}
		default:
			env[p.Name] = Value{Kind: Unknown}
		}
	}
	findings := &Findings{}
	walkStmts(body, env, findings)
	return findings
}

// walkStmts interprets stmts against the shared env. Branches of
// conditionals are walked against the SAME env map rather than forked
// copies: the domain is flat (spec.md §4.C), so there is no join to
// perform and the simplest sound approximation is "the last assignment
// textually wins," which is what sharing the map gives for free.
func walkStmts(stmts []*pyast.Stmt, env map[string]Value, f *Findings) {
	for _, s := range stmts {
		walkStmt(s, env, f)
	}
}

func walkStmt(s *pyast.Stmt, env map[string]Value, f *Findings) {
	switch {
	case s.Assign != nil:
		walkAssign(s.Assign, env, f)
	case s.If != nil:
		walkIf(s.If, env, f)
	case s.For != nil:
		for _, n := range s.For.Names {
			env[n] = Value{Kind: Unknown}
		}
		walkStmts(s.For.Body, env, f)
	case s.While != nil:
		if !tryOptionLoop(s.While, env, f) {
			walkStmts(s.While.Body, env, f)
		}
	case s.Try != nil:
		walkStmts(s.Try.Body, env, f)
		for _, h := range s.Try.Handlers {
			if h.Name != "" {
				env[h.Name] = Value{Kind: Unknown}
			}
			walkStmts(h.Body, env, f)
		}
		walkStmts(s.Try.Finally, env, f)
	case s.With != nil:
		for _, item := range s.With.Items {
			if item.As != "" {
				env[item.As] = Value{Kind: Unknown}
			}
		}
		walkStmts(s.With.Body, env, f)
	case s.Match != nil:
		walkMatch(s.Match, env, f)
	case s.Assert != nil:
		extractFromCond(s.Assert.Cond, false, f, env)
	}
}

func walkAssign(a *pyast.Assign, env map[string]Value, f *Findings) {
	value := evalAssignValue(a.Value, env)
	if len(a.Targets) == 1 {
		assignTarget(a.Targets[0], value, env)
		return
	}
	assignDestructure(a.Targets, value, env)
}

// evalAssignValue is evalExpr plus the one stateful special case:
// `x = recv.pop(0)` / `x = recv.pop()`, which both reads an element out of
// recv and mutates recv's tracked Base/PopsFromEnd in env.
func evalAssignValue(e *pyast.Expr, env map[string]Value) Value {
	if e == nil || e.Kind != pyast.ExprCall || e.Func == nil || e.Func.Kind != pyast.ExprAttr || e.Func.Name != "pop" {
		return evalExpr(e, env)
	}
	recvName := e.Func.X
	if recvName == nil || recvName.Kind != pyast.ExprName {
		return evalExpr(e, env)
	}
	recv, ok := env[recvName.Name]
	if !ok || !recv.isSplitFamily() {
		return evalExpr(e, env)
	}
	if len(e.Args) == 1 {
		result := recv.elementAt(0)
		env[recvName.Name] = recv.poppedFront()
		return result
	}
	result := recv.elementAt(-1)
	env[recvName.Name] = recv.poppedBack()
	return result
}

func assignTarget(t *pyast.Target, value Value, env map[string]Value) {
	switch {
	case t.Name != "":
		env[t.Name] = value
	case t.Starred != nil:
		assignTarget(t.Starred, value, env)
	case len(t.Tuple) > 0:
		assignDestructure(t.Tuple, value, env)
	}
}

// assignDestructure handles `a, b = ...`, `a, *rest = ...`, `a, *rest, z = ...`.
func assignDestructure(targets []*pyast.Target, value Value, env map[string]Value) {
	starIdx := -1
	for i, t := range targets {
		if t.Starred != nil {
			starIdx = i
			break
		}
	}
	if !value.isSplitFamily() || value.Kind == VSplitLength {
		for _, t := range targets {
			assignTarget(t, Value{Kind: Unknown}, env)
		}
		return
	}
	if starIdx < 0 {
		for i, t := range targets {
			assignTarget(t, value.elementAt(i), env)
		}
		return
	}
	for i := 0; i < starIdx; i++ {
		assignTarget(targets[i], value.elementAt(i), env)
	}
	after := len(targets) - starIdx - 1
	rest := Value{Kind: VSplitResult, Base: value.Base + starIdx, PopsFromEnd: value.PopsFromEnd + after}
	assignTarget(targets[starIdx].Starred, rest, env)
	for i := 0; i < after; i++ {
		assignTarget(targets[starIdx+1+i], value.elementAt(-(after - i)), env)
	}
}

func walkIf(s *pyast.If, env map[string]Value, f *Findings) {
	applyBranch(s.Cond, s.Body, env, f)
	for _, e := range s.Elifs {
		applyBranch(e.Cond, e.Body, env, f)
	}
	walkStmts(s.OrElse, env, f)
}

// applyBranch walks one `if`/`elif` arm and, when the arm unconditionally
// raises, records the negated guard as a constraint on the function's
// valid inputs (spec.md §4.C: "if/elif/else constraint extraction").
func applyBranch(cond *pyast.Expr, body []*pyast.Stmt, env map[string]Value, f *Findings) {
	if alwaysRaises(body) {
		extractFromCond(cond, true, f, env)
	}
	walkStmts(body, env, f)
}

func alwaysRaises(body []*pyast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	last := body[len(body)-1]
	if last.Raise != nil {
		return true
	}
	if last.If != nil && len(last.If.OrElse) > 0 {
		if !alwaysRaises(last.If.Body) {
			return false
		}
		for _, e := range last.If.Elifs {
			if !alwaysRaises(e.Body) {
				return false
			}
		}
		return alwaysRaises(last.If.OrElse)
	}
	return false
}

func walkMatch(m *pyast.Match, env map[string]Value, f *Findings) {
	subj := evalExpr(m.Subject, env)
	pos, havePos := subj.PositionRef()

	var values []string
	rejectsUnknown := false
	for _, c := range m.Cases {
		if c.Pattern.Wildcard {
			rejectsUnknown = alwaysRaises(c.Body)
		}
		if c.Pattern.Literal != nil {
			if s, ok := stringLiteral(c.Pattern.Literal); ok {
				values = append(values, s)
			}
		}
		walkStmts(c.Body, env, f)
	}
	if havePos && len(values) > 0 {
		if len(values) == 1 {
			f.addRequiredKeyword(pos, values[0])
		} else {
			f.addChoiceAt(pos, values)
		}
	} else if len(values) > 0 {
		f.setKnownOptions(values, rejectsUnknown)
	}
}

// tryOptionLoop recognizes spec.md §4.C's "option-loop pattern":
//
//	while bits:
//	    option = bits.pop(0)
//	    if option == "a": ...
//	    elif option == "b": ...
//	    else: raise TemplateSyntaxError(...)
//
// and records the literal set as KnownOptions instead of walking the loop
// as ordinary control flow (the ordinary walk would instead emit stray
// RequiredKeyword findings for an identifier that is never a fixed
// position, since it moves one split element per iteration).
func tryOptionLoop(w *pyast.While, env map[string]Value, f *Findings) bool {
	if w.Cond.Kind != pyast.ExprName || !env[w.Cond.Name].isSplitFamily() {
		return false
	}
	if len(w.Body) == 0 || w.Body[0].Assign == nil || len(w.Body[0].Assign.Targets) != 1 {
		return false
	}
	optName := w.Body[0].Assign.Targets[0].Name
	if optName == "" {
		return false
	}
	popValue := evalAssignValue(w.Body[0].Assign.Value, env)
	if popValue.Kind != VSplitElement {
		return false
	}
	env[optName] = popValue
	if len(w.Body) < 2 || w.Body[1].If == nil {
		return false
	}
	values, rejectsUnknown, ok := collectOptionIf(w.Body[1].If, optName)
	if !ok {
		return false
	}
	f.setKnownOptions(values, rejectsUnknown)
	for _, s := range w.Body[2:] {
		walkStmt(s, env, f)
	}
	return true
}

func collectOptionIf(s *pyast.If, optName string) ([]string, bool, bool) {
	var values []string
	lit, ok := optionLiteral(s.Cond, optName)
	if !ok {
		return nil, false, false
	}
	values = append(values, lit)
	for _, e := range s.Elifs {
		lit, ok := optionLiteral(e.Cond, optName)
		if !ok {
			return nil, false, false
		}
		values = append(values, lit)
	}
	rejectsUnknown := len(s.OrElse) > 0 && alwaysRaises(s.OrElse)
	return values, rejectsUnknown, true
}

func optionLiteral(cond *pyast.Expr, optName string) (string, bool) {
	if cond.Kind != pyast.ExprCompare || len(cond.Values) != 2 || len(cond.Ops) != 1 || cond.Ops[0] != "==" {
		return "", false
	}
	name, lit := cond.Values[0], cond.Values[1]
	if name.Kind != pyast.ExprName || name.Name != optName {
		name, lit = lit, name
		if name.Kind != pyast.ExprName || name.Name != optName {
			return "", false
		}
	}
	return stringLiteral(lit)
}
