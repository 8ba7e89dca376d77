package pyinterp

import "github.com/djls-project/djls/pyast"

// evalExpr abstractly evaluates e under env. It never has side effects —
// the one operation that does (bits.pop(...)) is special-cased by the
// statement walker before it ever reaches here.
func evalExpr(e *pyast.Expr, env map[string]Value) Value {
	if e == nil {
		return Value{Kind: Unknown}
	}
	switch e.Kind {
	case pyast.ExprName:
		if v, ok := env[e.Name]; ok {
			return v
		}
		return Value{Kind: Unknown}
	case pyast.ExprConstInt:
		return Value{Kind: VInt, Int: e.IntVal}
	case pyast.ExprConstStr:
		return Value{Kind: VStr, Str: e.StrVal}
	case pyast.ExprConstBool:
		return Value{Kind: VBool, Bool: e.BoolVal}
	case pyast.ExprConstNone:
		return Value{Kind: Unknown}
	case pyast.ExprAttr:
		return Value{Kind: Unknown}
	case pyast.ExprCall:
		return evalCall(e, env)
	case pyast.ExprSubscript:
		return evalSubscript(e, env)
	case pyast.ExprTuple, pyast.ExprList:
		elems := make([]Value, len(e.Values))
		for i, v := range e.Values {
			elems[i] = evalExpr(v, env)
		}
		return Value{Kind: VTuple, Elems: elems}
	case pyast.ExprBinOp:
		// String formatting (`"%s" % x`, f-strings folded to BinOp by some
		// parsers) never participates in a constraint; treat as opaque.
		return Value{Kind: Unknown}
	default:
		return Value{Kind: Unknown}
	}
}

func evalCall(e *pyast.Expr, env map[string]Value) Value {
	if e.Func == nil {
		return Value{Kind: Unknown}
	}
	switch e.Func.Kind {
	case pyast.ExprAttr:
		recv := evalExpr(e.Func.X, env)
		switch e.Func.Name {
		case "split_contents":
			if recv.Kind == VToken {
				return Value{Kind: VSplitResult}
			}
		case "pop":
			// Mutating call; handled specially by the assignment walker.
			// Evaluated standalone (rare — return value discarded) it still
			// yields a plausible shape so nothing downstream panics.
			if recv.isSplitFamily() {
				if len(e.Args) == 1 {
					return recv.elementAt(0)
				}
				return recv.elementAt(-1)
			}
		}
		return Value{Kind: Unknown}
	case pyast.ExprName:
		switch e.Func.Name {
		case "len":
			if len(e.Args) == 1 {
				arg := evalExpr(e.Args[0], env)
				if arg.isSplitFamily() {
					return arg.length()
				}
			}
		case "int":
			return Value{Kind: VInt}
		case "str":
			return Value{Kind: VStr}
		case "token_kwargs", "parse_bits":
			// Consumes the remainder of the split into a dict/tuple the
			// interpreter does not track further.
			return Value{Kind: Unknown}
		}
		return Value{Kind: Unknown}
	default:
		return Value{Kind: Unknown}
	}
}

func evalSubscript(e *pyast.Expr, env map[string]Value) Value {
	x := evalExpr(e.X, env)
	if !x.isSplitFamily() || x.Kind == VSplitLength {
		return Value{Kind: Unknown}
	}
	if e.Index != nil {
		if e.Index.Kind == pyast.ExprConstInt {
			return x.elementAt(e.Index.IntVal)
		}
		if e.Index.Kind == pyast.ExprUnaryOp && e.Index.Name == "-" && e.Index.X != nil && e.Index.X.Kind == pyast.ExprConstInt {
			return x.elementAt(-e.Index.X.IntVal)
		}
		return Value{Kind: Unknown}
	}
	// Slice: `args[1:]`, `args[:-1]`, `args[1:-1]`.
	result := x
	if e.Lo != nil {
		if n, ok := constInt(e.Lo); ok && n >= 0 {
			result.Base += n
		} else {
			return Value{Kind: Unknown}
		}
	}
	if e.Hi != nil {
		if n, ok := constInt(e.Hi); ok && n < 0 {
			result.PopsFromEnd += -n
		} else {
			return Value{Kind: Unknown}
		}
	}
	return result
}

func constInt(e *pyast.Expr) (int, bool) {
	if e.Kind == pyast.ExprConstInt {
		return e.IntVal, true
	}
	if e.Kind == pyast.ExprUnaryOp && e.Name == "-" && e.X != nil && e.X.Kind == pyast.ExprConstInt {
		return -e.X.IntVal, true
	}
	return 0, false
}

func stringLiteral(e *pyast.Expr) (string, bool) {
	if e != nil && e.Kind == pyast.ExprConstStr {
		return e.StrVal, true
	}
	return "", false
}

func stringLiteralList(e *pyast.Expr) ([]string, bool) {
	if e == nil || (e.Kind != pyast.ExprTuple && e.Kind != pyast.ExprList) {
		return nil, false
	}
	out := make([]string, 0, len(e.Values))
	for _, v := range e.Values {
		s, ok := stringLiteral(v)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
