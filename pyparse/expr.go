package pyparse

import (
	"strconv"

	"github.com/djls-project/djls/pyast"
	"github.com/djls-project/djls/pylex"
	"github.com/djls-project/djls/span"
)

// parseExpr parses one full expression, in precedence order:
// ternary > or > and > not > comparison > additive > multiplicative >
// unary > power > postfix > atom.
func (p *parser) parseExpr() *pyast.Expr {
	e := p.parseTernary()
	return e
}

func (p *parser) parseTernary() *pyast.Expr {
	start := p.peek().Pos
	then := p.parseOr()
	if p.atKw("if") {
		p.next()
		cond := p.parseOr()
		p.expectIdent("else")
		els := p.parseTernary()
		return &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprIfExp, Cond: cond, Then: then, Else: els}
	}
	return then
}

func (p *parser) parseOr() *pyast.Expr {
	start := p.peek().Pos
	vals := []*pyast.Expr{p.parseAnd()}
	for p.atKw("or") {
		p.next()
		vals = append(vals, p.parseAnd())
	}
	if len(vals) == 1 {
		return vals[0]
	}
	return &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprBoolOp, Name: "or", Values: vals}
}

func (p *parser) parseAnd() *pyast.Expr {
	start := p.peek().Pos
	vals := []*pyast.Expr{p.parseNot()}
	for p.atKw("and") {
		p.next()
		vals = append(vals, p.parseNot())
	}
	if len(vals) == 1 {
		return vals[0]
	}
	return &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprBoolOp, Name: "and", Values: vals}
}

func (p *parser) parseNot() *pyast.Expr {
	if p.atKw("not") {
		start := p.peek().Pos
		p.next()
		x := p.parseNot()
		return &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprUnaryOp, Name: "not", X: x}
	}
	return p.parseComparison()
}

var compareOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true}

func (p *parser) parseComparison() *pyast.Expr {
	start := p.peek().Pos
	first := p.parseAdditive()
	var ops []string
	vals := []*pyast.Expr{first}
	for {
		if p.at('<') || p.at('>') {
			ops = append(ops, p.next().Value)
			vals = append(vals, p.parseAdditive())
			continue
		}
		if p.peek().Type == pylex.Op && compareOps[p.peek().Value] {
			ops = append(ops, p.next().Value)
			vals = append(vals, p.parseAdditive())
			continue
		}
		if p.atKw("in") {
			p.next()
			ops = append(ops, "in")
			vals = append(vals, p.parseAdditive())
			continue
		}
		if p.atKw("not") && p.lex.PeekAt(1).Type == pylex.Ident && p.lex.PeekAt(1).Value == "in" {
			p.next() // 'not'
			p.next() // 'in'
			ops = append(ops, "not in")
			vals = append(vals, p.parseAdditive())
			continue
		}
		if p.atKw("is") {
			p.next()
			op := "is"
			if p.atKw("not") {
				p.next()
				op = "is not"
			}
			ops = append(ops, op)
			vals = append(vals, p.parseAdditive())
			continue
		}
		break
	}
	if len(ops) == 0 {
		return first
	}
	return &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprCompare, Values: vals, Ops: ops}
}

func (p *parser) parseAdditive() *pyast.Expr {
	start := p.peek().Pos
	x := p.parseMultiplicative()
	for p.at('+') || p.at('-') {
		op := p.next().Value
		y := p.parseMultiplicative()
		x = &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprBinOp, Name: op, X: x, Y: y}
	}
	return x
}

func (p *parser) parseMultiplicative() *pyast.Expr {
	start := p.peek().Pos
	x := p.parseUnary()
	for p.at('%') || p.at('/') || (p.at('*') && !p.isStarredContext()) {
		op := p.next().Value
		y := p.parseUnary()
		x = &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprBinOp, Name: op, X: x, Y: y}
	}
	return x
}

// isStarredContext is a syntax-only heuristic: a '*' beginning a fresh
// operand position (call arg, tuple/list element) is a splat, not
// multiplication. We only ever parse multiplicative after already having
// an X value, so a following '*' here is always a true multiply; this
// hook exists for symmetry/readability at call sites and always reports
// false (splat '*' is instead handled in parseAtom's caller contexts).
func (p *parser) isStarredContext() bool { return false }

func (p *parser) parseUnary() *pyast.Expr {
	if p.at('-') {
		start := p.peek().Pos
		p.next()
		x := p.parseUnary()
		return &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprUnaryOp, Name: "-", X: x}
	}
	if p.at('*') {
		start := p.peek().Pos
		p.next()
		x := p.parseUnary()
		return &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprStarred, X: x}
	}
	return p.parsePower()
}

func (p *parser) parsePower() *pyast.Expr {
	start := p.peek().Pos
	x := p.parsePostfix(p.parseAtom())
	if p.peek().Type == pylex.Op && p.peek().Value == "**" {
		p.next()
		y := p.parseUnary()
		return &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprBinOp, Name: "**", X: x, Y: y}
	}
	return x
}

// parseBinaryFrom resumes the additive (`+`/`-`) chain from an
// already-parsed base (used only by continueExprFromTarget's fallback);
// comparison and boolean operators are not consumed here.
func (p *parser) parseBinaryFrom(base *pyast.Expr, _ int) *pyast.Expr {
	start := base.Span.Start
	x := base
	for p.at('+') || p.at('-') {
		op := p.next().Value
		y := p.parseUnary()
		x = &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprBinOp, Name: op, X: x, Y: y}
	}
	return x
}

// parsePostfix handles chained `.attr`, `(call args)`, `[subscript]`.
func (p *parser) parsePostfix(x *pyast.Expr) *pyast.Expr {
	for {
		switch {
		case p.at('.'):
			start := p.peek().Pos
			p.next()
			name := p.expect(pylex.Ident).Value
			x = &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprAttr, Name: name, X: x}
		case p.at('('):
			start := p.peek().Pos
			p.next()
			call := &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprCall, Func: x}
			for !p.at(')') {
				if p.peek().Type == pylex.Ident && p.assignFollows() {
					name := p.next().Value
					p.next() // '='
					call.Keywords = append(call.Keywords, pyast.Keyword{Name: name, Value: p.parseExpr()})
				} else {
					call.Args = append(call.Args, p.parseExpr())
				}
				if p.at(',') {
					p.next()
				}
			}
			p.next() // ')'
			x = call
		case p.at('['):
			start := p.peek().Pos
			p.next()
			sub := &pyast.Expr{Span: span.New(p.path, start, 0), Kind: pyast.ExprSubscript, X: x}
			if p.at(':') {
				p.next()
				if !p.at(']') {
					sub.Hi = p.parseExpr()
				}
			} else {
				first := p.parseExpr()
				if p.at(':') {
					p.next()
					sub.Lo = first
					if !p.at(']') {
						sub.Hi = p.parseExpr()
					}
				} else {
					sub.Index = first
				}
			}
			p.expect(']')
			x = sub
		default:
			return x
		}
	}
}

// assignFollows reports whether the upcoming tokens are `ident =` (not
// `==`, which lexes as a distinct Op token), used to disambiguate call
// keyword arguments from positional expressions that happen to start with
// a name. Two-token lookahead via PeekAt avoids any need to rewind the
// lexer.
func (p *parser) assignFollows() bool {
	return p.lex.PeekAt(1).Type == '='
}

func (p *parser) parseAtom() *pyast.Expr {
	tok := p.peek()
	switch {
	case tok.Type == pylex.Int:
		p.next()
		n, _ := strconv.Atoi(tok.Value)
		return &pyast.Expr{Span: span.New(p.path, tok.Pos, len(tok.Value)), Kind: pyast.ExprConstInt, IntVal: n}
	case tok.Type == pylex.String:
		p.next()
		e := &pyast.Expr{Span: span.New(p.path, tok.Pos, len(tok.Value)+2), Kind: pyast.ExprConstStr, StrVal: tok.Value}
		// Adjacent string literal concatenation: "a" "b" -> "ab".
		for p.peek().Type == pylex.String {
			e.StrVal += p.next().Value
		}
		return e
	case tok.Type == pylex.FString:
		p.next()
		return &pyast.Expr{Span: span.New(p.path, tok.Pos, len(tok.Value)+3), Kind: pyast.ExprFString, FStringParts: parseFStringParts(tok.Value)}
	case tok.Type == pylex.Ident:
		switch tok.Value {
		case "True":
			p.next()
			return &pyast.Expr{Span: span.New(p.path, tok.Pos, 4), Kind: pyast.ExprConstBool, BoolVal: true}
		case "False":
			p.next()
			return &pyast.Expr{Span: span.New(p.path, tok.Pos, 5), Kind: pyast.ExprConstBool, BoolVal: false}
		case "None":
			p.next()
			return &pyast.Expr{Span: span.New(p.path, tok.Pos, 4), Kind: pyast.ExprConstNone}
		}
		p.next()
		return &pyast.Expr{Span: span.New(p.path, tok.Pos, len(tok.Value)), Kind: pyast.ExprName, Name: tok.Value}
	case tok.Type == '(':
		p.next()
		if p.at(')') {
			p.next()
			return &pyast.Expr{Span: span.New(p.path, tok.Pos, 0), Kind: pyast.ExprTuple}
		}
		first := p.parseExpr()
		if p.at(',') {
			vals := []*pyast.Expr{first}
			for p.at(',') {
				p.next()
				if p.at(')') {
					break
				}
				vals = append(vals, p.parseExpr())
			}
			p.expect(')')
			return &pyast.Expr{Span: span.New(p.path, tok.Pos, 0), Kind: pyast.ExprTuple, Values: vals}
		}
		p.expect(')')
		return first
	case tok.Type == '[':
		p.next()
		var vals []*pyast.Expr
		for !p.at(']') {
			vals = append(vals, p.parseExpr())
			if p.at(',') {
				p.next()
			}
		}
		p.next()
		return &pyast.Expr{Span: span.New(p.path, tok.Pos, 0), Kind: pyast.ExprList, Values: vals}
	case tok.Type == '{':
		p.next()
		d := &pyast.Expr{Span: span.New(p.path, tok.Pos, 0), Kind: pyast.ExprDict}
		for !p.at('}') {
			k := p.parseExpr()
			p.expect(':')
			v := p.parseExpr()
			d.DictKeys = append(d.DictKeys, k)
			d.DictValues = append(d.DictValues, v)
			if p.at(',') {
				p.next()
			}
		}
		p.next()
		return d
	case tok.Type == '*':
		p.next()
		x := p.parseAtom()
		return &pyast.Expr{Span: span.New(p.path, tok.Pos, 0), Kind: pyast.ExprStarred, X: p.parsePostfix(x)}
	}
	p.fail("unexpected token %s in expression", tok.String())
	return nil
}

// parseFStringParts splits raw f-string contents into literal/expression
// parts. Nested braces within the expression portion (e.g. a subscript)
// are tracked by a simple depth counter since full expression parsing of
// an f-string's embedded expression reuses this package's own parser.
func parseFStringParts(raw string) []pyast.FStringPart {
	var parts []pyast.FStringPart
	var lit []byte
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '{' && i+1 < len(raw) && raw[i+1] == '{' {
			lit = append(lit, '{')
			i += 2
			continue
		}
		if c == '{' {
			if len(lit) > 0 {
				parts = append(parts, pyast.FStringPart{Literal: string(lit)})
				lit = nil
			}
			depth := 1
			j := i + 1
			for j < len(raw) && depth > 0 {
				if raw[j] == '{' {
					depth++
				} else if raw[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			inner := raw[i+1 : j]
			if mod, err := Parse("<fstring>", inner+"\n"); err == nil && len(mod.Statements) > 0 && mod.Statements[0].ExprStmt != nil {
				parts = append(parts, pyast.FStringPart{Expr: mod.Statements[0].ExprStmt})
			} else {
				parts = append(parts, pyast.FStringPart{Expr: &pyast.Expr{Kind: pyast.ExprName, Name: inner}})
			}
			i = j + 1
			continue
		}
		lit = append(lit, c)
		i++
	}
	if len(lit) > 0 {
		parts = append(parts, pyast.FStringPart{Literal: string(lit)})
	}
	return parts
}
