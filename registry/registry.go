// Package registry scans a parsed Python module for Django template tag
// and filter registrations (spec.md §4.D): the decorator form
// (`@register.tag`, `@register.filter(...)`) and the call-style form
// (`register.tag("name", func)`) at module scope.
//
// Grounded on _examples/thought-machine-please/src/plugin/*, which scans
// a parsed config tree for plugin registrations by walking top-level
// statements and matching a small fixed vocabulary of call shapes — the
// same "flat walk, match known shapes" approach used here, generalized
// from plugin declarations to register.* calls.
package registry

import "github.com/djls-project/djls/pyast"

// Kind discriminates a registration's template role.
type Kind uint8

const (
	Tag Kind = iota
	Filter
	SimpleTag
	InclusionTag
	SimpleBlockTag
)

// Registration is one recovered `register.*` call or decorator.
type Registration struct {
	Name         string
	Kind         Kind
	FuncName     string
	TakesContext bool
	Func         *pyast.FuncDef // resolved by looking FuncName up in the module; nil if absent
}

var decoratorKinds = map[string]Kind{
	"tag":              Tag,
	"filter":           Filter,
	"simple_tag":       SimpleTag,
	"inclusion_tag":    InclusionTag,
	"simple_block_tag": SimpleBlockTag,
}

// Scan walks mod's top-level statements and, recursively, the bodies of
// every def (class bodies included, which the parser already models as
// nested FuncDefs — spec.md §9) and returns every registration found.
// Function lookup by name covers top-level defs and their direct children.
func Scan(mod *pyast.Module) []Registration {
	funcs := indexFuncs(mod.Statements)
	var out []Registration
	scanStmts(mod.Statements, funcs, &out)
	return out
}

func indexFuncs(stmts []*pyast.Stmt) map[string]*pyast.FuncDef {
	m := map[string]*pyast.FuncDef{}
	for _, s := range stmts {
		if s.FuncDef != nil {
			m[s.FuncDef.Name] = s.FuncDef
			for _, inner := range s.FuncDef.Body {
				if inner.FuncDef != nil {
					m[inner.FuncDef.Name] = inner.FuncDef
				}
			}
		}
	}
	return m
}

func scanStmts(stmts []*pyast.Stmt, funcs map[string]*pyast.FuncDef, out *[]Registration) {
	for _, s := range stmts {
		if s.FuncDef != nil {
			for _, d := range s.Decorators {
				if r, ok := fromDecorator(d, s.FuncDef); ok {
					r.Func = funcs[r.FuncName]
					*out = append(*out, r)
				}
			}
			scanStmts(s.FuncDef.Body, funcs, out)
			continue
		}
		if s.ExprStmt != nil {
			if r, ok := fromCall(s.ExprStmt); ok {
				r.Func = funcs[r.FuncName]
				*out = append(*out, r)
			}
		}
	}
}

// fromDecorator handles `@register.tag` and `@register.tag(...)` /
// `@register.filter(name="x")` above fn.
func fromDecorator(d *pyast.Decorator, fn *pyast.FuncDef) (Registration, bool) {
	name := d.Name
	var call *pyast.Expr
	if name.Kind == pyast.ExprCall {
		call = name
		name = name.Func
	}
	if name == nil || name.Kind != pyast.ExprAttr || name.X == nil || name.X.Kind != pyast.ExprName || name.X.Name != "register" {
		return Registration{}, false
	}
	kind, ok := decoratorKinds[name.Name]
	if !ok {
		return Registration{}, false
	}
	r := Registration{Kind: kind, FuncName: fn.Name, Name: fn.Name}
	if call != nil {
		applyArgs(&r, call.Args, call.Keywords, kind == Tag || kind == Filter)
	}
	return r, true
}

// fromCall handles `register.tag("name", do_thing)` as a bare statement.
func fromCall(e *pyast.Expr) (Registration, bool) {
	if e.Kind != pyast.ExprCall || e.Func == nil || e.Func.Kind != pyast.ExprAttr {
		return Registration{}, false
	}
	recv := e.Func.X
	if recv == nil || recv.Kind != pyast.ExprName || recv.Name != "register" {
		return Registration{}, false
	}
	kind, ok := decoratorKinds[e.Func.Name]
	if !ok {
		return Registration{}, false
	}
	r := Registration{Kind: kind}
	// Positional args: first is either a literal name or the callable;
	// second (when present) is the callable.
	var nameArg, funcArg *pyast.Expr
	switch len(e.Args) {
	case 1:
		if e.Args[0].Kind == pyast.ExprConstStr {
			nameArg = e.Args[0]
		} else {
			funcArg = e.Args[0]
		}
	case 2:
		nameArg, funcArg = e.Args[0], e.Args[1]
	}
	if funcArg != nil && funcArg.Kind == pyast.ExprName {
		r.FuncName = funcArg.Name
		r.Name = funcArg.Name
	}
	if nameArg != nil && nameArg.Kind == pyast.ExprConstStr {
		r.Name = nameArg.StrVal
	}
	applyArgs(&r, nil, e.Keywords, false)
	if r.FuncName == "" {
		return Registration{}, false
	}
	return r, true
}

// applyArgs resolves priority: explicit name= kwarg > first positional
// string (tag/filter only, already reflected in r.Name by the caller for
// the decorator-call-args case) > function name (already the default).
func applyArgs(r *Registration, posArgs []*pyast.Expr, kwargs []pyast.Keyword, allowPositionalName bool) {
	if allowPositionalName && len(posArgs) > 0 && posArgs[0].Kind == pyast.ExprConstStr {
		r.Name = posArgs[0].StrVal
	}
	for _, kw := range kwargs {
		switch kw.Name {
		case "name":
			if kw.Value.Kind == pyast.ExprConstStr {
				r.Name = kw.Value.StrVal
			}
		case "takes_context":
			if kw.Value.Kind == pyast.ExprConstBool {
				r.TakesContext = kw.Value.BoolVal
			}
		}
	}
}
