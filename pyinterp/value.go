// Package pyinterp abstractly interprets the body of a Django tag/filter
// compile function (spec.md §4.C) to recover the constraints its author
// expressed as ordinary Python control flow — argument counts, required
// literal keywords, choice sets, and option vocabularies — without ever
// running the function.
//
// Grounded on _examples/thought-machine-please/src/parse/asp/interpreter.go,
// which walks asp's own small-statement-set AST with a flat
// map[string]pyObject scope and a single eval-dispatch switch; the
// abstraction-domain idea (track shapes, not concrete values) mirrors how
// that interpreter already treats some builtins opaquely (e.g. glob()
// results) rather than fully executing them.
package pyinterp

// Kind discriminates an abstract Value.
type Kind uint8

const (
	Unknown Kind = iota
	VParser
	VToken
	VInt
	VStr
	VBool
	VSplitResult  // token.split_contents() or a tuple/list built from it
	VSplitElement // one element indexed out of a VSplitResult
	VSplitLength  // len(aVSplitResult)
	VTuple
)

// Value is one abstract domain element. The domain is deliberately flat —
// branches do not join, the last write to a name wins (spec.md §4.C) — so
// Value never needs to represent a set of possibilities.
type Value struct {
	Kind Kind

	Int  int
	Str  string
	Bool bool

	// Position is the Python subscript used to select this element out of
	// its originating split (VSplitElement only). It is kept in Python's
	// own convention: >=0 counts from the front, <0 counts from the back,
	// so `bits[-1]` is stored as Position: -1 with no translation needed
	// until Value.PositionRef converts it to original-split coordinates.
	Position int

	// Base and PopsFromEnd describe how many elements have been removed
	// from the front (via bits.pop(0) or a `bits = bits[1:]` reslice) and
	// back (via bits.pop()) of the split this value descends from,
	// relative to the original token.split_contents() result. Carried on
	// VSplitResult, VSplitLength and VSplitElement alike so a constraint
	// extracted many reassignments downstream can still be expressed in
	// original-split coordinates.
	Base        int
	PopsFromEnd int

	Elems []Value // VTuple
}

func (v Value) isSplitFamily() bool {
	return v.Kind == VSplitResult || v.Kind == VSplitElement || v.Kind == VSplitLength
}

// poppedFront returns v's split family value after one bits.pop(0) / one
// element sliced off the front.
func (v Value) poppedFront() Value {
	v.Base++
	return v
}

func (v Value) poppedBack() Value {
	v.PopsFromEnd++
	return v
}

// elementAt returns the abstract value of indexing v (a VSplitResult) at
// the given Python subscript.
func (v Value) elementAt(index int) Value {
	return Value{Kind: VSplitElement, Position: index, Base: v.Base, PopsFromEnd: v.PopsFromEnd}
}

// length returns the abstract value of len(v) for a VSplitResult.
func (v Value) length() Value {
	return Value{Kind: VSplitLength, Base: v.Base, PopsFromEnd: v.PopsFromEnd}
}
