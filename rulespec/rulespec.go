// Package rulespec holds the structural types spec.md §3 calls "Tag rule"
// and "Block spec" — the extractor's (4.E) output, consumed by the rule
// evaluator (4.H) and completion planner (4.K).
//
// These live in their own package (rather than inside `rules`, which
// drives extraction, or `pyinterp`, which produces the raw constraints)
// purely to break the import cycle that would otherwise exist: pyinterp
// produces values of these types, and rules imports both pyinterp and
// these types to assemble a TagRule. Grounded structurally on
// _examples/thought-machine-please/src/parse/asp/grammar.go's plain
// data-holding structs (Argument, FuncDef, etc.) with no behaviour beyond
// small accessor methods.
package rulespec

// Direction is which end of the split a PositionRef counts from.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

// PositionRef locates one element of a tag's argument bits. Forward k (k>0)
// means bits[k-1]; Backward k (k>0) means bits[len(bits)-k] (spec.md §4.H).
type PositionRef struct {
	Dir Direction
	K   int
}

// Index resolves pos against a bits slice of length n, returning -1 if out
// of bounds (spec.md: "skip silently when out of bounds").
func (pos PositionRef) Index(n int) int {
	var i int
	if pos.Dir == Forward {
		i = pos.K - 1
	} else {
		i = n - pos.K
	}
	if i < 0 || i >= n {
		return -1
	}
	return i
}

// ArgConstraintKind discriminates an argument-count constraint.
type ArgConstraintKind uint8

const (
	Exact ArgConstraintKind = iota
	Min
	Max
	OneOf
)

// ArgConstraint is one argument-count constraint on a tag's split_length
// (spec.md §3: "the tag is valid when split_length ... satisfies every
// constraint").
type ArgConstraint struct {
	Kind ArgConstraintKind
	N    int   // Exact/Min/Max
	Set  []int // OneOf
}

// Satisfies reports whether splitLength (tag-name token plus its argument
// bits) satisfies this single constraint.
func (c ArgConstraint) Satisfies(splitLength int) bool {
	switch c.Kind {
	case Exact:
		return splitLength == c.N
	case Min:
		return splitLength >= c.N
	case Max:
		return splitLength <= c.N
	case OneOf:
		for _, n := range c.Set {
			if splitLength == n {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// RequiredKeyword is a (position, literal) pair: bits[pos] must equal Literal.
type RequiredKeyword struct {
	Position PositionRef
	Literal  string
}

// ChoiceAt is a (position, allowed-strings) pair: bits[pos] must be one of Allowed.
type ChoiceAt struct {
	Position PositionRef
	Allowed  []string
}

// KnownOptions describes an option-loop's recognized vocabulary (spec.md
// §4.C "option-loop pattern").
type KnownOptions struct {
	Values          []string
	RejectsUnknown  bool
	AllowDuplicates bool
}

// ArgKind discriminates one ExtractedArg's shape, used only by the
// completion planner (4.K) to build snippets — never by the validator.
type ArgKind uint8

const (
	AKLiteral ArgKind = iota
	AKVariable
	AKKeyword
	AKChoice
	AKVarArgs
)

// ExtractedArg is one entry of a tag's ordered argument schema.
type ExtractedArg struct {
	Name     string
	Required bool
	Kind     ArgKind
	Literal  string   // AKLiteral
	Choices  []string // AKChoice
}

// BlockSpec is the shape of a block-style tag (spec.md §3).
type BlockSpec struct {
	EndTag        string // "" when EndTagDynamic
	EndTagDynamic bool   // true: end-tag computed at runtime, resolved by the "end<name>" convention
	Intermediates []string
	Opaque        bool
}

// TagRule is the extractor's output for one tag name (spec.md §3).
type TagRule struct {
	ArgConstraints   []ArgConstraint
	RequiredKeywords []RequiredKeyword
	ChoiceAtList     []ChoiceAt
	KnownOptions     *KnownOptions
	SupportsAsVar    bool
	ExtractedArgs    []ExtractedArg
	Block            *BlockSpec
}

// Empty reports whether the rule carries no usable information, in which
// case spec.md §4.E says "a tag rule is emitted only if it has at least
// one constraint, one option set, or non-empty argument schema."
func (r *TagRule) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.ArgConstraints) == 0 &&
		len(r.RequiredKeywords) == 0 &&
		len(r.ChoiceAtList) == 0 &&
		r.KnownOptions == nil &&
		len(r.ExtractedArgs) == 0 &&
		r.Block == nil
}

// FilterRule is the extractor's output for one filter name (spec.md §4.E).
type FilterRule struct {
	ExpectsArg  bool
	ArgOptional bool
}
