// Package completion is the completion planner (spec.md §4.K): given a
// cursor offset into an open document, it classifies the surrounding
// syntax into one of a small set of contexts and plans the suggestions
// available there, consulting the library inventory (F) and load-scope
// tracker (G) the same way the validation driver (J) does.
//
// Grounded on _examples/thought-machine-please/src/utils/suggest.go's
// levenshtein-ranked suggestion list (adapted here as rank) and
// _examples/flosch-pongo2/lexer.go's quote-aware scanning (reused via
// templatenode.SplitBits/SplitUnquoted) for tokenizing an in-progress,
// possibly unclosed tag or variable.
package completion

import (
	"sort"
	"strconv"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/djls-project/djls/inventory"
	"github.com/djls-project/djls/loadscope"
	"github.com/djls-project/djls/rulespec"
	"github.com/djls-project/djls/templatenode"
)

// maxSuggestionDistance bounds how far (in edits) a name may be from the
// partial being typed before it's too unrelated to offer as "almost
// available" — chosen the same way please's own CLI suggestions are (see
// _examples/thought-machine-please/src/cli/suggest.go).
const maxSuggestionDistance = 3

// ContextKind discriminates one completion context (spec.md §4.K).
type ContextKind uint8

const (
	None ContextKind = iota
	TagName
	TagArgument
	LibraryName
	Filter
)

// Context is the classified syntactic position of the cursor.
type Context struct {
	Kind    ContextKind
	Partial string

	// TagArgument only.
	TagName  string
	Position int // 0-based index into the tag's argument bits

	// NeedsLeadingSpace: TagName only. HasCloser: TagName, TagArgument
	// and LibraryName.
	NeedsLeadingSpace bool
	HasCloser         bool
}

// Classify inspects source around cursor and returns its Context
// (spec.md §4.K). cursor is a byte offset.
func Classify(source string, cursor int) Context {
	if cursor < 0 || cursor > len(source) {
		return Context{Kind: None}
	}
	tagIdx := lastIndexBefore(source, cursor, "{%")
	varIdx := lastIndexBefore(source, cursor, "{{")

	useTag := tagIdx >= 0 && !closedBetween(source, tagIdx+2, cursor, "%}") && tagIdx >= varIdx
	useVar := !useTag && varIdx >= 0 && !closedBetween(source, varIdx+2, cursor, "}}")

	switch {
	case useTag:
		return classifyTag(source, tagIdx, cursor)
	case useVar:
		return classifyVariable(source[varIdx+2 : cursor])
	default:
		return Context{Kind: None}
	}
}

func lastIndexBefore(s string, cursor int, sub string) int {
	return strings.LastIndex(s[:cursor], sub)
}

// closedBetween reports whether closer occurs in s[from:to]. This is a
// plain substring search, not quote-aware like templatenode's findClose —
// a closer typed inside a quoted tag argument before the cursor is rare
// enough, and harmless enough (it only makes Classify fall back to None
// a beat early), not to warrant duplicating that scanner here.
func closedBetween(s string, from, to int, closer string) bool {
	if from > to {
		return false
	}
	return strings.Contains(s[from:to], closer)
}

func classifyTag(source string, tagIdx, cursor int) Context {
	inner := source[tagIdx+2 : cursor]
	if inner == "" {
		return Context{Kind: TagName, NeedsLeadingSpace: true}
	}
	endsWithSpace := isSpace(inner[len(inner)-1])
	bits := templatenode.SplitBits(inner)
	hasCloser := strings.Contains(source[cursor:], "%}") &&
		!strings.Contains(source[cursor:indexOrEnd(source, cursor, "%}")], "{%")

	switch {
	case len(bits) == 0:
		return Context{Kind: TagName, HasCloser: hasCloser}
	case len(bits) == 1 && !endsWithSpace:
		return Context{Kind: TagName, Partial: bits[0], HasCloser: hasCloser}
	case bits[0] == "load":
		partial := ""
		if !endsWithSpace {
			partial = bits[len(bits)-1]
		}
		return Context{Kind: LibraryName, Partial: partial, HasCloser: hasCloser}
	case endsWithSpace:
		return Context{Kind: TagArgument, TagName: bits[0], Position: len(bits) - 1, HasCloser: hasCloser}
	default:
		return Context{Kind: TagArgument, TagName: bits[0], Position: len(bits) - 2, Partial: bits[len(bits)-1], HasCloser: hasCloser}
	}
}

func indexOrEnd(s string, from int, sub string) int {
	if i := strings.Index(s[from:], sub); i >= 0 {
		return from + i
	}
	return len(s)
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// classifyVariable implements the "last unquoted pipe" rule (spec.md
// §4.K): a variable expression with no unquoted pipe yet offers no
// completion context (a bare variable name is an arbitrary context
// lookup, not a registered symbol — the same decision the validation
// driver makes about bare variables).
func classifyVariable(inner string) Context {
	parts := templatenode.SplitUnquoted(inner, '|')
	if len(parts) < 2 {
		return Context{Kind: None}
	}
	last := parts[len(parts)-1]
	if idx := strings.IndexByte(last, ':'); idx >= 0 {
		// Typing a filter's argument, not its name — no defined context.
		return Context{Kind: None}
	}
	return Context{Kind: Filter, Partial: strings.TrimSpace(last)}
}

// ItemKind discriminates one suggested Item.
type ItemKind uint8

const (
	ItemTag ItemKind = iota
	ItemFilter
	ItemLibrary
)

// Item is one completion suggestion.
type Item struct {
	Label string
	Kind  ItemKind

	AlmostAvailable bool   // known but not currently in scope
	RequiresLoad    string // the load-name a {% load %} would bring in

	Snippet string // TagArgument only: the tab-stop snippet text
}

// Plan runs Classify and returns the suggestions for that context
// (spec.md §4.K).
func Plan(source string, cursor int, inv *inventory.Inventory, tracker *loadscope.Tracker, rules map[RuleKey]*rulespec.TagRule) []Item {
	ctx := Classify(source, cursor)
	state := tracker.AvailableAt(cursor)
	switch ctx.Kind {
	case TagName:
		return planNames(ctx.Partial, inv, state, inventory.SymTag, ItemTag)
	case Filter:
		return planNames(ctx.Partial, inv, state, inventory.SymFilter, ItemFilter)
	case LibraryName:
		return planLibraryNames(ctx.Partial, inv)
	case TagArgument:
		return planTagArgument(ctx, inv, state, rules)
	default:
		return nil
	}
}

// RuleKey mirrors validate.RuleKey (library load-name, or "" for
// builtin, plus tag name) — duplicated rather than imported from
// validate to avoid a completion->validate package dependency neither
// package otherwise needs.
type RuleKey struct {
	Library string
	Name    string
}

// planNames builds the suggestion list for a TagName/Filter context: every
// in-scope name matching partial by prefix, followed by every known
// enabled-but-unloaded name matching partial by prefix (flagged
// AlmostAvailable, spec.md §4.K: "offer `{% load <lib> %}` when the tag
// is known but unloaded"), and — only when prefix matching found nothing
// at all — a Levenshtein "did you mean" fallback across every known name
// (rank, please's own utils.Suggest pattern: a near-miss full-name typo,
// not a short prefix, is what that distance metric is suited to catch).
func planNames(partial string, inv *inventory.Inventory, state loadscope.LoadState, kind inventory.SymbolKind, itemKind ItemKind) []Item {
	available := namesAvailable(inv, state, kind)
	availSet := map[string]bool{}
	var items []Item
	for _, n := range available {
		availSet[n] = true
		if strings.HasPrefix(n, partial) {
			items = append(items, Item{Label: n, Kind: itemKind})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })

	unloadedEnabled := map[string]string{} // name -> load name
	for _, n := range inv.AllNames(kind) {
		if availSet[n] {
			continue
		}
		for _, lib := range inv.CandidatesForSymbol(n, kind) {
			if lib.Enablement == inventory.Enabled {
				unloadedEnabled[n] = lib.LoadName
				break
			}
		}
	}
	var almost []string
	for n := range unloadedEnabled {
		if strings.HasPrefix(n, partial) {
			almost = append(almost, n)
		}
	}
	sort.Strings(almost)
	for _, n := range almost {
		items = append(items, Item{Label: n, Kind: itemKind, AlmostAvailable: true, RequiresLoad: unloadedEnabled[n]})
	}

	if partial != "" && len(items) == 0 {
		var allNames []string
		allNames = append(allNames, available...)
		for n := range unloadedEnabled {
			allNames = append(allNames, n)
		}
		for _, n := range rank(partial, allNames, maxSuggestionDistance) {
			items = append(items, Item{Label: n, Kind: itemKind, AlmostAvailable: !availSet[n], RequiresLoad: unloadedEnabled[n]})
		}
	}
	return items
}

func namesAvailable(inv *inventory.Inventory, state loadscope.LoadState, kind inventory.SymbolKind) []string {
	seen := map[string]bool{}
	var out []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range inv.BuiltinNames(kind) {
		add(n)
	}
	for loadName := range state.FullyLoaded {
		for _, lib := range inv.Candidates(loadName) {
			for _, s := range lib.Symbols {
				if s.Kind == kind {
					add(s.Name)
				}
			}
		}
	}
	for loadName, syms := range state.SelectiveImports {
		for _, name := range syms {
			for _, lib := range inv.Candidates(loadName) {
				for _, s := range lib.Symbols {
					if s.Kind == kind && s.Name == name {
						add(name)
					}
				}
			}
		}
	}
	return out
}

func planLibraryNames(partial string, inv *inventory.Inventory) []Item {
	var items []Item
	for _, n := range inv.AllLibraryNames() {
		if strings.HasPrefix(n, partial) {
			items = append(items, Item{Label: n, Kind: ItemLibrary})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

func planTagArgument(ctx Context, inv *inventory.Inventory, state loadscope.LoadState, rules map[RuleKey]*rulespec.TagRule) []Item {
	loaded := state.Providing(ctx.TagName)
	library, ok := inv.Resolve(ctx.TagName, inventory.SymTag, loaded)
	if !ok {
		return nil
	}
	rule := rules[RuleKey{Library: library, Name: ctx.TagName}]
	if rule == nil || len(rule.ExtractedArgs) == 0 {
		return nil
	}
	snippet := BuildSnippet(ctx.TagName, rule)
	return []Item{{Label: ctx.TagName, Kind: ItemTag, Snippet: snippet}}
}

// BuildSnippet builds the tab-stop expansion text for one tag's arguments
// (spec.md §4.K: "use the rule's extracted_args to build a snippet
// expanding each argument into a tab-stop, with Choice kinds producing
// an enumerated snippet placeholder").
func BuildSnippet(tagName string, rule *rulespec.TagRule) string {
	args := reorderArgs(rule.ExtractedArgs, rule.SupportsAsVar)
	var b strings.Builder
	b.WriteString(tagName)
	stop := 1
	for _, a := range args {
		b.WriteByte(' ')
		writeStop(&b, stop, a)
		stop++
	}
	if rule.SupportsAsVar {
		b.WriteString(" as ")
		b.WriteString("${")
		b.WriteString(strconv.Itoa(stop))
		b.WriteString(":varname}")
	}
	return b.String()
}

func writeStop(b *strings.Builder, stop int, a rulespec.ExtractedArg) {
	b.WriteString("${")
	b.WriteString(strconv.Itoa(stop))
	if a.Kind == rulespec.AKChoice && len(a.Choices) > 0 {
		b.WriteByte('|')
		b.WriteString(strings.Join(a.Choices, ","))
		b.WriteString("|}")
		return
	}
	b.WriteByte(':')
	label := a.Name
	if a.Kind == rulespec.AKLiteral {
		label = a.Literal
	}
	b.WriteString(label)
	b.WriteByte('}')
}

// reorderArgs implements supplemented feature 4
// (djls-ide/src/completions.rs): when the tag supports a trailing
// `as <var>`, its other arguments are ordered Variable, then Keyword,
// then Choice (stable within each group, any other kind left in place
// after them) so the synthesized as-var stop always lands last.
func reorderArgs(args []rulespec.ExtractedArg, supportsAsVar bool) []rulespec.ExtractedArg {
	if !supportsAsVar || len(args) == 0 {
		return args
	}
	out := make([]rulespec.ExtractedArg, len(args))
	copy(out, args)
	sort.SliceStable(out, func(i, j int) bool { return argGroup(out[i].Kind) < argGroup(out[j].Kind) })
	return out
}

func argGroup(k rulespec.ArgKind) int {
	switch k {
	case rulespec.AKVariable:
		return 0
	case rulespec.AKKeyword:
		return 1
	case rulespec.AKChoice:
		return 2
	default:
		return 3
	}
}

// rank is please's own utils.Suggest, adapted to this package's naming
// (_examples/thought-machine-please/src/utils/suggest.go): levenshtein
// distance against needle, ascending, dropping anything farther than
// maxDist.
func rank(needle string, haystack []string, maxDist int) []string {
	type scored struct {
		s    string
		dist int
	}
	r := []rune(needle)
	var options []scored
	for _, straw := range haystack {
		if straw == "" {
			continue
		}
		dist := levenshtein.DistanceForStrings(r, []rune(straw), levenshtein.DefaultOptions)
		if dist <= maxDist {
			options = append(options, scored{s: straw, dist: dist})
		}
	}
	sort.Slice(options, func(i, j int) bool { return options[i].dist < options[j].dist })
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.s
	}
	return out
}
