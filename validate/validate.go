// Package validate is the validation driver (spec.md §4.J): given a
// template's scanned node list plus the project's rule set, load-scope,
// and library inventory, it walks the nodes once and emits the S1xx
// diagnostics.
//
// Grounded on _examples/thought-machine-please/src/parse/asp/interpreter.go's
// single statement-list walk dispatching on node shape and accumulating
// side effects (there: executed build-rule calls; here: diagnostics),
// plus _examples/flosch-pongo2's own node-list-with-block-matching model
// for tracking which opener a closer/intermediate tag belongs to.
package validate

import (
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/djls-project/djls/diagnostics"
	"github.com/djls-project/djls/evaluator"
	"github.com/djls-project/djls/inventory"
	"github.com/djls-project/djls/loadscope"
	"github.com/djls-project/djls/rulespec"
	"github.com/djls-project/djls/span"
	"github.com/djls-project/djls/templatenode"
)

// RuleKey identifies one extracted rule: Library is the providing
// library's load-name, or "" for a builtin (spec.md §3: "the triple
// (registration-module, name, kind)" collapsed, post-resolution, to
// "which library, if any, provides this name").
type RuleKey struct {
	Library string
	Name    string
}

// RuleSet is the project-wide extracted rule table, assembled (by
// whatever wires rules + inventory together) from every scanned Python
// module's registrations.
type RuleSet struct {
	Tags    map[RuleKey]*rulespec.TagRule
	Filters map[RuleKey]*rulespec.FilterRule
}

// Input is everything one template's validation run needs.
type Input struct {
	File      string
	Source    string
	Inventory *inventory.Inventory
	Rules     RuleSet
}

// Validate runs the driver described in spec.md §4.J and returns every
// diagnostic found, in node-visit order (consumers must not rely on
// that order; deduplication is the accumulator's job, not this
// function's — see query.Accumulator).
func Validate(in Input) []diagnostics.Diagnostic {
	nodes := templatenode.Scan(in.File, in.Source)
	if len(nodes) == 0 {
		return nil
	}

	tracker := loadscope.New(loadOccurrences(nodes))
	opaque, skip := walkBlocks(nodes, in.Rules, in.Inventory)
	sort.Slice(opaque, func(i, j int) bool { return opaque[i].Start < opaque[j].Start })

	var out []diagnostics.Diagnostic
	extendsSeen := 0
	meaningfulSeen := false

	for _, n := range nodes {
		switch n.Kind {
		case templatenode.Tag:
			if isOpaque(opaque, n.Span.Start) {
				continue
			}
			if skip[n.Span.Start] {
				continue
			}
			if n.TagName == "load" {
				meaningfulSeen = true
				out = append(out, validateLoadTag(n, in.Inventory)...)
				continue
			}
			if n.TagName == "extends" {
				if meaningfulSeen {
					out = append(out, diagnostics.Diagnostic{Kind: diagnostics.ExtendsNotFirst, Span: n.Span, Name: "extends"})
				}
				extendsSeen++
				if extendsSeen > 1 {
					out = append(out, diagnostics.Diagnostic{Kind: diagnostics.ExtendsMultiple, Span: n.Span, Name: "extends"})
				}
			}
			meaningfulSeen = true
			out = append(out, validateTagOccurrence(n, tracker, in.Inventory, in.Rules)...)
		case templatenode.Variable:
			if isOpaque(opaque, n.Span.Start) {
				continue
			}
			meaningfulSeen = true
			out = append(out, validateVariableOccurrence(n, tracker, in.Inventory, in.Rules)...)
		}
	}
	return out
}

// ValidateAll runs Validate concurrently across inputs, one worker per
// template, matching §5's "one logical database, cloned handles per
// worker" scheduling model: each Input is an immutable snapshot (the
// project's RuleSet and Inventory are already finished being built by the
// time a batch of templates is checked), so there is nothing to clone —
// only the fan-out itself needs coordinating. Grounded on the teacher's
// own use of golang.org/x/sync across src/build/src/test for exactly this
// "many independent units of work, one error short-circuits the group"
// shape (there: parallel build/test actions; here: parallel template
// files). Diagnostics are returned in input order regardless of which
// goroutine finishes first.
func ValidateAll(inputs []Input) ([][]diagnostics.Diagnostic, error) {
	results := make([][]diagnostics.Diagnostic, len(inputs))
	var g errgroup.Group
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			results[i] = Validate(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func loadOccurrences(nodes []templatenode.Node) []loadscope.LoadOccurrence {
	var occs []loadscope.LoadOccurrence
	for _, n := range nodes {
		if n.Kind == templatenode.Tag && n.TagName == "load" {
			occs = append(occs, loadscope.LoadOccurrence{Span: n.Span, Bits: n.Bits})
		}
	}
	return occs
}

func validateTagOccurrence(n templatenode.Node, tracker *loadscope.Tracker, inv *inventory.Inventory, rules RuleSet) []diagnostics.Diagnostic {
	state := tracker.AvailableAt(n.Span.Start)
	loaded := state.Providing(n.TagName)

	library, ok := inv.Resolve(n.TagName, inventory.SymTag, loaded)
	if !ok {
		return classifyUnknown(inv, n.Span, n.TagName, inventory.SymTag)
	}

	rule := rules.Tags[RuleKey{Library: library, Name: n.TagName}]
	if rule == nil {
		return nil
	}
	return evaluator.Evaluate(n.TagName, n.Bits, rule, n.Span)
}

func validateVariableOccurrence(n templatenode.Node, tracker *loadscope.Tracker, inv *inventory.Inventory, rules RuleSet) []diagnostics.Diagnostic {
	var out []diagnostics.Diagnostic
	state := tracker.AvailableAt(n.Span.Start)
	for _, f := range n.Filters {
		loaded := state.Providing(f.Name)
		library, ok := inv.Resolve(f.Name, inventory.SymFilter, loaded)
		if !ok {
			out = append(out, classifyUnknown(inv, f.Span, f.Name, inventory.SymFilter)...)
			continue
		}
		rule := rules.Filters[RuleKey{Library: library, Name: f.Name}]
		if rule == nil {
			continue
		}
		if rule.ExpectsArg && !f.HasArg && !rule.ArgOptional {
			out = append(out, diagnostics.Diagnostic{Kind: diagnostics.FilterMissingArg, Span: f.Span, Name: f.Name})
		}
		if !rule.ExpectsArg && f.HasArg {
			out = append(out, diagnostics.Diagnostic{Kind: diagnostics.FilterUnexpectedArg, Span: f.Span, Name: f.Name})
		}
	}
	return out
}

// classifyUnknown handles everything inv.Resolve couldn't: unloaded,
// ambiguous-unloaded, not-in-installed-apps, or a genuinely unknown
// name. Diagnostics whose premise depends on a knowledge layer that
// hasn't reported yet (spec.md §3: "diagnostics that require a layer's
// knowledge suppress when that layer is Unknown") fall out naturally
// here: FoldScan/FoldInspector only ever set Enablement to Enabled or
// NotEnabled once the corresponding layer is Known, so a candidate
// whose Enablement is still EnablementUnknown contributes to neither
// branch below. A name with no classifying candidate is reported
// unknown as soon as at least one of the two layers has reported; it is
// suppressed only while both are still Unknown.
func classifyUnknown(inv *inventory.Inventory, sp span.Span, name string, kind inventory.SymbolKind) []diagnostics.Diagnostic {
	candidates := inv.CandidatesForSymbol(name, kind)

	var enabledNotLoaded []string
	var notInstalled []string
	for _, c := range candidates {
		switch c.Enablement {
		case inventory.Enabled:
			enabledNotLoaded = append(enabledNotLoaded, c.LoadName)
		case inventory.NotEnabled:
			notInstalled = append(notInstalled, c.Location.AppModule)
		}
	}

	switch {
	case len(enabledNotLoaded) == 1:
		k := diagnostics.TagFromUnloadedLibrary
		if kind == inventory.SymFilter {
			k = diagnostics.FilterFromUnloadedLibrary
		}
		return []diagnostics.Diagnostic{{Kind: k, Span: sp, Name: name, Libraries: enabledNotLoaded}}
	case len(enabledNotLoaded) > 1:
		k := diagnostics.TagFromAmbiguousUnloadedLibraries
		if kind == inventory.SymFilter {
			k = diagnostics.FilterFromAmbiguousUnloadedLibraries
		}
		return []diagnostics.Diagnostic{{Kind: k, Span: sp, Name: name, Libraries: enabledNotLoaded}}
	case len(notInstalled) > 0:
		k := diagnostics.TagNotInInstalledApps
		if kind == inventory.SymFilter {
			k = diagnostics.FilterNotInInstalledApps
		}
		return []diagnostics.Diagnostic{{Kind: k, Span: sp, Name: name, Libraries: notInstalled, AppModule: notInstalled[0], AppLabels: appLabels(notInstalled)}}
	}

	if inv.InspectorKnown == inventory.Unknown && inv.ScanKnown == inventory.Unknown {
		return nil
	}
	k := diagnostics.UnknownTag
	if kind == inventory.SymFilter {
		k = diagnostics.UnknownFilter
	}
	return []diagnostics.Diagnostic{{Kind: k, Span: sp, Name: name}}
}

func validateLoadTag(n templatenode.Node, inv *inventory.Inventory) []diagnostics.Diagnostic {
	var out []diagnostics.Diagnostic
	names := loadTargetLibraries(n.Bits)
	for _, name := range names {
		candidates := inv.Candidates(name)
		if len(candidates) == 0 {
			out = append(out, diagnostics.Diagnostic{Kind: diagnostics.LoadUnknownLibrary, Span: n.Span, Name: name})
			continue
		}
		enabled := inv.EnabledLoadable(name)
		if enabled != nil {
			continue
		}
		var apps []string
		for _, c := range candidates {
			if c.Enablement == inventory.NotEnabled {
				apps = append(apps, c.Location.AppModule)
			}
		}
		if len(apps) > 0 {
			out = append(out, diagnostics.Diagnostic{Kind: diagnostics.LoadNotInInstalledApps, Span: n.Span, Name: name, Libraries: apps, AppModule: apps[0], AppLabels: appLabels(apps)})
		}
	}
	return out
}

// appLabels derives the bare app label (final dotted segment) a user adds
// to INSTALLED_APPS from each fully-qualified app module path
// (supplemented feature 5: djls-project/src/template_libraries.rs).
func appLabels(modules []string) []string {
	out := make([]string, len(modules))
	for i, m := range modules {
		out[i] = m
		if idx := strings.LastIndexByte(m, '.'); idx >= 0 {
			out[i] = m[idx+1:]
		}
	}
	return out
}

// loadTargetLibraries extracts the library name(s) a {% load %} bit list
// names, for existence checking (spec.md §4.J step 5) — independent of
// loadscope's FullLoad/SelectiveImport split, since both forms name
// exactly the libraries that must exist.
func loadTargetLibraries(bits []string) []string {
	for i, b := range bits {
		if b == "from" && i > 0 && i == len(bits)-2 {
			return []string{bits[len(bits)-1]}
		}
	}
	return bits
}

type openBlock struct {
	name      string
	block     *rulespec.BlockSpec
	bodyStart int
}

// walkBlocks replays the tag stream, resolving each tag's block spec
// through the same availability rule every other tag occurrence uses,
// and returns the opaque regions found plus the set of tag spans that
// are structural (a block's own closer or intermediate) and so must be
// skipped by Validate's regular per-tag classification.
func walkBlocks(nodes []templatenode.Node, rules RuleSet, inv *inventory.Inventory) (opaqueRegions []span.Span, structural map[int]bool) {
	structural = map[int]bool{}
	var stack []openBlock
	tracker := loadscope.New(loadOccurrences(nodes))

	for _, n := range nodes {
		if n.Kind != templatenode.Tag {
			continue
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if matchesEndTag(top, n.TagName) {
				structural[n.Span.Start] = true
				if top.block.Opaque {
					opaqueRegions = append(opaqueRegions, span.New(n.Span.File, top.bodyStart, n.Span.Start-top.bodyStart))
				}
				stack = stack[:len(stack)-1]
				continue
			}
			if contains(top.block.Intermediates, n.TagName) {
				structural[n.Span.Start] = true
				continue
			}
		}
		state := tracker.AvailableAt(n.Span.Start)
		loaded := state.Providing(n.TagName)
		library, ok := inv.Resolve(n.TagName, inventory.SymTag, loaded)
		if !ok {
			continue
		}
		rule := rules.Tags[RuleKey{Library: library, Name: n.TagName}]
		if rule == nil || rule.Block == nil {
			continue
		}
		stack = append(stack, openBlock{name: n.TagName, block: rule.Block, bodyStart: n.Span.End()})
	}
	return opaqueRegions, structural
}

func matchesEndTag(o openBlock, tagName string) bool {
	if o.block.EndTagDynamic {
		return tagName == "end"+o.name
	}
	return tagName == o.block.EndTag
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// isOpaque reports whether offset falls inside one of regions (sorted by
// start) via binary search (spec.md §4.J: "queried in O(log n) by binary
// search on sorted start-offsets").
func isOpaque(regions []span.Span, offset int) bool {
	i := sort.Search(len(regions), func(i int) bool { return regions[i].Start > offset })
	if i == 0 {
		return false
	}
	r := regions[i-1]
	return offset >= r.Start && offset < r.End()
}
