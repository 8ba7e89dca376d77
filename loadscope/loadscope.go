// Package loadscope tracks which template libraries are in scope at a
// given byte offset of a template (spec.md §3 "Load state", §4.G).
//
// Grounded on _examples/thought-machine-please/src/core/test_results.go's
// TestCoverage.Aggregate/MergeCoverageLines: both fold a sequence of
// position-indexed reports (there: per-line coverage results, merged so a
// later/better report wins at each index; here: per-offset {% load %}
// occurrences, sorted by span start and folded so a later full load
// supersedes an earlier selective import of the same library) into one
// queryable, position-ordered structure rather than re-deriving it on
// every read.
package loadscope

import (
	"sort"

	"github.com/djls-project/djls/span"
)

// LoadKind discriminates one Load entry.
type LoadKind uint8

const (
	FullLoad LoadKind = iota
	SelectiveImport
)

// Load is one `{% load ... %}` occurrence.
type Load struct {
	Span    span.Span
	Kind    LoadKind
	Libraries []string // FullLoad
	Symbols   []string // SelectiveImport
	Library   string   // SelectiveImport
}

// Tracker holds every load in a template, sorted by span start.
type Tracker struct {
	loads []Load
}

// New builds a Tracker from the {% load %} tag bits found in a template's
// node list (bits already split on whitespace by the caller's template
// scanner, excluding the "load" keyword itself).
func New(occurrences []LoadOccurrence) *Tracker {
	t := &Tracker{}
	for _, occ := range occurrences {
		t.loads = append(t.loads, parseLoad(occ))
	}
	sort.Slice(t.loads, func(i, j int) bool { return t.loads[i].Span.Start < t.loads[j].Span.Start })
	return t
}

// LoadOccurrence is one `{% load bits... %}` tag node as reported by the
// template scanner.
type LoadOccurrence struct {
	Span span.Span
	Bits []string
}

// parseLoad classifies one occurrence's bits into FullLoad or
// SelectiveImport (spec.md §4.G): `sym1 sym2 ... from lib` is selective;
// anything else (a flat list of identifiers) is a full load of each.
func parseLoad(occ LoadOccurrence) Load {
	bits := occ.Bits
	if idx := indexOf(bits, "from"); idx >= 0 && idx == len(bits)-2 && idx > 0 {
		return Load{
			Span:    occ.Span,
			Kind:    SelectiveImport,
			Symbols: append([]string(nil), bits[:idx]...),
			Library: bits[len(bits)-1],
		}
	}
	return Load{Span: occ.Span, Kind: FullLoad, Libraries: append([]string(nil), bits...)}
}

func indexOf(bits []string, s string) int {
	for i, b := range bits {
		if b == s {
			return i
		}
	}
	return -1
}

// LoadState is the cumulative scoping state at some offset (spec.md §3).
type LoadState struct {
	FullyLoaded      map[string]bool
	SelectiveImports map[string][]string // library -> symbols imported
}

func newLoadState() LoadState {
	return LoadState{FullyLoaded: map[string]bool{}, SelectiveImports: map[string][]string{}}
}

// AvailableAt folds every load whose span ends at or before offset into
// the cumulative state (spec.md §4.G). A later full-load supersedes an
// earlier selective import of the same library (spec.md §3).
func (t *Tracker) AvailableAt(offset int) LoadState {
	state := newLoadState()
	for _, l := range t.loads {
		if l.Span.End() > offset {
			break // loads is sorted by start; later entries can't apply earlier
		}
		switch l.Kind {
		case FullLoad:
			for _, lib := range l.Libraries {
				state.FullyLoaded[lib] = true
				delete(state.SelectiveImports, lib)
			}
		case SelectiveImport:
			if state.FullyLoaded[l.Library] {
				continue
			}
			state.SelectiveImports[l.Library] = append(state.SelectiveImports[l.Library], l.Symbols...)
		}
	}
	return state
}

// IsLoaded reports whether library is available (fully or selectively)
// in state.
func (s LoadState) IsLoaded(library string) bool {
	if s.FullyLoaded[library] {
		return true
	}
	_, ok := s.SelectiveImports[library]
	return ok
}

// Providing returns every library in scope that brings name into scope:
// fully loaded libraries unconditionally, selectively-imported ones only
// when name is among the imported symbols (spec.md §3 "Load state").
// Shared by the validation driver and the completion planner, since both
// need "which loaded libraries could this name come from" at an offset.
func (s LoadState) Providing(name string) []string {
	var libs []string
	for lib := range s.FullyLoaded {
		libs = append(libs, lib)
	}
	for lib, syms := range s.SelectiveImports {
		for _, sym := range syms {
			if sym == name {
				libs = append(libs, lib)
				break
			}
		}
	}
	return libs
}
