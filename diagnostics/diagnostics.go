// Package diagnostics is the typed enum of diagnostic kinds spec.md §4.I
// describes: each carries a span and the identifiers needed to render its
// message, with a stable string Code for the LSP wire format (spec.md §6).
//
// Grounded on _examples/thought-machine-please/src/core/state.go's
// BuildResult/BuildResultStatus: a Kind-like enum (BuildResultStatus, an
// int const block) plus one flat struct (BuildResult) carrying every
// status's optional fields (Err only populated for failure statuses, Tests
// only for test statuses), pushed through please's build-progress
// reporting rather than modeled as one Go type per status. This package
// plays the same role for validation diagnostics that BuildResult plays
// for build-progress events.
package diagnostics

import "github.com/djls-project/djls/span"

// Kind discriminates one diagnostic (spec.md §6's S1xx codes).
type Kind uint8

const (
	UnknownTag Kind = iota
	TagFromUnloadedLibrary
	TagFromAmbiguousUnloadedLibraries
	UnknownFilter
	FilterFromUnloadedLibrary
	FilterFromAmbiguousUnloadedLibraries
	RuleViolation
	FilterMissingArg
	FilterUnexpectedArg
	TagNotInInstalledApps
	FilterNotInInstalledApps
	LoadUnknownLibrary
	LoadNotInInstalledApps
	ExtendsNotFirst
	ExtendsMultiple
)

// Code returns the stable string identifier used in the LSP output
// (spec.md §6).
func (k Kind) Code() string {
	switch k {
	case UnknownTag:
		return "S108"
	case TagFromUnloadedLibrary:
		return "S109"
	case TagFromAmbiguousUnloadedLibraries:
		return "S110"
	case UnknownFilter:
		return "S111"
	case FilterFromUnloadedLibrary:
		return "S112"
	case FilterFromAmbiguousUnloadedLibraries:
		return "S113"
	case RuleViolation:
		return "S114"
	case FilterMissingArg:
		return "S115"
	case FilterUnexpectedArg:
		return "S116"
	case TagNotInInstalledApps:
		return "S118"
	case FilterNotInInstalledApps:
		return "S119"
	case LoadUnknownLibrary:
		return "S120"
	case LoadNotInInstalledApps:
		return "S121"
	case ExtendsNotFirst:
		return "S122"
	case ExtendsMultiple:
		return "S123"
	default:
		return ""
	}
}

// Diagnostic is one emitted finding (spec.md §4.I). Not every field applies
// to every Kind; callers populate only the ones their Kind's message needs.
type Diagnostic struct {
	Kind Kind
	Span span.Span

	Name      string   // the tag/filter/library name the diagnostic is about
	Libraries []string // candidate library names (S110/S113 and not-in-installed-apps variants)
	AppModule string   // S118/S119/S121: the dotted app module whose INSTALLED_APPS entry is missing
	AppLabels []string // same, as the bare app label a user adds to INSTALLED_APPS (supplemented feature 5)

	Message string // the human-facing text, built by the emitting component
}

// Message-builders live beside the components that have the context to
// fill them in (evaluator, validate) rather than here; Diagnostic itself
// stays a plain data carrier so the accumulator's structural-equality
// dedup (spec.md §4.B) compares by value, not by a message string that
// formatting changes could accidentally diverge.
