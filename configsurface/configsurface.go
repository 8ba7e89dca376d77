// Package configsurface is the configuration surface spec.md §6 names:
// venv_path, django_settings_module, pythonpath, tagspecs, and the
// diagnostics severity map. It is decoded with `github.com/jessevdk/go-flags`
// struct tags the way `core/config.go` and `src/cli/flags.go` declare
// `long:`/`description:` tags, for the one entry point (cmd/djls-check)
// that exists to exercise the core from a shell — the LSP transport and
// its own configuration channel are out of scope (spec.md §1).
//
// tagspecs overrides are merged with the same semantics
// `core/config.go`'s `ReadConfigFiles` layers `.plzconfig` →
// `.plzconfig.local` → profile file: later entries win per key. gcfg
// itself is not imported — there is no on-disk `.plzconfig`-shaped file
// here, only a JSON override file decoded at this package's boundary.
package configsurface

import (
	"fmt"
	"strings"

	"github.com/djls-project/djls/rulespec"
	"github.com/djls-project/djls/validate"
)

// Options is the recognized configuration surface (spec.md §6's
// "Configuration surface" table), decoded from CLI flags by
// cmd/djls-check.
type Options struct {
	VenvPath             string   `short:"e" long:"venv-path" description:"Directory of the Python virtual environment to inspect"`
	DjangoSettingsModule string   `short:"m" long:"settings-module" description:"Dotted settings module the inspector imports to discover installed libraries"`
	PythonPath           []string `short:"p" long:"pythonpath" description:"Extra search paths for the inspector"`
	TagSpecs             []string `short:"t" long:"tagspecs" description:"Path to a tagspecs override file (JSON); repeatable, later files win per tag/filter"`
	Diagnostic           []string `short:"d" long:"diagnostic" description:"Override a diagnostic's severity, CODE=severity (e.g. S108=warning)"`
}

// Severity is how strongly a diagnostic code should be surfaced
// (spec.md §6: "Severity map for diagnostic codes").
type Severity uint8

const (
	// SeverityDefault means no override was configured for this code;
	// the caller's own default stands.
	SeverityDefault Severity = iota
	SeverityOff
	SeverityHint
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityOff:
		return "off"
	case SeverityHint:
		return "hint"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "default"
	}
}

// ParseSeverity parses one severity name, case-insensitively.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "off":
		return SeverityOff, true
	case "hint":
		return SeverityHint, true
	case "info":
		return SeverityInfo, true
	case "warning", "warn":
		return SeverityWarning, true
	case "error":
		return SeverityError, true
	default:
		return SeverityDefault, false
	}
}

// SeverityMap parses Options.Diagnostic ("CODE=severity" pairs) into a
// lookup from diagnostics.Kind.Code() to its overridden Severity. Later
// entries for the same code win, matching the tagspecs merge rule.
func (o Options) SeverityMap() (map[string]Severity, error) {
	out := map[string]Severity{}
	for _, entry := range o.Diagnostic {
		code, rest, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("configsurface: malformed --diagnostic entry %q, want CODE=severity", entry)
		}
		sev, ok := ParseSeverity(rest)
		if !ok {
			return nil, fmt.Errorf("configsurface: unknown severity %q for %s", rest, code)
		}
		out[code] = sev
	}
	return out, nil
}

// TagSpecOverride is one user-supplied tag rule addition or override
// (spec.md §6: "tagspecs ... merged into the extracted rules with user
// overrides taking precedence").
type TagSpecOverride struct {
	Library string
	Name    string
	Rule    *rulespec.TagRule
}

// FilterSpecOverride is the same for a filter rule.
type FilterSpecOverride struct {
	Library string
	Name    string
	Rule    *rulespec.FilterRule
}

// MergeTagSpecs layers tagspecs override files onto an extracted base
// rule set, later layers winning per (library, name) key — the same
// last-applies-wins semantics core/config.go gets from gcfg's section
// merge. The base RuleSet is not mutated; a new one is returned.
func MergeTagSpecs(base validate.RuleSet, layers ...[]TagSpecOverride) validate.RuleSet {
	out := validate.RuleSet{
		Tags:    make(map[validate.RuleKey]*rulespec.TagRule, len(base.Tags)),
		Filters: make(map[validate.RuleKey]*rulespec.FilterRule, len(base.Filters)),
	}
	for k, v := range base.Tags {
		out.Tags[k] = v
	}
	for k, v := range base.Filters {
		out.Filters[k] = v
	}
	for _, layer := range layers {
		for _, o := range layer {
			out.Tags[validate.RuleKey{Library: o.Library, Name: o.Name}] = o.Rule
		}
	}
	return out
}

// MergeFilterSpecs is MergeTagSpecs's counterpart for filter rules.
func MergeFilterSpecs(base validate.RuleSet, layers ...[]FilterSpecOverride) validate.RuleSet {
	out := validate.RuleSet{
		Tags:    make(map[validate.RuleKey]*rulespec.TagRule, len(base.Tags)),
		Filters: make(map[validate.RuleKey]*rulespec.FilterRule, len(base.Filters)),
	}
	for k, v := range base.Tags {
		out.Tags[k] = v
	}
	for k, v := range base.Filters {
		out.Filters[k] = v
	}
	for _, layer := range layers {
		for _, o := range layer {
			out.Filters[validate.RuleKey{Library: o.Library, Name: o.Name}] = o.Rule
		}
	}
	return out
}
