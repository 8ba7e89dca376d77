// djls-check is a minimal batch-mode driver over the validation core: it
// loads a directory of Django app sources (Python template-tag libraries
// plus `.html` templates) and prints diagnostics, in the spirit of the
// teacher's many single-purpose `tools/*/main.go` binaries (e.g.
// `tools/please_go_install/main.go`). It is not the LSP transport, which
// spec.md §1 scopes out as an external collaborator; this exists only to
// exercise the library from a shell.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	logging "gopkg.in/op/go-logging.v1"

	"github.com/djls-project/djls/configsurface"
	"github.com/djls-project/djls/diagnostics"
	"github.com/djls-project/djls/inventory"
	"github.com/djls-project/djls/pyparse"
	"github.com/djls-project/djls/registry"
	"github.com/djls-project/djls/rules"
	"github.com/djls-project/djls/rulespec"
	"github.com/djls-project/djls/validate"
)

var log = logging.MustGetLogger("djls-check")

var opts struct {
	configsurface.Options

	Verbosity int `short:"v" long:"verbosity" description:"Verbosity of logging output (0=warning, 1=info, 2=debug)" default:"1"`

	Args struct {
		Root string `positional-arg-name:"root" description:"Project root to scan for templatetags libraries and .html templates"`
	} `positional-args:"true" required:"true"`
}

func main() {
	parser := flags.NewNamedParser("djls-check", flags.HelpFlag|flags.PassDoubleDash)
	parser.AddGroup("djls-check options", "", &opts)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		if ferr, ok := err.(*flags.Error); ok && ferr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	initLogging(opts.Verbosity)

	inv := inventory.New()
	ruleSet := validate.RuleSet{
		Tags:    map[validate.RuleKey]*rulespec.TagRule{},
		Filters: map[validate.RuleKey]*rulespec.FilterRule{},
	}
	var scanResults []inventory.ScanResult
	if err := scanLibraries(opts.Args.Root, &ruleSet, &scanResults); err != nil {
		log.Warning("scanning %s for template libraries: %s", opts.Args.Root, err)
	}
	inv.FoldScan(scanResults)

	if err := applyTagSpecs(opts.TagSpecs, &ruleSet); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	severities, err := opts.SeverityMap()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	failed, err := checkTemplates(opts.Args.Root, inv, ruleSet, severities)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if failed {
		os.Exit(1)
	}
}

func initLogging(verbosity int) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	level := logging.WARNING
	switch {
	case verbosity >= 2:
		level = logging.DEBUG
	case verbosity == 1:
		level = logging.INFO
	}
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}

// scanLibraries walks root for Python modules under a `templatetags/`
// directory (Django's own convention for where a `{% load name %}`
// library lives), extracting its registrations into ruleSet and
// recording a ScanResult per library (spec.md §4.D/§4.E/§4.F).
func scanLibraries(root string, ruleSet *validate.RuleSet, results *[]inventory.ScanResult) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".py") {
			return nil
		}
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "templatetags" {
			return nil
		}
		loadName := strings.TrimSuffix(filepath.Base(path), ".py")
		if loadName == "__init__" {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			log.Warning("reading %s: %s", path, err)
			return nil
		}
		mod, err := pyparse.Parse(path, string(src))
		if err != nil {
			// Input errors are absorbed (spec.md §7): a Python file that
			// fails to parse yields no registrations, not a crash.
			log.Warning("parsing %s: %s", path, err)
			return nil
		}

		var symbols []inventory.Symbol
		for _, reg := range registry.Scan(mod) {
			tagRule, filterRule := rules.ExtractFromRegistration(reg)
			kind := inventory.SymTag
			if reg.Kind == registry.Filter {
				kind = inventory.SymFilter
			}
			symbols = append(symbols, inventory.Symbol{Name: reg.Name, Kind: kind})
			key := validate.RuleKey{Library: loadName, Name: reg.Name}
			if tagRule != nil {
				ruleSet.Tags[key] = tagRule
			}
			if filterRule != nil {
				ruleSet.Filters[key] = filterRule
			}
		}

		*results = append(*results, inventory.ScanResult{
			LoadName:   loadName,
			Module:     dottedModule(root, strings.TrimSuffix(path, ".py")),
			AppModule:  dottedModule(root, filepath.Dir(dir)),
			SourcePath: path,
			Symbols:    symbols,
		})
		return nil
	})
}

func dottedModule(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), ".")
}

func applyTagSpecs(paths []string, ruleSet *validate.RuleSet) error {
	var tagLayers [][]configsurface.TagSpecOverride
	var filterLayers [][]configsurface.FilterSpecOverride
	for _, path := range paths {
		tags, filters, err := configsurface.LoadTagSpecFile(path)
		if err != nil {
			return err
		}
		tagLayers = append(tagLayers, tags)
		filterLayers = append(filterLayers, filters)
	}
	merged := configsurface.MergeTagSpecs(*ruleSet, tagLayers...)
	merged = configsurface.MergeFilterSpecs(merged, filterLayers...)
	*ruleSet = merged
	return nil
}

// checkTemplates walks root for `.html` files, validates them concurrently
// (one worker per file, via validate.ValidateAll), and prints every
// diagnostic whose configured severity isn't Off. Reports whether any
// diagnostic survived so main can set a non-zero exit code.
func checkTemplates(root string, inv *inventory.Inventory, ruleSet validate.RuleSet, severities map[string]configsurface.Severity) (bool, error) {
	var inputs []validate.Input
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			log.Warning("reading %s: %s", path, err)
			return nil
		}
		inputs = append(inputs, validate.Input{File: path, Source: string(src), Inventory: inv, Rules: ruleSet})
		return nil
	})
	if err != nil {
		return false, err
	}

	results, err := validate.ValidateAll(inputs)
	if err != nil {
		return false, err
	}

	var failed bool
	for i, in := range inputs {
		for _, diag := range results[i] {
			code := diag.Kind.Code()
			if severities[code] == configsurface.SeverityOff {
				continue
			}
			failed = true
			fmt.Printf("%s:%d: %s %s %s\n", in.File, diag.Span.Start, code, severities[code], renderMessage(diag))
		}
	}
	return failed, nil
}

func renderMessage(d diagnostics.Diagnostic) string {
	if d.Message != "" {
		return d.Message
	}
	lib := "?"
	if len(d.Libraries) > 0 {
		lib = strings.Join(d.Libraries, ", ")
	}
	label := "?"
	if len(d.AppLabels) > 0 {
		label = strings.Join(d.AppLabels, " or ")
	}
	switch d.Kind {
	case diagnostics.UnknownTag:
		return fmt.Sprintf("%q is not a known tag", d.Name)
	case diagnostics.UnknownFilter:
		return fmt.Sprintf("%q is not a known filter", d.Name)
	case diagnostics.TagFromUnloadedLibrary:
		return fmt.Sprintf("%q is defined in %q; add {%% load %s %%}", d.Name, lib, lib)
	case diagnostics.FilterFromUnloadedLibrary:
		return fmt.Sprintf("%q is defined in %q; add {%% load %s %%}", d.Name, lib, lib)
	case diagnostics.TagFromAmbiguousUnloadedLibraries:
		return fmt.Sprintf("%q is ambiguous among %s", d.Name, lib)
	case diagnostics.FilterFromAmbiguousUnloadedLibraries:
		return fmt.Sprintf("%q is ambiguous among %s", d.Name, lib)
	case diagnostics.TagNotInInstalledApps:
		return fmt.Sprintf("%q needs %q added to INSTALLED_APPS", d.Name, label)
	case diagnostics.FilterNotInInstalledApps:
		return fmt.Sprintf("%q needs %q added to INSTALLED_APPS", d.Name, label)
	case diagnostics.LoadUnknownLibrary:
		return fmt.Sprintf("%q is not a known library", d.Name)
	case diagnostics.LoadNotInInstalledApps:
		return fmt.Sprintf("%q needs %q added to INSTALLED_APPS", d.Name, label)
	case diagnostics.ExtendsNotFirst:
		return "{% extends %} must be the first tag in the template"
	case diagnostics.ExtendsMultiple:
		return "a template may only have one {% extends %}"
	default:
		return d.Name
	}
}
