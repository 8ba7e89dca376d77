// Package inventory holds the three-way knowledge model of installed
// Django template libraries (spec.md §3 "Library inventory", §4.F):
// inspector-reported enablement, filesystem-scanned locations, and the
// builtin set, each layer independently possibly Unknown.
//
// Grounded on _examples/thought-machine-please/src/core/state.go's
// "fold incremental reports into one state object, track whether each
// layer has reported yet" shape (please folds worker status reports the
// same way an inventory here folds inspector + scanner reports).
package inventory

// Knowledge records whether a layer of the inventory has reported yet.
type Knowledge uint8

const (
	Unknown Knowledge = iota
	Known
)

// Enablement is whether a library is active in the running Django project.
type Enablement uint8

const (
	EnablementUnknown Enablement = iota
	Enabled
	NotEnabled
)

// LocationKind discriminates Location.
type LocationKind uint8

const (
	LocUnknown LocationKind = iota
	LocScanned
)

// Location is where a library's source was found.
type Location struct {
	Kind       LocationKind
	AppModule  string
	SourcePath string
}

// SymbolKind is Tag or Filter (spec.md §3 "Symbol key").
type SymbolKind uint8

const (
	SymTag SymbolKind = iota
	SymFilter
)

// Symbol is one tag/filter a library exports.
type Symbol struct {
	Name string
	Kind SymbolKind
	Doc  string
}

// TemplateLibrary is one candidate module providing a given load-name
// (spec.md §3: "same load-name may resolve to multiple modules").
type TemplateLibrary struct {
	LoadName   string
	Module     string
	Location   Location
	Enablement Enablement
	Symbols    []Symbol
}

// Inventory is the library inventory model (spec.md §4.F).
type Inventory struct {
	loadable         map[string][]TemplateLibrary // keyed by load-name
	builtins         map[string][]Symbol           // keyed by module
	InspectorKnown   Knowledge
	ScanKnown        Knowledge
}

// New returns an empty inventory; both knowledge layers start Unknown.
func New() *Inventory {
	return &Inventory{loadable: map[string][]TemplateLibrary{}, builtins: map[string][]Symbol{}}
}

// ScanResult is what the filesystem walker reports: one library found
// under an app's templatetags/ directory.
type ScanResult struct {
	LoadName   string
	Module     string
	AppModule  string
	SourcePath string
	Symbols    []Symbol
}

// FoldScan folds the filesystem scanner's findings into the inventory
// (spec.md §4.F: "sets scan_knowledge=Known, adds Scanned location ...,
// promotes any non-Enabled library to NotEnabled iff inspector is also
// Known").
func (inv *Inventory) FoldScan(results []ScanResult) {
	inv.ScanKnown = Known
	for _, r := range results {
		lib := TemplateLibrary{
			LoadName: r.LoadName,
			Module:   r.Module,
			Location: Location{Kind: LocScanned, AppModule: r.AppModule, SourcePath: r.SourcePath},
			Symbols:  r.Symbols,
		}
		if inv.InspectorKnown == Known {
			lib.Enablement = NotEnabled
		}
		inv.upsert(r.LoadName, lib)
	}
}

// InspectorReport is the decoded inspector wire payload (spec.md §6).
type InspectorReport struct {
	Symbols   []InspectorSymbol
	Libraries map[string]string // load_name -> module, enabled libraries
	Builtins  []string          // modules
}

// InspectorSymbol is one entry of the inspector's "symbols" array.
type InspectorSymbol struct {
	Kind          *SymbolKind
	Name          string
	LoadName      *string // nil => builtin
	LibraryModule string
	Module        string
	Doc           string
}

// FoldInspector folds a live inspector report into the inventory
// (spec.md §4.F: "sets inspector_knowledge=Known, marks enabled
// libraries Enabled, sets builtins").
func (inv *Inventory) FoldInspector(r InspectorReport) {
	inv.InspectorKnown = Known
	enabledModules := map[string]string{} // module -> load name
	for loadName, module := range r.Libraries {
		enabledModules[module] = loadName
		inv.upsert(loadName, TemplateLibrary{LoadName: loadName, Module: module, Enablement: Enabled})
	}
	builtinSet := map[string]bool{}
	for _, m := range r.Builtins {
		builtinSet[m] = true
	}
	for _, sym := range r.Symbols {
		if sym.Kind == nil {
			continue // spec.md §6: missing kind is discarded
		}
		s := Symbol{Name: sym.Name, Kind: *sym.Kind, Doc: sym.Doc}
		if sym.LoadName == nil || builtinSet[sym.Module] {
			inv.builtins[sym.Module] = append(inv.builtins[sym.Module], s)
			continue
		}
		inv.attachSymbol(*sym.LoadName, sym.LibraryModule, s)
	}
	// Any library the scanner found but the inspector did not report as
	// enabled is now known NotEnabled.
	for name, libs := range inv.loadable {
		for i := range libs {
			if libs[i].Enablement == EnablementUnknown && libs[i].Location.Kind == LocScanned {
				libs[i].Enablement = NotEnabled
			}
		}
		inv.loadable[name] = libs
	}
}

func (inv *Inventory) attachSymbol(loadName, module string, s Symbol) {
	libs := inv.loadable[loadName]
	for i := range libs {
		if libs[i].Module == module {
			libs[i].Symbols = append(libs[i].Symbols, s)
			inv.loadable[loadName] = libs
			return
		}
	}
	inv.upsert(loadName, TemplateLibrary{LoadName: loadName, Module: module, Symbols: []Symbol{s}})
}

func (inv *Inventory) upsert(loadName string, lib TemplateLibrary) {
	libs := inv.loadable[loadName]
	for i := range libs {
		if libs[i].Module == lib.Module {
			if lib.Location.Kind != LocUnknown {
				libs[i].Location = lib.Location
			}
			if lib.Enablement != EnablementUnknown && !(libs[i].Enablement == Enabled && lib.Enablement == NotEnabled) {
				libs[i].Enablement = lib.Enablement
			}
			libs[i].Symbols = append(libs[i].Symbols, lib.Symbols...)
			inv.loadable[loadName] = libs
			return
		}
	}
	inv.loadable[loadName] = append(libs, lib)
}

// EnabledLoadable returns the enabled candidate for name, if one exists.
func (inv *Inventory) EnabledLoadable(name string) *TemplateLibrary {
	for _, lib := range inv.loadable[name] {
		if lib.Enablement == Enabled {
			l := lib
			return &l
		}
	}
	return nil
}

// BestLoadable returns the enabled candidate, else a scanned one, else
// any candidate at all.
func (inv *Inventory) BestLoadable(name string) *TemplateLibrary {
	if lib := inv.EnabledLoadable(name); lib != nil {
		return lib
	}
	libs := inv.loadable[name]
	for _, lib := range libs {
		if lib.Location.Kind == LocScanned {
			l := lib
			return &l
		}
	}
	if len(libs) > 0 {
		l := libs[0]
		return &l
	}
	return nil
}

// Candidates returns every known candidate library whose load-name is
// name (used to validate a `{% load name %}` target).
func (inv *Inventory) Candidates(name string) []TemplateLibrary {
	return inv.loadable[name]
}

// CandidatesForSymbol returns every known library that exports a
// name/kind symbol, regardless of load-name — used to classify a tag or
// filter occurrence that didn't resolve (spec.md §4.F/§4.J: distinguish
// "known from an unloaded library" from "genuinely unknown").
func (inv *Inventory) CandidatesForSymbol(name string, kind SymbolKind) []TemplateLibrary {
	var out []TemplateLibrary
	for _, libs := range inv.loadable {
		for _, lib := range libs {
			for _, s := range lib.Symbols {
				if s.Name == name && s.Kind == kind {
					out = append(out, lib)
					break
				}
			}
		}
	}
	return out
}

// AllNames returns every distinct name/kind symbol known across builtins
// and every loadable library, regardless of load-scope or enablement —
// used by the completion planner (spec.md §4.K) to prefix/fuzzy match
// against the full universe of known names before narrowing to what's
// actually in scope at the cursor.
func (inv *Inventory) AllNames(kind SymbolKind) []string {
	seen := map[string]bool{}
	var out []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, syms := range inv.builtins {
		for _, s := range syms {
			if s.Kind == kind {
				add(s.Name)
			}
		}
	}
	for _, libs := range inv.loadable {
		for _, lib := range libs {
			for _, s := range lib.Symbols {
				if s.Kind == kind {
					add(s.Name)
				}
			}
		}
	}
	return out
}

// BuiltinNames returns every name/kind symbol provided by a builtin
// module — always in scope, no `{% load %}` required.
func (inv *Inventory) BuiltinNames(kind SymbolKind) []string {
	var out []string
	for _, syms := range inv.builtins {
		for _, s := range syms {
			if s.Kind == kind {
				out = append(out, s.Name)
			}
		}
	}
	return out
}

// AllLibraryNames returns every known load-name, for LibraryName
// completion context (spec.md §4.K: "Inside `{% load …`").
func (inv *Inventory) AllLibraryNames() []string {
	out := make([]string, 0, len(inv.loadable))
	for name := range inv.loadable {
		out = append(out, name)
	}
	return out
}

// ScannedCandidatesByName returns, for every scanned-but-not-enabled
// library, a map from symbol name to the (app_module, library_name)
// pairs that provide it — used by the "known but not in installed apps"
// diagnostic (spec.md §4.F).
func (inv *Inventory) ScannedCandidatesByName(kind SymbolKind) map[string][]AppCandidate {
	out := map[string][]AppCandidate{}
	for loadName, libs := range inv.loadable {
		for _, lib := range libs {
			if lib.Location.Kind != LocScanned || lib.Enablement == Enabled {
				continue
			}
			for _, sym := range lib.Symbols {
				if sym.Kind != kind {
					continue
				}
				out[sym.Name] = append(out[sym.Name], AppCandidate{AppModule: lib.Location.AppModule, LibraryName: loadName})
			}
		}
	}
	return out
}

// AppCandidate names one app providing a scanned-but-unloaded symbol.
type AppCandidate struct {
	AppModule   string
	LibraryName string
}

// IsBuiltin reports whether name/kind is provided by a builtin module,
// without needing a {% load %}.
func (inv *Inventory) IsBuiltin(name string, kind SymbolKind) bool {
	for _, syms := range inv.builtins {
		for _, s := range syms {
			if s.Name == name && s.Kind == kind {
				return true
			}
		}
	}
	return false
}

// Resolve decides which symbol definition a name/kind refers to at a
// point where loadedLibraries is the set of library load-names currently
// in scope. When a builtin module and a loaded library both export the
// same symbol name, the loaded library wins — Django's own tag/filter
// library resolves this way, since `{% load %}` re-registers into the
// same parser-local dict builtins were seeded into. Returns the
// providing library's load name, or "" when resolved from a builtin.
func (inv *Inventory) Resolve(name string, kind SymbolKind, loadedLibraries []string) (library string, ok bool) {
	for _, loadName := range loadedLibraries {
		for _, lib := range inv.loadable[loadName] {
			for _, s := range lib.Symbols {
				if s.Name == name && s.Kind == kind {
					return loadName, true
				}
			}
		}
	}
	if inv.IsBuiltin(name, kind) {
		return "", true
	}
	return "", false
}
