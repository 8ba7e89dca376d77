package configsurface

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/djls-project/djls/rulespec"
)

// LoadTagSpecFile decodes one tagspecs override file (spec.md §6's
// "tagspecs" option). JSON decoding is used here, not an ecosystem
// library: this is the one place in the core that reads an on-disk
// user-authored file rather than in-process values, so the usual
// "validate at system boundaries" exception applies (see DESIGN.md)
// — neither the teacher nor the rest of the pack reaches for a
// config-file library shaped for free-form JSON like this.
func LoadTagSpecFile(path string) ([]TagSpecOverride, []FilterSpecOverride, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("configsurface: reading %s: %w", path, err)
	}
	var file tagSpecFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("configsurface: decoding %s: %w", path, err)
	}
	tags := make([]TagSpecOverride, 0, len(file.Tags))
	for _, t := range file.Tags {
		rule, err := t.toRule()
		if err != nil {
			return nil, nil, fmt.Errorf("configsurface: %s: tag %q: %w", path, t.Name, err)
		}
		tags = append(tags, TagSpecOverride{Library: t.Library, Name: t.Name, Rule: rule})
	}
	filters := make([]FilterSpecOverride, 0, len(file.Filters))
	for _, f := range file.Filters {
		filters = append(filters, FilterSpecOverride{
			Library: f.Library,
			Name:    f.Name,
			Rule:    &rulespec.FilterRule{ExpectsArg: f.ExpectsArg, ArgOptional: f.ArgOptional},
		})
	}
	return tags, filters, nil
}

type tagSpecFile struct {
	Tags    []jsonTagRule    `json:"tags"`
	Filters []jsonFilterRule `json:"filters"`
}

type jsonPosition struct {
	Dir string `json:"dir"` // "forward" or "backward"
	K   int    `json:"k"`
}

func (p jsonPosition) toPositionRef() (rulespec.PositionRef, error) {
	switch p.Dir {
	case "forward", "":
		return rulespec.PositionRef{Dir: rulespec.Forward, K: p.K}, nil
	case "backward":
		return rulespec.PositionRef{Dir: rulespec.Backward, K: p.K}, nil
	default:
		return rulespec.PositionRef{}, fmt.Errorf("unknown position dir %q", p.Dir)
	}
}

type jsonArgConstraint struct {
	Kind string `json:"kind"` // "exact", "min", "max", "oneof"
	N    int    `json:"n"`
	Set  []int  `json:"set"`
}

func (c jsonArgConstraint) toConstraint() (rulespec.ArgConstraint, error) {
	switch c.Kind {
	case "exact":
		return rulespec.ArgConstraint{Kind: rulespec.Exact, N: c.N}, nil
	case "min":
		return rulespec.ArgConstraint{Kind: rulespec.Min, N: c.N}, nil
	case "max":
		return rulespec.ArgConstraint{Kind: rulespec.Max, N: c.N}, nil
	case "oneof":
		return rulespec.ArgConstraint{Kind: rulespec.OneOf, Set: c.Set}, nil
	default:
		return rulespec.ArgConstraint{}, fmt.Errorf("unknown arg constraint kind %q", c.Kind)
	}
}

type jsonRequiredKeyword struct {
	Position jsonPosition `json:"position"`
	Literal  string       `json:"literal"`
}

type jsonChoiceAt struct {
	Position jsonPosition `json:"position"`
	Allowed  []string     `json:"allowed"`
}

type jsonKnownOptions struct {
	Values          []string `json:"values"`
	RejectsUnknown  bool     `json:"rejects_unknown"`
	AllowDuplicates bool     `json:"allow_duplicates"`
}

type jsonExtractedArg struct {
	Name     string   `json:"name"`
	Required bool     `json:"required"`
	Kind     string   `json:"kind"` // "literal", "variable", "keyword", "choice", "varargs"
	Literal  string   `json:"literal"`
	Choices  []string `json:"choices"`
}

func (a jsonExtractedArg) toExtractedArg() (rulespec.ExtractedArg, error) {
	var kind rulespec.ArgKind
	switch a.Kind {
	case "literal":
		kind = rulespec.AKLiteral
	case "variable", "":
		kind = rulespec.AKVariable
	case "keyword":
		kind = rulespec.AKKeyword
	case "choice":
		kind = rulespec.AKChoice
	case "varargs":
		kind = rulespec.AKVarArgs
	default:
		return rulespec.ExtractedArg{}, fmt.Errorf("unknown extracted arg kind %q", a.Kind)
	}
	return rulespec.ExtractedArg{Name: a.Name, Required: a.Required, Kind: kind, Literal: a.Literal, Choices: a.Choices}, nil
}

type jsonBlockSpec struct {
	EndTag        string   `json:"end_tag"`
	EndTagDynamic bool     `json:"end_tag_dynamic"`
	Intermediates []string `json:"intermediates"`
	Opaque        bool     `json:"opaque"`
}

type jsonTagRule struct {
	Library          string              `json:"library"`
	Name             string              `json:"name"`
	ArgConstraints   []jsonArgConstraint `json:"arg_constraints"`
	RequiredKeywords []jsonRequiredKeyword `json:"required_keywords"`
	ChoiceAtList     []jsonChoiceAt      `json:"choice_at"`
	KnownOptions     *jsonKnownOptions   `json:"known_options"`
	SupportsAsVar    bool                `json:"supports_as_var"`
	ExtractedArgs    []jsonExtractedArg  `json:"extracted_args"`
	Block            *jsonBlockSpec      `json:"block"`
}

func (t jsonTagRule) toRule() (*rulespec.TagRule, error) {
	rule := &rulespec.TagRule{SupportsAsVar: t.SupportsAsVar}
	for _, c := range t.ArgConstraints {
		constraint, err := c.toConstraint()
		if err != nil {
			return nil, err
		}
		rule.ArgConstraints = append(rule.ArgConstraints, constraint)
	}
	for _, k := range t.RequiredKeywords {
		pos, err := k.Position.toPositionRef()
		if err != nil {
			return nil, err
		}
		rule.RequiredKeywords = append(rule.RequiredKeywords, rulespec.RequiredKeyword{Position: pos, Literal: k.Literal})
	}
	for _, c := range t.ChoiceAtList {
		pos, err := c.Position.toPositionRef()
		if err != nil {
			return nil, err
		}
		rule.ChoiceAtList = append(rule.ChoiceAtList, rulespec.ChoiceAt{Position: pos, Allowed: c.Allowed})
	}
	if t.KnownOptions != nil {
		rule.KnownOptions = &rulespec.KnownOptions{
			Values:          t.KnownOptions.Values,
			RejectsUnknown:  t.KnownOptions.RejectsUnknown,
			AllowDuplicates: t.KnownOptions.AllowDuplicates,
		}
	}
	for _, a := range t.ExtractedArgs {
		arg, err := a.toExtractedArg()
		if err != nil {
			return nil, err
		}
		rule.ExtractedArgs = append(rule.ExtractedArgs, arg)
	}
	if t.Block != nil {
		rule.Block = &rulespec.BlockSpec{
			EndTag:        t.Block.EndTag,
			EndTagDynamic: t.Block.EndTagDynamic,
			Intermediates: t.Block.Intermediates,
			Opaque:        t.Block.Opaque,
		}
	}
	return rule, nil
}

type jsonFilterRule struct {
	Library     string `json:"library"`
	Name        string `json:"name"`
	ExpectsArg  bool   `json:"expects_arg"`
	ArgOptional bool   `json:"arg_optional"`
}
