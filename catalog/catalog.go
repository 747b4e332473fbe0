// Package catalog holds the shared declarations every scenario references:
// named logical elements with their fallback chains, named keyword sets, and
// the scenario definitions themselves.
//
// Hoisting the declarations into one YAML-loadable structure keeps selector
// lists out of individual scenarios; a scenario refers to "primary_heading"
// by name and may override the chain inline when one page needs a variant.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/houndci/sitecheck/resolve"
	"github.com/houndci/sitecheck/scenario"
	"github.com/houndci/sitecheck/verdict"
	"github.com/houndci/sitecheck/verify"
)

// Catalog is the loaded, validated declaration set.
type Catalog struct {
	Elements map[string]resolve.Element
	Keywords map[string]verify.Set
	Plans    []scenario.Plan
}

// Options tunes loading.
type Options struct {
	// ValidDevice validates device profile names at load time. Nil accepts
	// any name and defers the error to run time.
	ValidDevice func(string) bool
	// SkipDefaults omits the built-in element library.
	SkipDefaults bool
}

// File mirrors the YAML document structure.
type File struct {
	Elements  map[string][]resolve.Candidate `yaml:"elements"`
	Keywords  map[string][]string            `yaml:"keywords"`
	Scenarios []ScenarioDecl                 `yaml:"scenarios"`
}

// ScenarioDecl declares one scenario. Devices lists the profiles to run it
// under; each profile becomes an independent plan (fresh navigation, no
// shared state). An empty list means one desktop run.
type ScenarioDecl struct {
	Name         string            `yaml:"name"`
	URL          string            `yaml:"url"`
	Devices      []string          `yaml:"devices"`
	Elements     []ElementDecl     `yaml:"elements"`
	Keywords     []KeywordDecl     `yaml:"keywords"`
	Interactions []InteractionDecl `yaml:"interactions"`
	Responses    *ResponsesDecl    `yaml:"responses"`
}

// ElementDecl references a named element or declares one inline. When both
// Ref and Candidates are set, Candidates override the named chain for this
// scenario only.
type ElementDecl struct {
	Ref        string              `yaml:"ref"`
	Name       string              `yaml:"name"`
	Candidates []resolve.Candidate `yaml:"candidates"`
	Tier       *verdict.Tier       `yaml:"tier"`
	Visible    *bool               `yaml:"visible"`
}

// KeywordDecl references a named keyword set.
type KeywordDecl struct {
	Ref         string       `yaml:"ref"`
	Name        string       `yaml:"name"`
	Keywords    []string      `yaml:"keywords"`
	Tier        *verdict.Tier `yaml:"tier"`
	MinCoverage float64       `yaml:"min_coverage"`
}

// InteractionDecl declares an interaction probe.
type InteractionDecl struct {
	Ref        string              `yaml:"ref"`
	Name       string              `yaml:"name"`
	Candidates []resolve.Candidate `yaml:"candidates"`
	Action     string              `yaml:"action"`
	Value      string              `yaml:"value"`
	Tier       *verdict.Tier       `yaml:"tier"`
}

// ResponsesDecl enables the response audit.
type ResponsesDecl struct {
	Tier *verdict.Tier `yaml:"tier"`
}

// tierOr defaults an absent tier. Checks default to Recommended; the
// response audit defaults to Informational in buildPlans.
func tierOr(t *verdict.Tier, def verdict.Tier) verdict.Tier {
	if t != nil {
		return *t
	}
	return def
}

// LoadFile reads and validates a YAML catalog file.
func LoadFile(path string, opts Options) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Load(data, opts)
}

// Load parses and validates a YAML catalog document.
func Load(data []byte, opts Options) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return Build(&f, opts)
}

// Build validates a File and resolves every reference into concrete plans.
func Build(f *File, opts Options) (*Catalog, error) {
	c := &Catalog{
		Elements: map[string]resolve.Element{},
		Keywords: map[string]verify.Set{},
	}

	if !opts.SkipDefaults {
		for name, el := range DefaultElements() {
			c.Elements[name] = el
		}
	}
	for name, cands := range f.Elements {
		if len(cands) == 0 {
			return nil, fmt.Errorf("catalog: element %q has no candidates", name)
		}
		c.Elements[name] = resolve.Element{Name: name, Candidates: cands}
	}
	for name, kws := range f.Keywords {
		if len(kws) == 0 {
			return nil, fmt.Errorf("catalog: keyword set %q is empty", name)
		}
		c.Keywords[name] = verify.Set{Name: name, Keywords: kws}
	}

	for _, decl := range f.Scenarios {
		plans, err := c.buildPlans(decl, opts)
		if err != nil {
			return nil, err
		}
		c.Plans = append(c.Plans, plans...)
	}
	return c, nil
}

func (c *Catalog) buildPlans(decl ScenarioDecl, opts Options) ([]scenario.Plan, error) {
	if decl.Name == "" {
		return nil, fmt.Errorf("catalog: scenario without a name")
	}
	if decl.URL == "" {
		return nil, fmt.Errorf("catalog: scenario %q without a url", decl.Name)
	}

	base := scenario.Plan{Name: decl.Name, URL: decl.URL}

	for _, ed := range decl.Elements {
		el, err := c.element(decl.Name, ed.Ref, ed.Name, ed.Candidates)
		if err != nil {
			return nil, err
		}
		visible := true
		if ed.Visible != nil {
			visible = *ed.Visible
		}
		base.Elements = append(base.Elements, scenario.ElementCheck{
			Element:        el,
			Tier:           tierOr(ed.Tier, verdict.TierRecommended),
			RequireVisible: visible,
		})
	}

	for _, kd := range decl.Keywords {
		set, err := c.keywordSet(decl.Name, kd)
		if err != nil {
			return nil, err
		}
		base.Keywords = append(base.Keywords, scenario.KeywordCheck{
			Set:         set,
			Tier:        tierOr(kd.Tier, verdict.TierRecommended),
			MinCoverage: kd.MinCoverage,
		})
	}

	for _, id := range decl.Interactions {
		el, err := c.element(decl.Name, id.Ref, id.Name, id.Candidates)
		if err != nil {
			return nil, err
		}
		action := id.Action
		if action == "" {
			action = scenario.ActionClick
		}
		if action != scenario.ActionClick && action != scenario.ActionFill {
			return nil, fmt.Errorf("catalog: scenario %q: unknown action %q", decl.Name, action)
		}
		base.Interactions = append(base.Interactions, scenario.InteractionCheck{
			Element: el,
			Action:  action,
			Value:   id.Value,
			Tier:    tierOr(id.Tier, verdict.TierRecommended),
		})
	}

	if decl.Responses != nil {
		base.Responses = &scenario.ResponseAudit{Tier: tierOr(decl.Responses.Tier, verdict.TierInformational)}
	}

	devs := decl.Devices
	if len(devs) == 0 {
		devs = []string{""}
	}
	var plans []scenario.Plan
	for _, dev := range devs {
		if opts.ValidDevice != nil && !opts.ValidDevice(dev) {
			return nil, fmt.Errorf("catalog: scenario %q: unknown device %q", decl.Name, dev)
		}
		p := base
		p.Device = dev
		if dev != "" && len(devs) > 1 {
			p.Name = decl.Name + "@" + dev
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (c *Catalog) element(scen, ref, name string, inline []resolve.Candidate) (resolve.Element, error) {
	if ref != "" {
		el, ok := c.Elements[ref]
		if !ok {
			return resolve.Element{}, fmt.Errorf("catalog: scenario %q references unknown element %q", scen, ref)
		}
		if len(inline) > 0 {
			el = resolve.Element{Name: el.Name, Candidates: inline}
		}
		return el, nil
	}
	if name == "" || len(inline) == 0 {
		return resolve.Element{}, fmt.Errorf("catalog: scenario %q: element needs a ref or a name with candidates", scen)
	}
	return resolve.Element{Name: name, Candidates: inline}, nil
}

func (c *Catalog) keywordSet(scen string, kd KeywordDecl) (verify.Set, error) {
	if kd.Ref != "" {
		set, ok := c.Keywords[kd.Ref]
		if !ok {
			return verify.Set{}, fmt.Errorf("catalog: scenario %q references unknown keyword set %q", scen, kd.Ref)
		}
		return set, nil
	}
	if kd.Name == "" || len(kd.Keywords) == 0 {
		return verify.Set{}, fmt.Errorf("catalog: scenario %q: keywords need a ref or a name with keywords", scen)
	}
	return verify.Set{Name: kd.Name, Keywords: kd.Keywords}, nil
}

// Plan returns the named plan, matching either the declared name or a
// device-suffixed variant.
func (c *Catalog) Plan(name string) (scenario.Plan, bool) {
	for _, p := range c.Plans {
		if p.Name == name {
			return p, true
		}
	}
	return scenario.Plan{}, false
}
