/*
factory.go - YAML catalog to Go template conversion

PURPOSE:
  Converts YAML template definitions into ModelTemplate values with typed
  calculation steps. Analysts can add or tune templates without touching
  Go code; the factory is the only place that interprets the "kind" tags.

YAML SCHEMA:
  default_template: general
  shared:
    inputs:    [...]   # appended to every template unless overridden by id
    schedules: [...]   # used by templates that declare none of their own
    rules:     [...]
  templates:
    - id: saas
      name: SaaS / Subscription
      applicable_types: [subscription, software]
      revenue:
        kind: growth_compound
        base: initial_mrr
        growth: revenue_growth_rate
        attrition: churn_rate
      costs:
        - {line: cogs, category: cogs, percent: gross_margin, complement: true}
      inputs:
        - id: initial_mrr
          kind: currency
          required: true
          rules: [{kind: range, min: 0}]

KEY FEATURES:
  - Unknown step kinds, categories, or input kinds fail the load
  - Step references to undeclared inputs fail the load
  - Shared inputs are merged so every template carries financing/tax/horizon

SEE ALSO:
  - types.go: Go types produced here
  - catalog.yaml: built-in catalog
*/
package template

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// CatalogYAML is the YAML representation of a template catalog.
type CatalogYAML struct {
	DefaultTemplate string         `yaml:"default_template"`
	Shared          SharedYAML     `yaml:"shared"`
	Templates       []TemplateYAML `yaml:"templates"`
}

// SharedYAML holds definitions merged into every template.
type SharedYAML struct {
	Inputs    []InputYAML `yaml:"inputs"`
	Schedules []StepYAML  `yaml:"schedules"`
	Rules     []RuleYAML  `yaml:"rules"`
}

// TemplateYAML represents one template.
type TemplateYAML struct {
	ID              string      `yaml:"id"`
	Name            string      `yaml:"name"`
	Description     string      `yaml:"description"`
	ApplicableTypes []string    `yaml:"applicable_types"`
	Revenue         StepYAML    `yaml:"revenue"`
	Costs           []StepYAML  `yaml:"costs"`
	Schedules       []StepYAML  `yaml:"schedules"`
	Inputs          []InputYAML `yaml:"inputs"`
	Rules           []RuleYAML  `yaml:"rules"`
}

// InputYAML represents an input definition.
type InputYAML struct {
	ID          string     `yaml:"id"`
	Label       string     `yaml:"label"`
	Kind        string     `yaml:"kind"`
	Category    string     `yaml:"category"`
	Required    bool       `yaml:"required"`
	Default     any        `yaml:"default"`
	DefaultFrom string     `yaml:"default_from"`
	Options     []string   `yaml:"options"`
	Role        string     `yaml:"role"`
	Rules       []RuleYAML `yaml:"rules"`
}

// RuleYAML represents a validation rule.
type RuleYAML struct {
	Kind    string   `yaml:"kind"`
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Fields  []string `yaml:"fields"`
	Limit   float64  `yaml:"limit"`
	Target  string   `yaml:"target"`
	When    string   `yaml:"when"`
	Message string   `yaml:"message"`
}

// StepYAML is the flat union of every calculation step's fields.
// Kind selects which fields are read.
type StepYAML struct {
	Kind string `yaml:"kind"`

	// growth_compound
	Base      string `yaml:"base"`
	Growth    string `yaml:"growth"`
	Attrition string `yaml:"attrition"`

	// unit_economics
	Units       string `yaml:"units"`
	Price       string `yaml:"price"`
	UnitGrowth  string `yaml:"unit_growth"`
	PriceGrowth string `yaml:"price_growth"`

	// linear_percentage
	Line       string `yaml:"line"`
	Category   string `yaml:"category"`
	Percent    string `yaml:"percent"`
	Fixed      string `yaml:"fixed"`
	Complement bool   `yaml:"complement"`

	// declining_balance
	Capex      string `yaml:"capex"`
	AnnualRate string `yaml:"annual_rate"`

	// fixed_annuity_payment (also uses annual_rate)
	Principal     string `yaml:"principal"`
	MaturityYears string `yaml:"maturity_years"`

	// days_outstanding
	DSO string `yaml:"dso"`
	DIO string `yaml:"dio"`
	DPO string `yaml:"dpo"`
}

// =============================================================================
// LOADERS
// =============================================================================

// Default returns a registry over the embedded catalog.
func Default() (*Registry, error) {
	return LoadRegistry(bytes.NewReader(builtinCatalog))
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}

// LoadRegistry parses a catalog and builds its registry.
func LoadRegistry(r io.Reader) (*Registry, error) {
	cy, err := decodeCatalog(r)
	if err != nil {
		return nil, err
	}
	templates, err := FromCatalog(cy)
	if err != nil {
		return nil, err
	}
	return NewRegistry(cy.DefaultTemplate, templates...)
}

// LoadCatalog parses a catalog into templates without building a registry.
func LoadCatalog(r io.Reader) ([]*ModelTemplate, error) {
	cy, err := decodeCatalog(r)
	if err != nil {
		return nil, err
	}
	return FromCatalog(cy)
}

func decodeCatalog(r io.Reader) (CatalogYAML, error) {
	var cy CatalogYAML
	if err := yaml.NewDecoder(r).Decode(&cy); err != nil {
		return cy, fmt.Errorf("failed to parse template catalog: %w", err)
	}
	if cy.DefaultTemplate == "" {
		cy.DefaultTemplate = "general"
	}
	return cy, nil
}

// FromCatalog converts every template in the catalog.
func FromCatalog(cy CatalogYAML) ([]*ModelTemplate, error) {
	out := make([]*ModelTemplate, 0, len(cy.Templates))
	for _, ty := range cy.Templates {
		t, err := FromYAML(ty, cy.Shared)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", ty.ID, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// FromYAML converts one template, merging the shared section.
func FromYAML(ty TemplateYAML, shared SharedYAML) (*ModelTemplate, error) {
	t := &ModelTemplate{
		ID:              ty.ID,
		Name:            ty.Name,
		Description:     ty.Description,
		ApplicableTypes: append([]string(nil), ty.ApplicableTypes...),
	}

	// Inputs: template first, then shared inputs it does not override.
	seen := make(map[string]bool)
	for _, iy := range append(append([]InputYAML(nil), ty.Inputs...), shared.Inputs...) {
		if seen[iy.ID] {
			continue
		}
		seen[iy.ID] = true
		in, err := parseInput(iy)
		if err != nil {
			return nil, err
		}
		t.Inputs = append(t.Inputs, in)
	}

	rev, err := parseRevenue(ty.Revenue)
	if err != nil {
		return nil, err
	}
	t.Revenue = rev

	for _, cy := range ty.Costs {
		c, err := parseCost(cy)
		if err != nil {
			return nil, err
		}
		t.Costs = append(t.Costs, c)
	}

	schedules := ty.Schedules
	if len(schedules) == 0 {
		schedules = shared.Schedules
	}
	kinds := make(map[ScheduleKind]bool)
	for _, sy := range schedules {
		s, err := parseSchedule(sy)
		if err != nil {
			return nil, err
		}
		if kinds[s.Kind()] {
			return nil, fmt.Errorf("duplicate %s schedule", s.Kind())
		}
		kinds[s.Kind()] = true
		t.Schedules = append(t.Schedules, s)
	}

	for _, ry := range append(append([]RuleYAML(nil), ty.Rules...), shared.Rules...) {
		r, err := parseRule(ry)
		if err != nil {
			return nil, err
		}
		t.Rules = append(t.Rules, r)
	}

	if err := checkReferences(t); err != nil {
		return nil, err
	}
	return t, nil
}

// =============================================================================
// PARSERS
// =============================================================================

func parseInput(iy InputYAML) (InputDefinition, error) {
	if iy.ID == "" {
		return InputDefinition{}, fmt.Errorf("input without id")
	}
	kind := InputKind(iy.Kind)
	switch kind {
	case KindNumber, KindPercentage, KindCurrency, KindText, KindEnum:
	case "":
		kind = KindNumber
	default:
		return InputDefinition{}, fmt.Errorf("input %q: unknown kind %q", iy.ID, iy.Kind)
	}
	if kind == KindEnum && len(iy.Options) == 0 {
		return InputDefinition{}, fmt.Errorf("input %q: enum without options", iy.ID)
	}

	role := Role(iy.Role)
	switch role {
	case RoleNone, RoleGrowth, RoleAttrition, RoleMargin, RoleCost:
	default:
		return InputDefinition{}, fmt.Errorf("input %q: unknown role %q", iy.ID, iy.Role)
	}

	in := InputDefinition{
		ID:          iy.ID,
		Label:       iy.Label,
		Kind:        kind,
		Category:    iy.Category,
		Required:    iy.Required,
		Default:     normalizeDefault(iy.Default),
		DefaultFrom: iy.DefaultFrom,
		Options:     append([]string(nil), iy.Options...),
		Role:        role,
	}
	if in.Label == "" {
		in.Label = iy.ID
	}
	for _, ry := range iy.Rules {
		r, err := parseRule(ry)
		if err != nil {
			return InputDefinition{}, fmt.Errorf("input %q: %w", iy.ID, err)
		}
		switch r.Kind {
		case RuleRequired:
			in.Required = true
		case RuleRange:
		default:
			return InputDefinition{}, fmt.Errorf("input %q: rule %q belongs on the template", iy.ID, r.Kind)
		}
		in.Rules = append(in.Rules, r)
	}
	return in, nil
}

// normalizeDefault turns YAML ints into float64 so numeric defaults share one type.
func normalizeDefault(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return v
	}
}

func parseRule(ry RuleYAML) (ValidationRule, error) {
	r := ValidationRule{
		Kind:    RuleKind(ry.Kind),
		Min:     ry.Min,
		Max:     ry.Max,
		Fields:  append([]string(nil), ry.Fields...),
		Limit:   ry.Limit,
		Target:  ry.Target,
		When:    ry.When,
		Message: ry.Message,
	}
	switch r.Kind {
	case RuleRequired:
	case RuleRange:
		if r.Min == nil && r.Max == nil {
			return r, fmt.Errorf("range rule without bounds")
		}
	case RuleSumAtMost:
		if len(r.Fields) == 0 {
			return r, fmt.Errorf("sum_at_most rule without fields")
		}
	case RulePositiveWhen:
		if r.Target == "" || r.When == "" {
			return r, fmt.Errorf("positive_when rule needs target and when")
		}
	default:
		return r, fmt.Errorf("unknown rule kind %q", ry.Kind)
	}
	return r, nil
}

func parseRevenue(sy StepYAML) (RevenueModel, error) {
	switch sy.Kind {
	case "growth_compound":
		if sy.Base == "" || sy.Growth == "" {
			return nil, fmt.Errorf("growth_compound needs base and growth")
		}
		return GrowthCompound{Base: sy.Base, Growth: sy.Growth, Attrition: sy.Attrition}, nil
	case "unit_economics":
		if sy.Units == "" || sy.Price == "" {
			return nil, fmt.Errorf("unit_economics needs units and price")
		}
		return UnitEconomics{
			Units:       sy.Units,
			Price:       sy.Price,
			UnitGrowth:  sy.UnitGrowth,
			PriceGrowth: sy.PriceGrowth,
		}, nil
	default:
		return nil, fmt.Errorf("unknown revenue kind %q", sy.Kind)
	}
}

func parseCost(sy StepYAML) (LinearPercentage, error) {
	if sy.Kind != "" && sy.Kind != "linear_percentage" {
		return LinearPercentage{}, fmt.Errorf("unknown cost kind %q", sy.Kind)
	}
	cat := CostCategory(sy.Category)
	switch cat {
	case CategoryCOGS, CategoryOpex:
	default:
		return LinearPercentage{}, fmt.Errorf("cost line %q: unknown category %q", sy.Line, sy.Category)
	}
	if sy.Line == "" || (sy.Percent == "" && sy.Fixed == "") {
		return LinearPercentage{}, fmt.Errorf("cost line %q needs a percent or fixed input", sy.Line)
	}
	return LinearPercentage{
		Line:       sy.Line,
		Category:   cat,
		Percent:    sy.Percent,
		Fixed:      sy.Fixed,
		Complement: sy.Complement,
	}, nil
}

func parseSchedule(sy StepYAML) (ScheduleStep, error) {
	switch sy.Kind {
	case "declining_balance":
		return DecliningBalance{Capex: sy.Capex, AnnualRate: sy.AnnualRate}, nil
	case "fixed_annuity_payment":
		return FixedAnnuityPayment{
			Principal:     sy.Principal,
			AnnualRate:    sy.AnnualRate,
			MaturityYears: sy.MaturityYears,
		}, nil
	case "days_outstanding":
		return DaysOutstanding{DSO: sy.DSO, DIO: sy.DIO, DPO: sy.DPO}, nil
	default:
		return nil, fmt.Errorf("unknown schedule kind %q", sy.Kind)
	}
}

// checkReferences fails when a step or rule names an undeclared input.
func checkReferences(t *ModelTemplate) error {
	declared := make(map[string]bool, len(t.Inputs))
	for _, in := range t.Inputs {
		declared[in.ID] = true
	}
	check := func(where string, ids ...string) error {
		for _, id := range ids {
			if id != "" && !declared[id] {
				return fmt.Errorf("%s references undeclared input %q", where, id)
			}
		}
		return nil
	}

	var refs []error
	switch rev := t.Revenue.(type) {
	case GrowthCompound:
		refs = append(refs, check("revenue", rev.Base, rev.Growth, rev.Attrition))
	case UnitEconomics:
		refs = append(refs, check("revenue", rev.Units, rev.Price, rev.UnitGrowth, rev.PriceGrowth))
	}
	for _, c := range t.Costs {
		refs = append(refs, check("cost line "+c.Line, c.Percent, c.Fixed))
	}
	for _, s := range t.Schedules {
		switch st := s.(type) {
		case DecliningBalance:
			refs = append(refs, check("depreciation", st.Capex, st.AnnualRate))
		case FixedAnnuityPayment:
			refs = append(refs, check("debt", st.Principal, st.AnnualRate, st.MaturityYears))
		case DaysOutstanding:
			refs = append(refs, check("working capital", st.DSO, st.DIO, st.DPO))
		}
	}
	for _, in := range t.Inputs {
		refs = append(refs, check("input "+in.ID+" default_from", in.DefaultFrom))
	}
	for _, r := range t.Rules {
		refs = append(refs, check("rule "+string(r.Kind), append([]string{r.Target, r.When}, r.Fields...)...))
	}
	for _, err := range refs {
		if err != nil {
			return err
		}
	}
	return nil
}
