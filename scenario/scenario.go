/*
scenario.go - Scenario variants over one driver set

PURPOSE:
  Re-runs the statement generator under perturbed drivers and scores each
  run with NPV, IRR, payback and summary KPIs.

PERTURBATION:
  Inputs are perturbed by their template Role, never by name:

    growth     v + |v| * (m - 1)   (moves up when m > 1 whatever the sign of v)
    attrition  v / m
    margin     v + delta
    cost       v - delta

  Results are clamped to the input's range rule. Optimistic uses m = 1.2,
  delta = +0.05; pessimistic m = 0.8, delta = -0.05. Custom specs carry
  their own m, delta and explicit overrides; explicit overrides are
  validated against the template like raw inputs.

USAGE:
  scenarios, err := scenario.Run(tpl, drivers, baseStatements, scenario.Defaults())
  for _, s := range scenarios {
      fmt.Println(s.Name, s.Result.NPV)
  }

SEE ALSO:
  - metrics.go: NPV, IRR, payback, KPIs
*/
package scenario

import (
	"fmt"
	"math"
	"sort"

	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/normalize"
	"github.com/warp/model-engine/statement"
	"github.com/warp/model-engine/template"
)

// Kind identifies a scenario.
type Kind string

const (
	KindBase        Kind = "base"
	KindOptimistic  Kind = "optimistic"
	KindPessimistic Kind = "pessimistic"
	KindCustom      Kind = "custom"
)

// Perturbation sizes for the built-in variants.
const (
	UpsideMultiplier   = 1.2
	DownsideMultiplier = 0.8
	MarginShift        = 0.05
)

// DiscountRateKey is the driver holding the annual discount rate.
const DiscountRateKey = "discount_rate"

// DefaultDiscountRate applies when a template has no discount_rate input.
const DefaultDiscountRate = 0.10

// =============================================================================
// TYPES
// =============================================================================

// Spec describes how to derive one scenario from the base drivers.
type Spec struct {
	Kind             Kind               `json:"kind"`
	Name             string             `json:"name"`
	GrowthMultiplier float64            `json:"growth_multiplier,omitempty"` // 0 means 1
	MarginDelta      float64            `json:"margin_delta,omitempty"`
	Overrides        map[string]float64 `json:"overrides,omitempty"`
}

// Result scores one scenario.
type Result struct {
	NPV           float64  `json:"npv"`
	IRR           *float64 `json:"irr"`            // annualized; nil when undefined
	PaybackPeriod int      `json:"payback_period"` // NotRecovered when never
	KPIs          KPIs     `json:"kpis"`
}

// Scenario is one evaluated variant.
type Scenario struct {
	Kind       Kind                  `json:"kind"`
	Name       string                `json:"name"`
	Overrides  map[string]float64    `json:"overrides"` // effective driver changes
	Result     Result                `json:"result"`
	Statements *statement.Statements `json:"-"`
}

// Base returns the unperturbed spec.
func Base() Spec { return Spec{Kind: KindBase, Name: "Base case"} }

// Optimistic returns the upside spec.
func Optimistic() Spec {
	return Spec{Kind: KindOptimistic, Name: "Optimistic", GrowthMultiplier: UpsideMultiplier, MarginDelta: MarginShift}
}

// Pessimistic returns the downside spec.
func Pessimistic() Spec {
	return Spec{Kind: KindPessimistic, Name: "Pessimistic", GrowthMultiplier: DownsideMultiplier, MarginDelta: -MarginShift}
}

// Defaults returns base, optimistic and pessimistic, in that order.
func Defaults() []Spec {
	return []Spec{Base(), Optimistic(), Pessimistic()}
}

// =============================================================================
// RUN
// =============================================================================

// Run evaluates every spec. base, when non-nil, is reused for specs that
// change nothing. Any invalid custom spec fails the whole run before
// anything is computed.
func Run(tpl *template.ModelTemplate, d model.Drivers, base *statement.Statements, specs []Spec) ([]*Scenario, error) {
	overrides := make([]map[string]float64, len(specs))
	report := &model.ValidationReport{TemplateID: tpl.ID}
	for i, spec := range specs {
		o, violations := Overrides(tpl, d, spec)
		for _, v := range violations {
			report.Add(v)
		}
		overrides[i] = o
	}
	if !report.Empty() {
		return nil, report
	}

	rate := DefaultDiscountRate
	if r, ok := d.Lookup(DiscountRateKey); ok {
		rate = r
	}

	out := make([]*Scenario, 0, len(specs))
	for i, spec := range specs {
		st := base
		if st == nil || len(overrides[i]) > 0 {
			var err error
			st, err = statement.Generate(tpl, d.With(overrides[i]))
			if err != nil {
				return nil, fmt.Errorf("scenario %q: %w", spec.Name, err)
			}
		}
		out = append(out, &Scenario{
			Kind:       spec.Kind,
			Name:       spec.Name,
			Overrides:  overrides[i],
			Result:     Evaluate(st, rate),
			Statements: st,
		})
	}
	return out, nil
}

// Overrides computes the driver changes spec makes to d. Unchanged values
// are omitted. Explicit overrides are checked like raw inputs: unknown,
// non-numeric, non-finite or out-of-range values and broken template rules
// come back as violations.
func Overrides(tpl *template.ModelTemplate, d model.Drivers, spec Spec) (map[string]float64, []*model.Violation) {
	m := spec.GrowthMultiplier
	if m == 0 {
		m = 1
	}
	delta := spec.MarginDelta
	out := make(map[string]float64)

	for _, in := range tpl.Inputs {
		v, ok := d.Lookup(in.ID)
		if !ok || in.Role == template.RoleNone {
			continue
		}
		next := v
		switch in.Role {
		case template.RoleGrowth:
			next = v + math.Abs(v)*(m-1)
		case template.RoleAttrition:
			next = v / m
		case template.RoleMargin:
			next = v + delta
		case template.RoleCost:
			next = v - delta
		}
		next = clamp(next, in)
		if next != v {
			out[in.ID] = next
		}
	}

	var violations []*model.Violation
	failed := make(map[string]bool)
	ids := make([]string, 0, len(spec.Overrides))
	for id := range spec.Overrides {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		v := spec.Overrides[id]
		in, ok := tpl.Input(id)
		switch {
		case !ok:
			violations = append(violations, model.InvalidValue(id, v, "not an input of template "+tpl.ID))
			failed[id] = true
			continue
		case !in.Kind.IsNumeric():
			violations = append(violations, model.InvalidValue(id, v, "only numeric inputs can be overridden"))
			failed[id] = true
			continue
		}
		if violation := normalize.CheckNumber(in, v); violation != nil {
			violations = append(violations, violation)
			failed[id] = true
			continue
		}
		if cur, ok := d.Lookup(id); !ok || cur != v {
			out[id] = v
		} else {
			delete(out, id)
		}
	}

	// Template rules see the merged drivers, as they would for raw input.
	if len(spec.Overrides) > 0 {
		skip := func(id string) bool { return failed[id] }
		violations = append(violations, normalize.CheckRules(tpl, d.With(out), skip)...)
	}
	return out, violations
}

func clamp(v float64, in template.InputDefinition) float64 {
	min, max := in.Bounds()
	if min != nil && v < *min {
		v = *min
	}
	if max != nil && v > *max {
		v = *max
	}
	return v
}
