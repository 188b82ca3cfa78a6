/*
normalize.go - Raw inputs to validated Drivers

PURPOSE:
  Applies a template's input contract to a raw key/value map: coercion,
  defaults, required checks, range checks and template-level rules.
  Produces an immutable model.Drivers or a single ValidationReport listing
  every problem found.

RESOLUTION ORDER (per input):
  1. raw[id] when present and non-nil
  2. the input's Default
  3. the resolved value of DefaultFrom
  4. nothing: MissingRequiredInput when Required, otherwise omitted

COERCION:
  Numeric kinds accept float/int types, json.Number, numeric strings
  (parsed with shopspring/decimal so "0.05" and "1e3" behave) and bools
  (true = 1). Text accepts strings. Enum accepts one of Options,
  case-insensitively, and stores the canonical option.

  Unknown raw keys are ignored.

SEE ALSO:
  - template/types.go: InputDefinition, ValidationRule
  - model/errors.go: Violation, ValidationReport
*/
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/template"
)

// Inputs validates raw against tpl and returns the resolved drivers.
// All violations are collected before returning; no partial result is
// returned on failure.
func Inputs(tpl *template.ModelTemplate, raw map[string]any) (model.Drivers, error) {
	n := &normalizer{
		tpl:    tpl,
		raw:    raw,
		nums:   make(map[string]float64),
		texts:  make(map[string]string),
		failed: make(map[string]bool),
		report: &model.ValidationReport{TemplateID: tpl.ID},
	}

	var deferred []template.InputDefinition
	for _, in := range tpl.Inputs {
		if n.present(in.ID) || in.Default != nil || in.DefaultFrom == "" {
			n.resolve(in, nil, false)
			continue
		}
		deferred = append(deferred, in)
	}

	// DefaultFrom chains resolve in as many passes as they are deep.
	for len(deferred) > 0 {
		var next []template.InputDefinition
		for _, in := range deferred {
			src, ok := n.value(in.DefaultFrom)
			if !ok && !n.settled(in.DefaultFrom, deferred) {
				next = append(next, in)
				continue
			}
			n.resolve(in, src, ok)
		}
		if len(next) == len(deferred) {
			// Cycle: resolve the remainder without their defaults.
			for _, in := range next {
				n.resolve(in, nil, false)
			}
			break
		}
		deferred = next
	}

	d := model.NewDrivers(n.nums, n.texts)
	for _, v := range CheckRules(tpl, d, func(id string) bool { return n.failed[id] }) {
		n.report.Add(v)
	}

	if !n.report.Empty() {
		return model.Drivers{}, n.report
	}
	return d, nil
}

// =============================================================================
// NORMALIZER
// =============================================================================

type normalizer struct {
	tpl    *template.ModelTemplate
	raw    map[string]any
	nums   map[string]float64
	texts  map[string]string
	failed map[string]bool
	report *model.ValidationReport
}

func (n *normalizer) present(id string) bool {
	v, ok := n.raw[id]
	return ok && v != nil
}

func (n *normalizer) value(id string) (any, bool) {
	if v, ok := n.nums[id]; ok {
		return v, true
	}
	if v, ok := n.texts[id]; ok {
		return v, true
	}
	return nil, false
}

// settled reports whether id will not change in a later pass.
func (n *normalizer) settled(id string, pending []template.InputDefinition) bool {
	for _, in := range pending {
		if in.ID == id {
			return false
		}
	}
	return true
}

// resolve picks the value for one input and validates it. fallback is the
// DefaultFrom source value, used only when hasFallback is set.
func (n *normalizer) resolve(in template.InputDefinition, fallback any, hasFallback bool) {
	var v any
	switch {
	case n.present(in.ID):
		v = n.raw[in.ID]
	case in.Default != nil:
		v = in.Default
	case hasFallback:
		v = fallback
	default:
		if in.Required {
			n.fail(in.ID, model.MissingRequiredInput(in.ID))
		}
		return
	}

	if in.Kind.IsNumeric() {
		f, err := toFloat(v)
		if err != nil {
			n.fail(in.ID, model.InvalidValue(in.ID, v, err.Error()))
			return
		}
		if violation := CheckNumber(in, f); violation != nil {
			n.fail(in.ID, violation)
			return
		}
		n.nums[in.ID] = f
		return
	}

	s, ok := v.(string)
	if !ok {
		n.fail(in.ID, model.InvalidValue(in.ID, v, fmt.Sprintf("expected text, got %T", v)))
		return
	}
	s = strings.TrimSpace(s)
	if in.Kind == template.KindEnum {
		canonical, ok := matchOption(in.Options, s)
		if !ok {
			n.fail(in.ID, model.InvalidValue(in.ID, v,
				fmt.Sprintf("must be one of %s", strings.Join(in.Options, ", "))))
			return
		}
		s = canonical
	}
	if s == "" && in.Required {
		n.fail(in.ID, model.MissingRequiredInput(in.ID))
		return
	}
	n.texts[in.ID] = s
}

func (n *normalizer) fail(id string, v *model.Violation) {
	n.failed[id] = true
	n.report.Add(v)
}

// =============================================================================
// COERCION
// =============================================================================

func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x.String())
		}
		f = d.InexactFloat64()
	case decimal.Decimal:
		f = x.InexactFloat64()
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", ""))
		pct := strings.HasSuffix(s, "%")
		s = strings.TrimSuffix(s, "%")
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		if pct {
			d = d.Shift(-2)
		}
		f = d.InexactFloat64()
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be finite")
	}
	return f, nil
}

func matchOption(options []string, s string) (string, bool) {
	for _, opt := range options {
		if strings.EqualFold(opt, s) {
			return opt, true
		}
	}
	return "", false
}
