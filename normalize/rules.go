package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/template"
)

// sumTolerance absorbs float noise when percentages add up to exactly the limit.
const sumTolerance = 1e-9

// CheckNumber validates one resolved numeric value against its input
// definition: finite, whole when it is the horizon, inside the range
// rules. It returns nil when f is acceptable.
func CheckNumber(in template.InputDefinition, f float64) *model.Violation {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return model.InvalidValue(in.ID, f, "must be finite")
	}
	if in.ID == model.PeriodsKey && f != math.Trunc(f) {
		return model.InvalidValue(in.ID, f, "must be a whole number")
	}
	if min, max := in.Bounds(); (min != nil && f < *min) || (max != nil && f > *max) {
		return model.RangeViolation(in.ID, f, min, max)
	}
	return nil
}

// CheckRules evaluates tpl's template-level rules against d. A rule is
// skipped when skip reports any of its fields, so one bad input yields one
// violation. skip may be nil.
func CheckRules(tpl *template.ModelTemplate, d model.Drivers, skip func(id string) bool) []*model.Violation {
	skipped := func(ids ...string) bool {
		if skip == nil {
			return false
		}
		for _, id := range ids {
			if skip(id) {
				return true
			}
		}
		return false
	}

	var out []*model.Violation
	for _, r := range tpl.Rules {
		switch r.Kind {
		case template.RuleSumAtMost:
			if skipped(r.Fields...) {
				continue
			}
			var sum float64
			for _, f := range r.Fields {
				sum += d.Float(f)
			}
			if sum > r.Limit+sumTolerance {
				msg := r.Message
				if msg == "" {
					msg = fmt.Sprintf("%s sum to %g, more than %g", strings.Join(r.Fields, " + "), sum, r.Limit)
				}
				out = append(out, model.RuleViolation(strings.Join(r.Fields, "+"), msg))
			}

		case template.RulePositiveWhen:
			if skipped(r.Target, r.When) {
				continue
			}
			if d.Float(r.When) > 0 && d.Float(r.Target) <= 0 {
				msg := r.Message
				if msg == "" {
					msg = fmt.Sprintf("%s must be positive when %s is positive", r.Target, r.When)
				}
				out = append(out, model.RuleViolation(r.Target, msg))
			}
		}
	}
	return out
}
