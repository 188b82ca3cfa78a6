package normalize_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/normalize"
	"github.com/warp/model-engine/template"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func templateFor(t *testing.T, id string) *template.ModelTemplate {
	t.Helper()
	reg, err := template.Default()
	require.NoError(t, err)
	tpl, ok := reg.Lookup(id)
	require.True(t, ok, "template %s", id)
	return tpl
}

func saasInputs() map[string]any {
	return map[string]any{
		"initial_mrr":         50000,
		"revenue_growth_rate": 0.05,
		"churn_rate":          0.02,
		"gross_margin":        0.8,
		"tax_rate":            0.25,
	}
}

func requireReport(t *testing.T, err error) *model.ValidationReport {
	t.Helper()
	require.Error(t, err)
	var report *model.ValidationReport
	require.ErrorAs(t, err, &report)
	return report
}

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestInputs_AppliesDefaults(t *testing.T) {
	d, err := normalize.Inputs(templateFor(t, "saas"), saasInputs())
	require.NoError(t, err)

	assert.Equal(t, 50000.0, d.Float("initial_mrr"))
	assert.Equal(t, 0.30, d.Float("sales_marketing_pct"))
	assert.Equal(t, 60, d.Periods())
	assert.Equal(t, 0.08, d.Float("interest_rate"))
	assert.Equal(t, "USD", d.Text("reporting_currency"))
}

func TestInputs_DefaultFrom(t *testing.T) {
	tpl := templateFor(t, "general")

	t.Run("equity follows opening cash", func(t *testing.T) {
		d, err := normalize.Inputs(tpl, map[string]any{
			"initial_revenue":     10000,
			"revenue_growth_rate": 0.05,
			"opening_cash":        250000,
		})
		require.NoError(t, err)
		assert.Equal(t, 250000.0, d.Float("initial_equity"))
	})

	t.Run("explicit equity wins", func(t *testing.T) {
		d, err := normalize.Inputs(tpl, map[string]any{
			"initial_revenue":     10000,
			"revenue_growth_rate": 0.05,
			"opening_cash":        250000,
			"initial_equity":      100000,
		})
		require.NoError(t, err)
		assert.Equal(t, 100000.0, d.Float("initial_equity"))
	})
}

func TestInputs_Coercion(t *testing.T) {
	tpl := templateFor(t, "general")

	tests := []struct {
		name     string
		value    any
		expected float64
	}{
		{"float", 0.05, 0.05},
		{"int", 0, 0},
		{"json number", json.Number("0.07"), 0.07},
		{"numeric string", "0.03", 0.03},
		{"percent string", "4%", 0.04},
		{"bool", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := normalize.Inputs(tpl, map[string]any{
				"initial_revenue":     "12,500",
				"revenue_growth_rate": tt.value,
			})
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, d.Float("revenue_growth_rate"), 1e-12)
			assert.Equal(t, 12500.0, d.Float("initial_revenue"))
		})
	}
}

func TestInputs_EnumIsCanonicalized(t *testing.T) {
	in := saasInputs()
	in["reporting_currency"] = "eur"

	d, err := normalize.Inputs(templateFor(t, "saas"), in)
	require.NoError(t, err)
	assert.Equal(t, "EUR", d.Text("reporting_currency"))
}

func TestInputs_UnknownKeysIgnored(t *testing.T) {
	in := saasInputs()
	in["favourite_colour"] = "green"

	d, err := normalize.Inputs(templateFor(t, "saas"), in)
	require.NoError(t, err)
	assert.False(t, d.Has("favourite_colour"))
}

func TestInputs_Deterministic(t *testing.T) {
	tpl := templateFor(t, "saas")

	a, err := normalize.Inputs(tpl, saasInputs())
	require.NoError(t, err)
	b, err := normalize.Inputs(tpl, saasInputs())
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestInputs_MissingRequired_AllReported(t *testing.T) {
	// GIVEN: the saas template and no inputs
	// WHEN: normalizing
	// THEN: one report lists every required field

	_, err := normalize.Inputs(templateFor(t, "saas"), map[string]any{})

	report := requireReport(t, err)
	assert.Equal(t, "saas", report.TemplateID)
	assert.Equal(t, []string{"initial_mrr", "revenue_growth_rate", "churn_rate", "gross_margin"}, report.Fields())
	assert.ErrorIs(t, err, model.ErrMissingRequiredInput)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.True(t, model.IsClientError(err))
}

func TestInputs_MixedViolations(t *testing.T) {
	// GIVEN: one missing field, one out of range, one wrong type
	in := map[string]any{
		"revenue_growth_rate": 0.05,
		"churn_rate":          1.5,
		"gross_margin":        "lots",
	}

	_, err := normalize.Inputs(templateFor(t, "saas"), in)

	report := requireReport(t, err)
	require.Len(t, report.Violations, 3)

	codes := map[string]model.ViolationCode{}
	for _, v := range report.Violations {
		codes[v.Field] = v.Code
	}
	assert.Equal(t, model.CodeMissingRequired, codes["initial_mrr"])
	assert.Equal(t, model.CodeRange, codes["churn_rate"])
	assert.Equal(t, model.CodeInvalidValue, codes["gross_margin"])

	assert.ErrorIs(t, err, model.ErrRangeViolation)
	assert.ErrorIs(t, err, model.ErrInvalidValue)
}

func TestInputs_RangeViolationCarriesBounds(t *testing.T) {
	in := saasInputs()
	in["tax_rate"] = -0.1

	_, err := normalize.Inputs(templateFor(t, "saas"), in)

	var v *model.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, "tax_rate", v.Field)
	require.NotNil(t, v.Min)
	require.NotNil(t, v.Max)
	assert.Equal(t, 0.0, *v.Min)
	assert.Equal(t, 1.0, *v.Max)
	assert.Equal(t, -0.1, v.Value)
}

func TestInputs_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"enum not in options", "reporting_currency", "XYZ"},
		{"text for enum must be string", "reporting_currency", 12},
		{"fractional periods", "periods", 12.5},
		{"unsupported type", "tax_rate", []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := saasInputs()
			in[tt.field] = tt.value

			_, err := normalize.Inputs(templateFor(t, "saas"), in)

			report := requireReport(t, err)
			require.Len(t, report.Violations, 1)
			assert.Equal(t, tt.field, report.Violations[0].Field)
			assert.Equal(t, model.CodeInvalidValue, report.Violations[0].Code)
		})
	}
}

func TestInputs_SumAtMostRule(t *testing.T) {
	in := saasInputs()
	in["sales_marketing_pct"] = 0.6
	in["rnd_pct"] = 0.3
	in["gna_pct"] = 0.2

	_, err := normalize.Inputs(templateFor(t, "saas"), in)

	report := requireReport(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, model.CodeRule, report.Violations[0].Code)
	assert.ErrorIs(t, err, model.ErrRuleViolation)
}

func TestInputs_SumAtMostRule_ExactLimitPasses(t *testing.T) {
	in := saasInputs()
	in["sales_marketing_pct"] = 0.7
	in["rnd_pct"] = 0.2
	in["gna_pct"] = 0.1

	_, err := normalize.Inputs(templateFor(t, "saas"), in)
	assert.NoError(t, err)
}

func TestInputs_PositiveWhenRule(t *testing.T) {
	tpl := templateFor(t, "ecommerce")

	_, err := normalize.Inputs(tpl, map[string]any{
		"monthly_orders":      1000,
		"average_order_value": 0,
	})
	report := requireReport(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "average_order_value", report.Violations[0].Field)

	// No orders, no constraint on price
	_, err = normalize.Inputs(tpl, map[string]any{
		"monthly_orders":      0,
		"average_order_value": 0,
	})
	assert.NoError(t, err)
}

func TestInputs_RuleSkippedWhenFieldAlreadyFailed(t *testing.T) {
	in := saasInputs()
	in["sales_marketing_pct"] = 5.0 // range violation

	_, err := normalize.Inputs(templateFor(t, "saas"), in)

	report := requireReport(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, model.CodeRange, report.Violations[0].Code)
}

func TestCheckRules_OnResolvedDrivers(t *testing.T) {
	tpl := templateFor(t, "saas")
	d, err := normalize.Inputs(tpl, saasInputs())
	require.NoError(t, err)

	over := d.With(map[string]float64{"sales_marketing_pct": 0.9, "rnd_pct": 0.9})
	violations := normalize.CheckRules(tpl, over, nil)
	require.Len(t, violations, 1)
	assert.Equal(t, model.CodeRule, violations[0].Code)

	skip := func(id string) bool { return id == "rnd_pct" }
	assert.Empty(t, normalize.CheckRules(tpl, over, skip))
	assert.Empty(t, normalize.CheckRules(tpl, d, nil))
}

func TestCheckNumber(t *testing.T) {
	tpl := templateFor(t, "saas")
	periods, ok := tpl.Input("periods")
	require.True(t, ok)

	assert.Nil(t, normalize.CheckNumber(periods, 24))
	assert.Equal(t, model.CodeInvalidValue, normalize.CheckNumber(periods, 12.5).Code)
	assert.Equal(t, model.CodeRange, normalize.CheckNumber(periods, 601).Code)
}
