package statement_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/normalize"
	"github.com/warp/model-engine/statement"
	"github.com/warp/model-engine/template"
)

const eps = 1e-6

// =============================================================================
// TEST SETUP
// =============================================================================

func generate(t *testing.T, templateID string, raw map[string]any) *statement.Statements {
	t.Helper()
	reg, err := template.Default()
	require.NoError(t, err)
	tpl := reg.Get(templateID)

	d, err := normalize.Inputs(tpl, raw)
	require.NoError(t, err)

	st, err := statement.Generate(tpl, d)
	require.NoError(t, err)
	return st
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

func requireIdentities(t *testing.T, st *statement.Statements) {
	t.Helper()
	bs, cf := st.Balance, st.CashFlow
	for i := 0; i < st.Periods; i++ {
		assert.LessOrEqual(t, bs.ImbalanceAt(i), eps*max(1, bs.TotalAssets[i]), "balance sheet at period %d", i)
		if i > 0 {
			assert.InDelta(t, cf.EndingCash[i-1]+cf.NetCashFlow[i], cf.EndingCash[i], eps, "cash continuity at %d", i)
		}
		assert.Equal(t, cf.EndingCash[i], bs.Cash[i])
	}
}

// =============================================================================
// CONCRETE CASES
// =============================================================================

func TestGenerate_SaaS(t *testing.T) {
	// GIVEN: 50k MRR, 5% growth, 2% churn, 80% margin
	// WHEN: generating 60 periods
	// THEN: revenue compounds at 3% and gross profit is 80% of revenue

	st := generate(t, "saas", saasInputs())

	is := st.Income
	require.Len(t, is.Revenue, 60)
	assert.InDelta(t, 50000, is.Revenue[0], eps)
	assert.Greater(t, is.Revenue[11], is.Revenue[0]*1.3)
	assert.InDelta(t, is.Revenue[0]*0.8, is.GrossProfit[0], eps)
	assert.Equal(t, 1, st.Iterations)

	requireIdentities(t, st)
}

func TestGenerate_IdentitiesAcrossTemplates(t *testing.T) {
	tests := []struct {
		name     string
		template string
		raw      map[string]any
	}{
		{"saas with debt and capex", "saas", merge(saasInputs(), map[string]any{
			"initial_debt": 500_000, "capex_monthly": 20_000, "opening_cash": 100_000,
		})},
		{"ecommerce", "ecommerce", map[string]any{
			"monthly_orders": 5000, "average_order_value": 60, "opening_cash": 50_000,
		}},
		{"manufacturing", "manufacturing", map[string]any{
			"initial_revenue": 400_000, "revenue_growth_rate": 0.01, "initial_debt": 2_000_000,
			"loan_maturity_years": 3, "fixed_plant_cost": 50_000,
		}},
		{"services", "professional_services", map[string]any{
			"billable_hours": 2000, "hourly_rate": 150,
		}},
		{"general loss making", "general", map[string]any{
			"initial_revenue": 10_000, "revenue_growth_rate": -0.02, "opex_pct": 0.9,
			"loss_carryforward": 1,
		}},
		{"short horizon", "general", map[string]any{
			"initial_revenue": 10_000, "revenue_growth_rate": 0.05, "periods": 1,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := generate(t, tt.template, tt.raw)
			requireIdentities(t, st)
		})
	}
}

func merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// =============================================================================
// LINE ITEM TESTS
// =============================================================================

func TestGenerate_InterestCountedOnce(t *testing.T) {
	st := generate(t, "saas", merge(saasInputs(), map[string]any{"initial_debt": 1_000_000}))

	is, cf, debt := st.Income, st.CashFlow, st.Schedules.Debt
	for i := 0; i < st.Periods; i++ {
		assert.InDelta(t, debt.Interest[i], is.InterestExpense[i], eps)
		assert.InDelta(t, cf.DebtIssued[i]-debt.Principal[i], cf.FinancingCashFlow[i], eps)
		assert.Equal(t, is.InterestExpense[i], cf.InterestPaid[i])
	}
	assert.InDelta(t, 1_000_000, cf.DebtIssued[0], eps)
	assert.InDelta(t, 0, st.Balance.Debt[59], eps)
}

func TestGenerate_UnitEconomicsRevenue(t *testing.T) {
	st := generate(t, "ecommerce", map[string]any{
		"monthly_orders": 1000, "average_order_value": 50,
		"order_growth_rate": 0.1, "price_growth_rate": 0.0,
	})

	assert.InDelta(t, 50_000, st.Income.Revenue[0], eps)
	assert.InDelta(t, 55_000, st.Income.Revenue[1], eps)

	// Fixed G&A appears every month regardless of revenue
	var gna []float64
	for _, line := range st.Income.OpexLines {
		if line.Line == "general_administrative" {
			gna = line.Values
		}
	}
	require.NotNil(t, gna)
	assert.InDelta(t, 20_000, gna[0], eps)
}

func TestGenerate_TaxesNeverNegative(t *testing.T) {
	st := generate(t, "general", map[string]any{
		"initial_revenue": 10_000, "revenue_growth_rate": 0, "opex_pct": 0.9,
	})

	for i, tax := range st.Income.Taxes {
		assert.GreaterOrEqual(t, tax, 0.0, "period %d", i)
	}
	assert.Less(t, st.Income.NetIncome[0], 0.0)
}

func TestGenerate_LossCarryforward(t *testing.T) {
	// GIVEN: heavy early interest, then revenue growth outgrows it
	base := map[string]any{
		"initial_revenue": 100_000, "revenue_growth_rate": 0.03,
		"gross_margin": 0.4, "opex_pct": 0.25, "capex_monthly": 0,
		"initial_debt": 3_000_000, "interest_rate": 0.12, "loan_maturity_years": 10,
	}
	off := generate(t, "general", base)
	on := generate(t, "general", merge(base, map[string]any{"loss_carryforward": 1}))

	var taxesOff, taxesOn float64
	for i := range off.Income.Taxes {
		taxesOff += off.Income.Taxes[i]
		taxesOn += on.Income.Taxes[i]
	}

	// THEN: early losses shield later profits
	require.Greater(t, on.Income.LossCarryforward[0], 0.0)
	assert.Less(t, taxesOn, taxesOff)
	assert.Equal(t, make([]float64, off.Periods), off.Income.LossCarryforward)
	requireIdentities(t, on)
}

func TestGenerate_InterestOnCashConverges(t *testing.T) {
	st := generate(t, "saas", merge(saasInputs(), map[string]any{
		"opening_cash": 2_000_000, "cash_interest_rate": 0.04,
	}))

	assert.Greater(t, st.Iterations, 1)
	assert.LessOrEqual(t, st.Iterations, statement.MaxIterations)

	cf, is := st.CashFlow, st.Income
	for i := 0; i < st.Periods; i++ {
		avg := (cf.BeginningCash[i] + cf.EndingCash[i]) / 2
		assert.InDelta(t, avg*0.04/12, is.InterestIncome[i], 1e-3, "period %d", i)
	}
	requireIdentities(t, st)
}

func TestGenerate_InterestOnCashLongHorizons(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		periods int
	}{
		{"ten percent over fifty years", 0.10, 600},
		{"full rate over fifty years", 1.0, 600},
		{"twenty percent over twenty years", 0.20, 240},
		{"forty percent over ten years", 0.40, 120},
		{"sixty percent over five years", 0.60, 60},
		{"eighty percent over five years", 0.80, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: a cash-rich business earning interest at the top of the range
			raw := map[string]any{
				"initial_revenue":     10_000,
				"revenue_growth_rate": 0.01,
				"opening_cash":        1_000_000,
				"cash_interest_rate":  tt.rate,
				"periods":             tt.periods,
			}

			// WHEN: generating the statements
			st := generate(t, "general", raw)

			// THEN: every period settles and earns interest on its average cash
			require.Equal(t, tt.periods, st.Periods)
			assert.LessOrEqual(t, st.Iterations, statement.MaxIterations)
			cf, is := st.CashFlow, st.Income
			for i := 0; i < st.Periods; i++ {
				avg := (cf.BeginningCash[i] + cf.EndingCash[i]) / 2
				assert.InEpsilon(t, avg*tt.rate/12, is.InterestIncome[i], 1e-5, "period %d", i)
			}
			requireIdentities(t, st)
		})
	}
}

func TestGenerate_InterestOnCashWithCarryforward(t *testing.T) {
	// GIVEN: losses early, interest income later turning the business profitable
	st := generate(t, "general", map[string]any{
		"initial_revenue":     10_000,
		"revenue_growth_rate": 0.02,
		"opex_pct":            0.9,
		"opening_cash":        500_000,
		"cash_interest_rate":  0.5,
		"loss_carryforward":   1,
		"tax_rate":            0.3,
	})

	// THEN: interest matches the final cash balances and the books balance
	cf, is := st.CashFlow, st.Income
	for i := 0; i < st.Periods; i++ {
		avg := (cf.BeginningCash[i] + cf.EndingCash[i]) / 2
		assert.InEpsilon(t, avg*0.5/12, is.InterestIncome[i], 1e-5, "period %d", i)
	}
	requireIdentities(t, st)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := generate(t, "saas", saasInputs())
	b := generate(t, "saas", saasInputs())
	assert.Equal(t, a, b)
}

// =============================================================================
// ANOMALY TESTS
// =============================================================================

func TestGenerate_ZeroMaturityDebtIsAnomaly(t *testing.T) {
	reg, err := template.Default()
	require.NoError(t, err)
	tpl := reg.Get("saas")

	d, err := normalize.Inputs(tpl, merge(saasInputs(), map[string]any{
		"initial_debt": 100_000, "loan_maturity_years": 0,
	}))
	require.NoError(t, err)

	_, err = statement.Generate(tpl, d)
	assert.ErrorIs(t, err, model.ErrComputationAnomaly)
}

func TestGenerate_OverflowIsAnomaly(t *testing.T) {
	tpl := &template.ModelTemplate{
		ID:      "runaway",
		Revenue: template.GrowthCompound{Base: "base", Growth: "growth"},
	}
	d := model.NewDrivers(map[string]float64{"base": 1e300, "growth": 1e10, "periods": 5}, nil)

	_, err := statement.Generate(tpl, d)

	var anomaly *model.ComputationAnomaly
	require.ErrorAs(t, err, &anomaly)
	assert.Equal(t, "income_statement", anomaly.Stage)
	assert.Equal(t, "revenue", anomaly.Field)
	assert.Equal(t, 1, anomaly.Period)
}
