/*
statement.go - Three-statement generator

PURPOSE:
  Turns a template and its resolved Drivers into an income statement, a
  cash flow statement and a balance sheet whose identities hold in every
  period.

ORDER OF COMPUTATION:
  1. Top line: revenue and COGS lines (needed by working capital)
  2. Schedules: depreciation, debt, working capital
  3. Interest on cash (optional), settled period by period
  4. Income statement -> cash flow -> balance sheet
  5. Non-finite scan over every output array

CONVENTIONS:
  - Interest expense is counted once: it reduces net income, which flows
    into operating cash flow. Financing cash flow carries only debt
    drawn and principal repaid. InterestPaid is a memo line.
  - Depreciation is an operating expense and is added back in operating
    cash flow.
  - The opening balance sheet holds only cash (opening_cash) funded by
    paid-in equity (initial_equity).

INTEREST ON CASH:
  Interest income on average cash depends on net income, which depends on
  interest income. Period t only depends on periods up to t, so the
  generator solves each period in a forward pass: iterate that period's
  interest until the relative change is below Tolerance, then carry its
  ending cash and tax losses into t+1. A non-finite value, or more than
  MaxIterations passes in one period, is a ComputationAnomaly.
  Iterations reports the most passes any period needed.

SEE ALSO:
  - income.go: revenue, costs, taxes
  - position.go: cash flow and balance sheet
  - schedule/: supporting schedules
*/
package statement

import (
	"math"

	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/schedule"
	"github.com/warp/model-engine/template"
)

// Per-period fixed-point bounds for interest on cash.
const (
	MaxIterations = 20
	Tolerance     = 1e-6
)

// Driver ids read directly by the generator. Every built-in template
// carries them through the shared catalog section; absent ids read as 0.
const (
	TaxRateKey          = "tax_rate"
	LossCarryforwardKey = "loss_carryforward"
	OpeningCashKey      = "opening_cash"
	InitialEquityKey    = "initial_equity"
	CashInterestRateKey = "cash_interest_rate"
)

// =============================================================================
// TYPES
// =============================================================================

// LineItem is one named cost line.
type LineItem struct {
	Line     string                `json:"line"`
	Category template.CostCategory `json:"category"`
	Values   []float64             `json:"values"`
}

// IncomeStatement is the monthly P&L.
type IncomeStatement struct {
	Revenue           []float64  `json:"revenue"`
	COGSLines         []LineItem `json:"cogs_lines"`
	COGS              []float64  `json:"cogs"`
	GrossProfit       []float64  `json:"gross_profit"`
	OpexLines         []LineItem `json:"opex_lines"`
	OperatingExpenses []float64  `json:"operating_expenses"`
	EBITDA            []float64  `json:"ebitda"`
	Depreciation      []float64  `json:"depreciation"`
	OperatingIncome   []float64  `json:"operating_income"`
	InterestExpense   []float64  `json:"interest_expense"`
	InterestIncome    []float64  `json:"interest_income"`
	PretaxIncome      []float64  `json:"pretax_income"`
	Taxes             []float64  `json:"taxes"`
	NetIncome         []float64  `json:"net_income"`

	// Unused tax losses at period end; all zero when carryforward is off.
	LossCarryforward []float64 `json:"loss_carryforward"`
}

// CashFlowStatement is the indirect-method cash flow.
type CashFlowStatement struct {
	NetIncome              []float64 `json:"net_income"`
	Depreciation           []float64 `json:"depreciation"`
	ChangeInWorkingCapital []float64 `json:"change_in_working_capital"`
	OperatingCashFlow      []float64 `json:"operating_cash_flow"`
	Capex                  []float64 `json:"capex"`
	InvestingCashFlow      []float64 `json:"investing_cash_flow"`
	DebtIssued             []float64 `json:"debt_issued"`
	DebtRepaid             []float64 `json:"debt_repaid"`
	FinancingCashFlow      []float64 `json:"financing_cash_flow"`
	NetCashFlow            []float64 `json:"net_cash_flow"`
	BeginningCash          []float64 `json:"beginning_cash"`
	EndingCash             []float64 `json:"ending_cash"`
	InterestPaid           []float64 `json:"interest_paid"` // memo, already inside net income
}

// BalanceSheet is the period-end position.
type BalanceSheet struct {
	Cash                    []float64 `json:"cash"`
	Receivables             []float64 `json:"receivables"`
	Inventory               []float64 `json:"inventory"`
	GrossFixedAssets        []float64 `json:"gross_fixed_assets"`
	AccumulatedDepreciation []float64 `json:"accumulated_depreciation"`
	NetFixedAssets          []float64 `json:"net_fixed_assets"`
	TotalAssets             []float64 `json:"total_assets"`

	Payables         []float64 `json:"payables"`
	Debt             []float64 `json:"debt"`
	TotalLiabilities []float64 `json:"total_liabilities"`

	CommonStock      []float64 `json:"common_stock"`
	RetainedEarnings []float64 `json:"retained_earnings"`
	TotalEquity      []float64 `json:"total_equity"`

	TotalLiabilitiesAndEquity []float64 `json:"total_liabilities_and_equity"`
}

// Statements is the generator output for one driver set.
type Statements struct {
	Periods    int                `json:"periods"`
	Income     *IncomeStatement   `json:"income_statement"`
	CashFlow   *CashFlowStatement `json:"cash_flow"`
	Balance    *BalanceSheet      `json:"balance_sheet"`
	Schedules  *schedule.Set      `json:"-"`
	Iterations int                `json:"iterations"`
}

// =============================================================================
// GENERATE
// =============================================================================

// Generate builds the three statements for tpl under d. It is a pure
// function: identical inputs give identical outputs.
func Generate(tpl *template.ModelTemplate, d model.Drivers) (*Statements, error) {
	periods := d.Periods()

	top := topLine(tpl, d, periods)
	if err := model.CheckSeries("income_statement", map[string][]float64{
		"revenue": top.revenue,
		"cogs":    top.cogs,
	}); err != nil {
		return nil, err
	}

	sched, err := schedule.Build(tpl, d, top.revenue, top.cogs)
	if err != nil {
		return nil, err
	}

	interestIncome, passes, err := solveInterestIncome(top, sched, d)
	if err != nil {
		return nil, err
	}

	is := incomeStatement(top, sched, d, interestIncome)
	cf := cashFlow(is, sched, d.Float(OpeningCashKey))
	bs := balanceSheet(cf, sched, is, d.Float(InitialEquityKey))
	st := &Statements{
		Periods:    periods,
		Income:     is,
		CashFlow:   cf,
		Balance:    bs,
		Schedules:  sched,
		Iterations: passes,
	}
	if err := st.scan(); err != nil {
		return nil, err
	}
	return st, nil
}

// scan reports the first non-finite value in any output array.
func (s *Statements) scan() error {
	is, cf, bs := s.Income, s.CashFlow, s.Balance
	if err := model.CheckSeries("income_statement", map[string][]float64{
		"gross_profit":       is.GrossProfit,
		"operating_expenses": is.OperatingExpenses,
		"operating_income":   is.OperatingIncome,
		"interest_expense":   is.InterestExpense,
		"interest_income":    is.InterestIncome,
		"taxes":              is.Taxes,
		"net_income":         is.NetIncome,
	}); err != nil {
		return err
	}
	if err := model.CheckSeries("cash_flow_statement", map[string][]float64{
		"operating_cash_flow": cf.OperatingCashFlow,
		"investing_cash_flow": cf.InvestingCashFlow,
		"financing_cash_flow": cf.FinancingCashFlow,
		"net_cash_flow":       cf.NetCashFlow,
		"ending_cash":         cf.EndingCash,
	}); err != nil {
		return err
	}
	return model.CheckSeries("balance_sheet", map[string][]float64{
		"total_assets":      bs.TotalAssets,
		"total_liabilities": bs.TotalLiabilities,
		"total_equity":      bs.TotalEquity,
	})
}

// ImbalanceAt returns |assets - (liabilities + equity)| for period t.
func (b *BalanceSheet) ImbalanceAt(t int) float64 {
	return math.Abs(b.TotalAssets[t] - b.TotalLiabilitiesAndEquity[t])
}
