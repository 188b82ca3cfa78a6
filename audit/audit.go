/*
Package audit runs advisory checks over a finished set of statements.

Checks never fail generation. Each one reports pass / warning / fail with
the observed value and the threshold it was compared against, so callers
can render or filter them without re-deriving anything.

CHECKS:
  revenue_growth_reasonableness  average monthly growth, annualized
  gross_margin_floor             average gross margin
  cash_flow_health               count of negative net-cash-flow periods
  interest_coverage              average operating income / average interest
  balance_sheet_identity         max |assets - (liabilities + equity)|
  cash_continuity                max |cash[t] - cash[t-1] - netCF[t]|
  debt_amortization              debt balance never rises, retires at term
  liquidity                      minimum ending cash
*/
package audit

import (
	"fmt"
	"math"

	"github.com/warp/model-engine/statement"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// Check names.
const (
	CheckRevenueGrowth    = "revenue_growth_reasonableness"
	CheckGrossMargin      = "gross_margin_floor"
	CheckCashFlowHealth   = "cash_flow_health"
	CheckInterestCoverage = "interest_coverage"
	CheckBalanceIdentity  = "balance_sheet_identity"
	CheckCashContinuity   = "cash_continuity"
	CheckDebtAmortization = "debt_amortization"
	CheckLiquidity        = "liquidity"
)

// Thresholds.
const (
	MaxAnnualGrowth      = 0.50
	GrossMarginFail      = 0.10
	GrossMarginWarn      = 0.20
	NegativeCashFlowFail = 12
	NegativeCashFlowWarn = 6
	InterestCoverageFail = 1.5
	InterestCoverageWarn = 2.0
	DefaultTolerance     = 0.01
)

// Check is one audit result.
type Check struct {
	Name      string  `json:"name"`
	Status    Status  `json:"status"`
	Message   string  `json:"message"`
	Observed  float64 `json:"observed"`
	Threshold float64 `json:"threshold"`
}

// Options tunes the checks.
type Options struct {
	// Tolerance is the absolute currency difference the identity checks allow.
	Tolerance float64
}

// Run executes every check in a fixed order.
func Run(st *statement.Statements, opts Options) []Check {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return []Check{
		revenueGrowth(st),
		grossMargin(st),
		cashFlowHealth(st),
		interestCoverage(st),
		balanceIdentity(st, opts.Tolerance),
		cashContinuity(st, opts.Tolerance),
		debtAmortization(st, opts.Tolerance),
		liquidity(st),
	}
}

// Passed reports whether no check failed.
func Passed(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

// Summary counts checks by status.
func Summary(checks []Check) map[Status]int {
	out := map[Status]int{StatusPass: 0, StatusWarning: 0, StatusFail: 0}
	for _, c := range checks {
		out[c.Status]++
	}
	return out
}

// =============================================================================
// CHECKS
// =============================================================================

func revenueGrowth(st *statement.Statements) Check {
	c := Check{Name: CheckRevenueGrowth, Threshold: MaxAnnualGrowth, Status: StatusPass}

	growth := st.Income.RevenueGrowth()
	if len(growth) == 0 {
		c.Message = "not enough revenue history to measure growth"
		return c
	}
	avg := stat.Mean(growth, nil)
	c.Observed = math.Pow(1+avg, 12) - 1

	switch {
	case avg < 0:
		c.Status = StatusFail
		c.Message = fmt.Sprintf("revenue declines on average (%.1f%% annualized)", c.Observed*100)
	case c.Observed > MaxAnnualGrowth:
		c.Status = StatusWarning
		c.Message = fmt.Sprintf("annualized growth of %.1f%% is aggressive", c.Observed*100)
	default:
		c.Message = fmt.Sprintf("annualized growth of %.1f%%", c.Observed*100)
	}
	return c
}

func grossMargin(st *statement.Statements) Check {
	c := Check{Name: CheckGrossMargin, Threshold: GrossMarginWarn, Status: StatusPass}

	is := st.Income
	var margins []float64
	for t := range is.Revenue {
		if is.Revenue[t] != 0 {
			margins = append(margins, is.GrossProfit[t]/is.Revenue[t])
		}
	}
	if len(margins) == 0 {
		c.Status = StatusWarning
		c.Message = "no revenue in any period"
		return c
	}
	c.Observed = stat.Mean(margins, nil)

	switch {
	case c.Observed < GrossMarginFail:
		c.Status = StatusFail
		c.Threshold = GrossMarginFail
		c.Message = fmt.Sprintf("average gross margin %.1f%% is below %.0f%%", c.Observed*100, GrossMarginFail*100)
	case c.Observed < GrossMarginWarn:
		c.Status = StatusWarning
		c.Message = fmt.Sprintf("average gross margin %.1f%% is thin", c.Observed*100)
	default:
		c.Message = fmt.Sprintf("average gross margin %.1f%%", c.Observed*100)
	}
	return c
}

func cashFlowHealth(st *statement.Statements) Check {
	c := Check{Name: CheckCashFlowHealth, Threshold: NegativeCashFlowWarn, Status: StatusPass}

	var negative int
	for _, v := range st.CashFlow.NetCashFlow {
		if v < 0 {
			negative++
		}
	}
	c.Observed = float64(negative)

	switch {
	case negative > NegativeCashFlowFail:
		c.Status = StatusFail
		c.Threshold = NegativeCashFlowFail
		c.Message = fmt.Sprintf("%d periods burn cash", negative)
	case negative > NegativeCashFlowWarn:
		c.Status = StatusWarning
		c.Message = fmt.Sprintf("%d periods burn cash", negative)
	default:
		c.Message = fmt.Sprintf("%d periods with negative net cash flow", negative)
	}
	return c
}

func interestCoverage(st *statement.Statements) Check {
	c := Check{Name: CheckInterestCoverage, Threshold: InterestCoverageWarn, Status: StatusPass}

	is := st.Income
	avgInterest := stat.Mean(is.InterestExpense, nil)
	if avgInterest <= 0 {
		c.Message = "no interest expense"
		return c
	}
	c.Observed = stat.Mean(is.OperatingIncome, nil) / avgInterest

	switch {
	case c.Observed < InterestCoverageFail:
		c.Status = StatusFail
		c.Threshold = InterestCoverageFail
		c.Message = fmt.Sprintf("operating income covers interest %.2fx", c.Observed)
	case c.Observed < InterestCoverageWarn:
		c.Status = StatusWarning
		c.Message = fmt.Sprintf("operating income covers interest only %.2fx", c.Observed)
	default:
		c.Message = fmt.Sprintf("interest coverage %.2fx", c.Observed)
	}
	return c
}

func balanceIdentity(st *statement.Statements, tol float64) Check {
	c := Check{Name: CheckBalanceIdentity, Threshold: tol, Status: StatusPass}

	worst, at := 0.0, -1
	for t := 0; t < st.Periods; t++ {
		if d := st.Balance.ImbalanceAt(t); d > worst {
			worst, at = d, t
		}
	}
	c.Observed = worst

	if worst > tol {
		c.Status = StatusFail
		c.Message = fmt.Sprintf("assets differ from liabilities plus equity by %.2f in period %d", worst, at)
		return c
	}
	c.Message = "assets equal liabilities plus equity in every period"
	return c
}

func cashContinuity(st *statement.Statements, tol float64) Check {
	c := Check{Name: CheckCashContinuity, Threshold: tol, Status: StatusPass}

	cf := st.CashFlow
	gaps := make([]float64, st.Periods)
	for t := 0; t < st.Periods; t++ {
		prev := cf.BeginningCash[0]
		if t > 0 {
			prev = cf.EndingCash[t-1]
		}
		gaps[t] = math.Abs(cf.EndingCash[t] - prev - cf.NetCashFlow[t])
	}
	if len(gaps) > 0 {
		c.Observed = floats.Max(gaps)
	}

	if c.Observed > tol {
		c.Status = StatusFail
		c.Message = fmt.Sprintf("ending cash breaks from net cash flow by %.2f in period %d", c.Observed, floats.MaxIdx(gaps))
		return c
	}
	c.Message = "ending cash rolls forward from net cash flow"
	return c
}

func debtAmortization(st *statement.Statements, tol float64) Check {
	c := Check{Name: CheckDebtAmortization, Threshold: tol, Status: StatusPass}

	debt := st.Schedules.Debt
	for t := 1; t < len(debt.Ending); t++ {
		if rise := debt.Ending[t] - debt.Ending[t-1]; rise > tol {
			c.Status = StatusFail
			c.Observed = rise
			c.Message = fmt.Sprintf("debt balance rises by %.2f in period %d", rise, t)
			return c
		}
	}

	if debt.TermMonths == 0 {
		c.Message = "no term debt"
		return c
	}
	if debt.TermMonths <= st.Periods {
		c.Observed = debt.Ending[debt.TermMonths-1]
		if c.Observed > tol {
			c.Status = StatusWarning
			c.Message = fmt.Sprintf("%.2f still outstanding at maturity", c.Observed)
			return c
		}
		c.Message = fmt.Sprintf("debt retired in period %d", debt.TermMonths-1)
		return c
	}
	c.Observed = debt.Ending[len(debt.Ending)-1]
	c.Message = fmt.Sprintf("debt matures after the horizon; %.2f outstanding at the end", c.Observed)
	return c
}

func liquidity(st *statement.Statements) Check {
	c := Check{Name: CheckLiquidity, Status: StatusPass}
	if st.Periods == 0 {
		c.Message = "no periods"
		return c
	}

	cash := st.CashFlow.EndingCash
	c.Observed = floats.Min(cash)
	if c.Observed < 0 {
		c.Status = StatusWarning
		c.Message = fmt.Sprintf("cash goes negative (low of %.2f in period %d); funding needed", c.Observed, floats.MinIdx(cash))
		return c
	}
	c.Message = "cash stays non-negative"
	return c
}
