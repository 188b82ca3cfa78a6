package statement

import (
	"math"

	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/schedule"
)

// solveInterestIncome walks the horizon forward and settles interest on
// average cash one period at a time. Interest at t only depends on periods
// up to t, so each period is its own small fixed point: with a monthly
// rate of at most 1/12 every pass shrinks the error by more than 20x.
//
// It returns the interest series and the most passes any period needed.
func solveInterestIncome(top topLineResult, s *schedule.Set, d model.Drivers) ([]float64, int, error) {
	periods := len(top.revenue)
	income := make([]float64, periods)

	rate := d.Float(CashInterestRateKey) / 12
	if rate == 0 {
		return income, 1, nil
	}

	book := newTaxBook(d)
	cash := d.Float(OpeningCashKey)
	passes := 1

	for t := 0; t < periods; t++ {
		// Pretax income before interest on cash, and every cash movement
		// that is not net income.
		pretax := top.revenue[t] - top.cogs[t] - top.opex[t] - s.Depreciation.Expense[t] - s.Debt.Interest[t]
		other := s.Depreciation.Expense[t] - s.WorkingCapital.Change[t] - s.Depreciation.Additions[t] +
			s.Debt.NewDebt[t] - s.Debt.Principal[t]

		ending := func(interest float64) (float64, taxBook) {
			next := book
			p := pretax + interest
			return cash + p - next.tax(p) + other, next
		}

		var converged bool
		for iter := 1; iter <= MaxIterations; iter++ {
			end, _ := ending(income[t])
			next := (cash + end) / 2 * rate
			if math.IsNaN(next) || math.IsInf(next, 0) {
				return nil, 0, &model.ComputationAnomaly{
					Stage:  "income_statement",
					Field:  "interest_income",
					Period: t,
					Reason: "interest on cash is not finite",
				}
			}
			delta := math.Abs(next - income[t])
			income[t] = next
			if delta <= Tolerance*math.Max(1, math.Abs(next)) {
				passes = max(passes, iter)
				converged = true
				break
			}
		}
		if !converged {
			return nil, 0, &model.ComputationAnomaly{
				Stage:  "income_statement",
				Field:  "interest_income",
				Period: t,
				Reason: "interest on cash did not converge",
			}
		}

		cash, book = ending(income[t])
	}
	return income, passes, nil
}
