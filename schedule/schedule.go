/*
Package schedule computes the supporting schedules behind the statements.

KEY CONCEPTS:
  - Every schedule is a per-period roll-forward:
      ending[t] = beginning[t] + inflow[t] - outflow[t]
      beginning[t+1] = ending[t]
  - Calculators are pure functions of plain numbers; Build resolves a
    template's steps against Drivers and dispatches with a type switch.
  - Non-finite results are reported as *model.ComputationAnomaly, never
    written into a returned schedule.

SCHEDULES:
  Depreciation    - declining balance on capex additions
  Debt            - fixed-payment amortizing term loan
  WorkingCapital  - receivables / inventory / payables from day counts

A template without a given schedule gets an all-zero one, so the statement
generator never branches on presence.
*/
package schedule

import (
	"fmt"

	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/template"
)

// Set bundles the three schedules for one request.
type Set struct {
	Depreciation   *Depreciation   `json:"depreciation"`
	Debt           *Debt           `json:"debt"`
	WorkingCapital *WorkingCapital `json:"working_capital"`
}

// Build computes every schedule declared by tpl. revenue and cogs are the
// top-of-income-statement lines the working capital schedule is driven by.
func Build(tpl *template.ModelTemplate, d model.Drivers, revenue, cogs []float64) (*Set, error) {
	periods := d.Periods()
	if len(revenue) != periods || len(cogs) != periods {
		return nil, fmt.Errorf("schedule: revenue/cogs length %d/%d, want %d", len(revenue), len(cogs), periods)
	}

	set := &Set{
		Depreciation:   newDepreciation(periods),
		Debt:           newDebt(periods),
		WorkingCapital: newWorkingCapital(periods),
	}

	for _, step := range tpl.Schedules {
		var err error
		switch s := step.(type) {
		case template.DecliningBalance:
			set.Depreciation, err = DecliningBalance(periods, d.Float(s.Capex), d.Float(s.AnnualRate))
		case template.FixedAnnuityPayment:
			set.Debt, err = Amortize(periods, d.Float(s.Principal), d.Float(s.AnnualRate), d.Float(s.MaturityYears))
		case template.DaysOutstanding:
			set.WorkingCapital, err = DaysOutstanding(revenue, cogs, d.Float(s.DSO), d.Float(s.DIO), d.Float(s.DPO))
		default:
			err = fmt.Errorf("schedule: unsupported step %T", step)
		}
		if err != nil {
			return nil, err
		}
	}
	return set, nil
}
