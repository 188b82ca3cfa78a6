package schedule

import (
	"fmt"

	"github.com/warp/model-engine/model"
)

// daysPerMonth converts day counts into a fraction of monthly flow.
const daysPerMonth = 30

// WorkingCapital derives operating balances from day-count assumptions.
// The opening balance sheet carries no working capital, so Change[0] is
// the full first-period balance.
type WorkingCapital struct {
	Receivables []float64 `json:"receivables"`
	Inventory   []float64 `json:"inventory"`
	Payables    []float64 `json:"payables"`
	Net         []float64 `json:"net"`
	Change      []float64 `json:"change"`
}

func newWorkingCapital(periods int) *WorkingCapital {
	return &WorkingCapital{
		Receivables: make([]float64, periods),
		Inventory:   make([]float64, periods),
		Payables:    make([]float64, periods),
		Net:         make([]float64, periods),
		Change:      make([]float64, periods),
	}
}

// DaysOutstanding computes AR = revenue*DSO/30, inventory = cogs*DIO/30 and
// AP = cogs*DPO/30 for each period.
func DaysOutstanding(revenue, cogs []float64, dso, dio, dpo float64) (*WorkingCapital, error) {
	if len(revenue) != len(cogs) {
		return nil, fmt.Errorf("working capital: revenue has %d periods, cogs %d", len(revenue), len(cogs))
	}
	s := newWorkingCapital(len(revenue))

	var prev float64
	for t := range revenue {
		s.Receivables[t] = revenue[t] * dso / daysPerMonth
		s.Inventory[t] = cogs[t] * dio / daysPerMonth
		s.Payables[t] = cogs[t] * dpo / daysPerMonth
		s.Net[t] = s.Receivables[t] + s.Inventory[t] - s.Payables[t]
		s.Change[t] = s.Net[t] - prev
		prev = s.Net[t]
	}

	if err := model.CheckSeries("working_capital_schedule", map[string][]float64{
		"receivables": s.Receivables,
		"inventory":   s.Inventory,
		"payables":    s.Payables,
	}); err != nil {
		return nil, err
	}
	return s, nil
}
