package schedule

import "github.com/warp/model-engine/model"

// Depreciation is a declining-balance fixed asset schedule. There are no
// assets before the first period.
type Depreciation struct {
	Beginning   []float64 `json:"beginning"`
	Additions   []float64 `json:"additions"`
	Expense     []float64 `json:"expense"`
	Ending      []float64 `json:"ending"`
	GrossAssets []float64 `json:"gross_assets"` // cumulative additions
	Accumulated []float64 `json:"accumulated"`  // cumulative expense
}

func newDepreciation(periods int) *Depreciation {
	return &Depreciation{
		Beginning:   make([]float64, periods),
		Additions:   make([]float64, periods),
		Expense:     make([]float64, periods),
		Ending:      make([]float64, periods),
		GrossAssets: make([]float64, periods),
		Accumulated: make([]float64, periods),
	}
}

// DecliningBalance depreciates (beginning + additions) at annualRate/12 each month.
func DecliningBalance(periods int, monthlyCapex, annualRate float64) (*Depreciation, error) {
	s := newDepreciation(periods)
	monthly := annualRate / 12

	var gross, accumulated float64
	for t := 0; t < periods; t++ {
		if t > 0 {
			s.Beginning[t] = s.Ending[t-1]
		}
		s.Additions[t] = monthlyCapex
		s.Expense[t] = (s.Beginning[t] + s.Additions[t]) * monthly
		s.Ending[t] = s.Beginning[t] + s.Additions[t] - s.Expense[t]

		gross += s.Additions[t]
		accumulated += s.Expense[t]
		s.GrossAssets[t] = gross
		s.Accumulated[t] = accumulated
	}

	if err := model.CheckSeries("depreciation_schedule", map[string][]float64{
		"expense": s.Expense,
		"ending":  s.Ending,
	}); err != nil {
		return nil, err
	}
	return s, nil
}
