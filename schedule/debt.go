package schedule

import (
	"math"

	"github.com/warp/model-engine/model"
)

// Debt is a fixed-payment term loan drawn in full in the first period.
type Debt struct {
	Beginning []float64 `json:"beginning"`
	NewDebt   []float64 `json:"new_debt"`
	Payment   []float64 `json:"payment"`
	Interest  []float64 `json:"interest"`
	Principal []float64 `json:"principal"`
	Ending    []float64 `json:"ending"`

	MonthlyPayment float64 `json:"monthly_payment"`
	TermMonths     int     `json:"term_months"`
}

func newDebt(periods int) *Debt {
	return &Debt{
		Beginning: make([]float64, periods),
		NewDebt:   make([]float64, periods),
		Payment:   make([]float64, periods),
		Interest:  make([]float64, periods),
		Principal: make([]float64, periods),
		Ending:    make([]float64, periods),
	}
}

// AnnuityPayment returns the constant payment that retires principal over n
// periods at rate r per period. With r == 0 it is principal/n.
func AnnuityPayment(principal, r float64, n int) float64 {
	if r == 0 {
		return principal / float64(n)
	}
	growth := math.Pow(1+r, float64(n))
	return principal * r * growth / (growth - 1)
}

// Amortize builds the loan schedule. Balances never increase after the draw
// and reach zero in the last term month when it falls inside the horizon.
func Amortize(periods int, principal, annualRate, maturityYears float64) (*Debt, error) {
	s := newDebt(periods)
	if principal == 0 || periods == 0 {
		return s, nil
	}

	r := annualRate / 12
	n := int(math.Round(maturityYears * 12))
	if n <= 0 {
		return nil, &model.ComputationAnomaly{
			Stage:  "debt_schedule",
			Field:  "payment",
			Period: -1,
			Value:  math.Inf(1),
			Reason: "loan has principal but zero maturity",
		}
	}

	payment := AnnuityPayment(principal, r, n)
	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return nil, &model.ComputationAnomaly{
			Stage:  "debt_schedule",
			Field:  "payment",
			Period: -1,
			Value:  payment,
			Reason: "annuity payment is not finite",
		}
	}
	s.MonthlyPayment = payment
	s.TermMonths = n
	s.NewDebt[0] = principal

	for t := 0; t < periods; t++ {
		if t == 0 {
			s.Beginning[t] = principal
		} else {
			s.Beginning[t] = s.Ending[t-1]
		}
		if s.Beginning[t] <= 0 {
			continue
		}

		s.Interest[t] = s.Beginning[t] * r
		p := math.Min(payment-s.Interest[t], s.Beginning[t])
		if t == n-1 {
			p = s.Beginning[t] // clear floating residue on the last term payment
		}
		s.Principal[t] = math.Max(p, 0)
		s.Payment[t] = s.Interest[t] + s.Principal[t]
		s.Ending[t] = s.Beginning[t] - s.Principal[t]
	}

	if err := model.CheckSeries("debt_schedule", map[string][]float64{
		"interest":  s.Interest,
		"principal": s.Principal,
		"ending":    s.Ending,
	}); err != nil {
		return nil, err
	}
	return s, nil
}
