package scenario

import (
	"math"

	"github.com/warp/model-engine/statement"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NotRecovered is the payback period when cumulative cash never turns non-negative.
const NotRecovered = -1

// IRR solver settings. Rates are monthly inside the solver.
const (
	irrTolerance   = 1e-10
	irrMaxNewton   = 50
	irrMaxBisect   = 200
	irrLowerBound  = -0.9999
	irrInitialRate = 0.01
)

// KPIs summarizes one run.
type KPIs struct {
	TotalRevenue            float64 `json:"total_revenue"`
	TotalNetIncome          float64 `json:"total_net_income"`
	AverageGrossMargin      float64 `json:"average_gross_margin"`
	EndingCash              float64 `json:"ending_cash"`
	MinimumCash             float64 `json:"minimum_cash"`
	RevenueCAGR             float64 `json:"revenue_cagr"`              // annualized
	RevenueGrowthVolatility float64 `json:"revenue_growth_volatility"` // std dev of monthly growth
}

// Evaluate scores a statement set at the given annual discount rate.
func Evaluate(st *statement.Statements, annualDiscountRate float64) Result {
	flows := st.CashFlow.NetCashFlow
	res := Result{
		NPV:           NPV(flows, annualDiscountRate),
		PaybackPeriod: Payback(flows),
		KPIs:          Summarize(st),
	}
	if r, ok := IRR(flows); ok {
		res.IRR = &r
	}
	return res
}

// NPV discounts monthly flows: sum of flows[t] / (1 + rate/12)^t.
func NPV(flows []float64, annualRate float64) float64 {
	if len(flows) == 0 {
		return 0
	}
	return floats.Dot(flows, discountFactors(len(flows), annualRate/12))
}

func discountFactors(n int, monthly float64) []float64 {
	factors := make([]float64, n)
	f := 1.0
	for t := range factors {
		factors[t] = f
		f /= 1 + monthly
	}
	return factors
}

// IRR returns the annualized (x12) monthly rate at which NPV is zero.
// ok is false when the flows never change sign or no root is bracketed.
func IRR(flows []float64) (rate float64, ok bool) {
	if !changesSign(flows) {
		return 0, false
	}

	if r, ok := newton(flows); ok {
		return r * 12, true
	}
	if r, ok := bisect(flows); ok {
		return r * 12, true
	}
	return 0, false
}

func changesSign(flows []float64) bool {
	var pos, neg bool
	for _, f := range flows {
		pos = pos || f > 0
		neg = neg || f < 0
	}
	return pos && neg
}

// npvAt evaluates NPV and its derivative at monthly rate r.
func npvAt(flows []float64, r float64) (v, dv float64) {
	base := 1 + r
	disc := 1.0
	for t, f := range flows {
		v += f * disc
		dv -= float64(t) * f * disc / base
		disc /= base
	}
	return v, dv
}

func newton(flows []float64) (float64, bool) {
	r := irrInitialRate
	for i := 0; i < irrMaxNewton; i++ {
		v, dv := npvAt(flows, r)
		if dv == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		next := r - v/dv
		if next <= irrLowerBound || math.IsNaN(next) || math.IsInf(next, 0) {
			return 0, false
		}
		if math.Abs(next-r) < irrTolerance {
			return next, true
		}
		r = next
	}
	return 0, false
}

// bracketGrid holds monthly rates scanned for a sign change before bisection.
var bracketGrid = []float64{-0.5, -0.2, -0.1, -0.05, -0.01, 0, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

func bisect(flows []float64) (float64, bool) {
	lo, hi, ok := bracket(flows)
	if !ok {
		return 0, false
	}
	vlo, _ := npvAt(flows, lo)

	for i := 0; i < irrMaxBisect; i++ {
		mid := (lo + hi) / 2
		vmid, _ := npvAt(flows, mid)
		if math.Abs(vmid) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return mid, true
		}
		if vlo*vmid < 0 {
			hi = mid
		} else {
			lo, vlo = mid, vmid
		}
	}
	return (lo + hi) / 2, true
}

// bracket finds the first adjacent grid rates whose NPVs differ in sign.
func bracket(flows []float64) (lo, hi float64, ok bool) {
	prev, _ := npvAt(flows, bracketGrid[0])
	for i := 1; i < len(bracketGrid); i++ {
		v, _ := npvAt(flows, bracketGrid[i])
		if math.IsNaN(prev) || math.IsInf(prev, 0) {
			prev = v
			continue
		}
		if prev == 0 {
			return bracketGrid[i-1], bracketGrid[i-1], true
		}
		if !math.IsNaN(v) && !math.IsInf(v, 0) && prev*v <= 0 {
			return bracketGrid[i-1], bracketGrid[i], true
		}
		prev = v
	}
	return 0, 0, false
}

// Payback returns the first period where cumulative flows are >= 0.
func Payback(flows []float64) int {
	if len(flows) == 0 {
		return NotRecovered
	}
	cum := floats.CumSum(make([]float64, len(flows)), flows)
	for t, c := range cum {
		if c >= 0 {
			return t
		}
	}
	return NotRecovered
}

// Summarize computes the KPI block.
func Summarize(st *statement.Statements) KPIs {
	is, cf := st.Income, st.CashFlow
	n := len(is.Revenue)
	if n == 0 {
		return KPIs{}
	}

	k := KPIs{
		TotalRevenue:   floats.Sum(is.Revenue),
		TotalNetIncome: floats.Sum(is.NetIncome),
		EndingCash:     cf.EndingCash[n-1],
		MinimumCash:    floats.Min(cf.EndingCash),
	}

	var margins []float64
	for t := range is.Revenue {
		if is.Revenue[t] != 0 {
			margins = append(margins, is.GrossProfit[t]/is.Revenue[t])
		}
	}
	if len(margins) > 0 {
		k.AverageGrossMargin = stat.Mean(margins, nil)
	}

	growth := is.RevenueGrowth()
	if len(growth) > 1 {
		k.RevenueGrowthVolatility = stat.StdDev(growth, nil)
	}

	first, last := is.Revenue[0], is.Revenue[n-1]
	if n > 1 && first > 0 && last > 0 {
		k.RevenueCAGR = math.Pow(last/first, 12/float64(n-1)) - 1
	}
	return k
}
