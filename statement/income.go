package statement

import (
	"math"

	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/schedule"
	"github.com/warp/model-engine/template"
)

// topLineResult holds the lines computed before any schedule.
type topLineResult struct {
	revenue   []float64
	cogs      []float64
	cogsLines []LineItem
	opex      []float64
	opexLines []LineItem
}

func topLine(tpl *template.ModelTemplate, d model.Drivers, periods int) topLineResult {
	rev := Revenue(tpl.Revenue, d, periods)
	out := topLineResult{
		revenue: rev,
		cogs:    make([]float64, periods),
		opex:    make([]float64, periods),
	}

	for _, c := range tpl.Costs {
		pct := d.Float(c.Percent)
		if c.Complement {
			pct = 1 - pct
		}
		fixed := d.Float(c.Fixed)

		values := make([]float64, periods)
		total := out.opex
		if c.Category == template.CategoryCOGS {
			total = out.cogs
		}
		for t := range values {
			values[t] = rev[t]*pct + fixed
			total[t] += values[t]
		}

		item := LineItem{Line: c.Line, Category: c.Category, Values: values}
		if c.Category == template.CategoryCOGS {
			out.cogsLines = append(out.cogsLines, item)
		} else {
			out.opexLines = append(out.opexLines, item)
		}
	}
	return out
}

// Revenue evaluates a revenue model over the horizon.
func Revenue(m template.RevenueModel, d model.Drivers, periods int) []float64 {
	rev := make([]float64, periods)
	if periods == 0 {
		return rev
	}

	switch r := m.(type) {
	case template.GrowthCompound:
		factor := 1 + d.Float(r.Growth) - d.Float(r.Attrition)
		rev[0] = d.Float(r.Base)
		for t := 1; t < periods; t++ {
			rev[t] = rev[t-1] * factor
		}

	case template.UnitEconomics:
		units, price := d.Float(r.Units), d.Float(r.Price)
		ug, pg := 1+d.Float(r.UnitGrowth), 1+d.Float(r.PriceGrowth)
		for t := 0; t < periods; t++ {
			rev[t] = units * price
			units *= ug
			price *= pg
		}
	}
	return rev
}

func incomeStatement(top topLineResult, s *schedule.Set, d model.Drivers, interestIncome []float64) *IncomeStatement {
	periods := len(top.revenue)
	is := &IncomeStatement{
		Revenue:           top.revenue,
		COGSLines:         top.cogsLines,
		COGS:              top.cogs,
		GrossProfit:       make([]float64, periods),
		OpexLines:         top.opexLines,
		OperatingExpenses: top.opex,
		EBITDA:            make([]float64, periods),
		Depreciation:      s.Depreciation.Expense,
		OperatingIncome:   make([]float64, periods),
		InterestExpense:   s.Debt.Interest,
		InterestIncome:    interestIncome,
		PretaxIncome:      make([]float64, periods),
		Taxes:             make([]float64, periods),
		NetIncome:         make([]float64, periods),
		LossCarryforward:  make([]float64, periods),
	}

	book := newTaxBook(d)
	for t := 0; t < periods; t++ {
		is.GrossProfit[t] = is.Revenue[t] - is.COGS[t]
		is.EBITDA[t] = is.GrossProfit[t] - is.OperatingExpenses[t]
		is.OperatingIncome[t] = is.EBITDA[t] - is.Depreciation[t]
		is.PretaxIncome[t] = is.OperatingIncome[t] - is.InterestExpense[t] + is.InterestIncome[t]

		is.Taxes[t] = book.tax(is.PretaxIncome[t])
		if book.carry {
			is.LossCarryforward[t] = book.unused
		}
		is.NetIncome[t] = is.PretaxIncome[t] - is.Taxes[t]
	}
	return is
}

// taxBook tracks tax losses carried between periods.
type taxBook struct {
	rate   float64
	carry  bool
	unused float64
}

func newTaxBook(d model.Drivers) taxBook {
	return taxBook{rate: d.Float(TaxRateKey), carry: d.Bool(LossCarryforwardKey)}
}

// tax returns the tax due on pretax income and books any loss used or
// created.
func (b *taxBook) tax(pretax float64) float64 {
	taxable := pretax
	if b.carry {
		if taxable < 0 {
			b.unused -= taxable
			taxable = 0
		} else {
			used := math.Min(b.unused, taxable)
			b.unused -= used
			taxable -= used
		}
	}
	return math.Max(0, taxable) * b.rate
}

// RevenueGrowth returns period-over-period revenue growth, skipping
// periods whose prior revenue is zero.
func (is *IncomeStatement) RevenueGrowth() []float64 {
	var out []float64
	for t := 1; t < len(is.Revenue); t++ {
		if is.Revenue[t-1] != 0 {
			out = append(out, is.Revenue[t]/is.Revenue[t-1]-1)
		}
	}
	return out
}
