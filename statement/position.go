package statement

import "github.com/warp/model-engine/schedule"

func cashFlow(is *IncomeStatement, s *schedule.Set, openingCash float64) *CashFlowStatement {
	periods := len(is.NetIncome)
	cf := &CashFlowStatement{
		NetIncome:              is.NetIncome,
		Depreciation:           is.Depreciation,
		ChangeInWorkingCapital: s.WorkingCapital.Change,
		OperatingCashFlow:      make([]float64, periods),
		Capex:                  s.Depreciation.Additions,
		InvestingCashFlow:      make([]float64, periods),
		DebtIssued:             s.Debt.NewDebt,
		DebtRepaid:             s.Debt.Principal,
		FinancingCashFlow:      make([]float64, periods),
		NetCashFlow:            make([]float64, periods),
		BeginningCash:          make([]float64, periods),
		EndingCash:             make([]float64, periods),
		InterestPaid:           is.InterestExpense,
	}

	cash := openingCash
	for t := 0; t < periods; t++ {
		cf.OperatingCashFlow[t] = cf.NetIncome[t] + cf.Depreciation[t] - cf.ChangeInWorkingCapital[t]
		cf.InvestingCashFlow[t] = -cf.Capex[t]
		cf.FinancingCashFlow[t] = cf.DebtIssued[t] - cf.DebtRepaid[t]
		cf.NetCashFlow[t] = cf.OperatingCashFlow[t] + cf.InvestingCashFlow[t] + cf.FinancingCashFlow[t]

		cf.BeginningCash[t] = cash
		cash += cf.NetCashFlow[t]
		cf.EndingCash[t] = cash
	}
	return cf
}

func balanceSheet(cf *CashFlowStatement, s *schedule.Set, is *IncomeStatement, equity float64) *BalanceSheet {
	periods := len(cf.EndingCash)
	wc, dep := s.WorkingCapital, s.Depreciation
	bs := &BalanceSheet{
		Cash:                    cf.EndingCash,
		Receivables:             wc.Receivables,
		Inventory:               wc.Inventory,
		GrossFixedAssets:        dep.GrossAssets,
		AccumulatedDepreciation: dep.Accumulated,
		NetFixedAssets:          make([]float64, periods),
		TotalAssets:             make([]float64, periods),

		Payables:         wc.Payables,
		Debt:             s.Debt.Ending,
		TotalLiabilities: make([]float64, periods),

		CommonStock:      make([]float64, periods),
		RetainedEarnings: make([]float64, periods),
		TotalEquity:      make([]float64, periods),

		TotalLiabilitiesAndEquity: make([]float64, periods),
	}

	var retained float64
	for t := 0; t < periods; t++ {
		bs.NetFixedAssets[t] = bs.GrossFixedAssets[t] - bs.AccumulatedDepreciation[t]
		bs.TotalAssets[t] = bs.Cash[t] + bs.Receivables[t] + bs.Inventory[t] + bs.NetFixedAssets[t]

		bs.TotalLiabilities[t] = bs.Payables[t] + bs.Debt[t]

		retained += is.NetIncome[t]
		bs.CommonStock[t] = equity
		bs.RetainedEarnings[t] = retained
		bs.TotalEquity[t] = equity + retained

		bs.TotalLiabilitiesAndEquity[t] = bs.TotalLiabilities[t] + bs.TotalEquity[t]
	}
	return bs
}
