/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Responses carry the
  finished arrays of a model, rounded for display; the engine's own types
  keep full float precision.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

ROUNDING:
  Money amounts are rounded half away from zero to MoneyPlaces decimals
  with shopspring/decimal. Ratios (margins, IRR, KPIs that are rates) are
  rounded to RatePlaces.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/model.go: FinancialModel
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/model-engine/audit"
	"github.com/warp/model-engine/engine"
	"github.com/warp/model-engine/scenario"
	"github.com/warp/model-engine/schedule"
	"github.com/warp/model-engine/statement"
	"github.com/warp/model-engine/template"
)

// Display precision.
const (
	MoneyPlaces = 2
	RatePlaces  = 6
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateModelRequest is the body of POST /api/models.
type CreateModelRequest struct {
	BusinessTypeID string          `json:"business_type_id"`
	Inputs         map[string]any  `json:"inputs"`
	Scenarios      []scenario.Spec `json:"scenarios,omitempty"`

	// Reuse returns a stored model generated from the same template and
	// resolved inputs instead of generating again. Ignored when custom
	// scenarios are given.
	Reuse bool `json:"reuse,omitempty"`
}

// =============================================================================
// TEMPLATE TYPES
// =============================================================================

// TemplateDTO describes a template and the inputs it accepts.
type TemplateDTO struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	ApplicableTypes []string   `json:"applicable_types"`
	Default         bool       `json:"default"`
	RevenueModel    string     `json:"revenue_model"`
	Inputs          []InputDTO `json:"inputs,omitempty"`
	Required        []string   `json:"required,omitempty"`
}

// InputDTO describes one template input.
type InputDTO struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Kind        string   `json:"kind"`
	Category    string   `json:"category,omitempty"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	DefaultFrom string   `json:"default_from,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Options     []string `json:"options,omitempty"`
	Role        string   `json:"role,omitempty"`
}

func toTemplateDTO(t *template.ModelTemplate, isDefault, withInputs bool) TemplateDTO {
	dto := TemplateDTO{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		ApplicableTypes: t.ApplicableTypes,
		Default:         isDefault,
	}
	switch t.Revenue.(type) {
	case template.GrowthCompound:
		dto.RevenueModel = "growth_compound"
	case template.UnitEconomics:
		dto.RevenueModel = "unit_economics"
	}
	if !withInputs {
		return dto
	}

	dto.Required = t.RequiredInputs()
	for _, in := range t.Inputs {
		min, max := in.Bounds()
		dto.Inputs = append(dto.Inputs, InputDTO{
			ID:          in.ID,
			Label:       in.Label,
			Kind:        string(in.Kind),
			Category:    in.Category,
			Required:    in.Required,
			Default:     in.Default,
			DefaultFrom: in.DefaultFrom,
			Min:         min,
			Max:         max,
			Options:     in.Options,
			Role:        string(in.Role),
		})
	}
	return dto
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// LineDTO is one named row of a statement or schedule.
type LineDTO struct {
	Line   string    `json:"line"`
	Values []float64 `json:"values"`
}

// ScenarioDTO is one scored scenario.
type ScenarioDTO struct {
	Kind          scenario.Kind      `json:"kind"`
	Name          string             `json:"name"`
	Overrides     map[string]float64 `json:"overrides,omitempty"`
	NPV           float64            `json:"npv"`
	IRR           *float64           `json:"irr"`
	PaybackPeriod int                `json:"payback_period"`
	KPIs          scenario.KPIs      `json:"kpis"`
}

// ModelDTO is a generated model as served to clients.
type ModelDTO struct {
	ID                string             `json:"id"`
	BusinessTypeID    string             `json:"business_type_id"`
	TemplateID        string             `json:"template_id"`
	UsedDefault       bool               `json:"used_default_template"`
	InputsFingerprint string             `json:"inputs_fingerprint"`
	Periods           int                `json:"periods"`
	GeneratedAt       string             `json:"generated_at"`
	Reused            bool               `json:"reused,omitempty"`
	Inputs            map[string]float64 `json:"inputs"`
	TextInputs        map[string]string  `json:"text_inputs,omitempty"`

	IncomeStatement []LineDTO `json:"income_statement"`
	CashFlow        []LineDTO `json:"cash_flow"`
	BalanceSheet    []LineDTO `json:"balance_sheet"`
	Schedules       []LineDTO `json:"schedules"`

	Scenarios   []ScenarioDTO `json:"scenarios"`
	Audit       []audit.Check `json:"audit"`
	AuditPassed bool          `json:"audit_passed"`
}

func toModelDTO(m *engine.FinancialModel) ModelDTO {
	dto := ModelDTO{
		ID:                m.ID,
		BusinessTypeID:    m.BusinessTypeID,
		TemplateID:        m.TemplateID,
		UsedDefault:       m.UsedDefault,
		InputsFingerprint: m.InputsFingerprint,
		Periods:           m.Periods,
		GeneratedAt:       m.GeneratedAt.Format(time.RFC3339),
		Inputs:            m.Inputs,
		TextInputs:        m.TextInputs,
		IncomeStatement:   incomeLines(m.Statements.Income),
		CashFlow:          cashFlowLines(m.Statements.CashFlow),
		BalanceSheet:      balanceLines(m.Statements.Balance),
		Schedules:         scheduleLines(m.Schedules),
		Audit:             m.Audit,
		AuditPassed:       m.AuditPassed(),
	}
	for _, sc := range m.Scenarios {
		dto.Scenarios = append(dto.Scenarios, toScenarioDTO(sc))
	}
	return dto
}

func toScenarioDTO(sc *scenario.Scenario) ScenarioDTO {
	k := sc.Result.KPIs
	dto := ScenarioDTO{
		Kind:          sc.Kind,
		Name:          sc.Name,
		Overrides:     sc.Overrides,
		NPV:           round(sc.Result.NPV, MoneyPlaces),
		PaybackPeriod: sc.Result.PaybackPeriod,
		KPIs: scenario.KPIs{
			TotalRevenue:            round(k.TotalRevenue, MoneyPlaces),
			TotalNetIncome:          round(k.TotalNetIncome, MoneyPlaces),
			AverageGrossMargin:      round(k.AverageGrossMargin, RatePlaces),
			EndingCash:              round(k.EndingCash, MoneyPlaces),
			MinimumCash:             round(k.MinimumCash, MoneyPlaces),
			RevenueCAGR:             round(k.RevenueCAGR, RatePlaces),
			RevenueGrowthVolatility: round(k.RevenueGrowthVolatility, RatePlaces),
		},
	}
	if sc.Result.IRR != nil {
		irr := round(*sc.Result.IRR, RatePlaces)
		dto.IRR = &irr
	}
	return dto
}

func incomeLines(is *statement.IncomeStatement) []LineDTO {
	lines := []LineDTO{money("revenue", is.Revenue)}
	for _, l := range is.COGSLines {
		lines = append(lines, money("cogs."+l.Line, l.Values))
	}
	lines = append(lines, money("cogs", is.COGS), money("gross_profit", is.GrossProfit))
	for _, l := range is.OpexLines {
		lines = append(lines, money("opex."+l.Line, l.Values))
	}
	return append(lines,
		money("operating_expenses", is.OperatingExpenses),
		money("ebitda", is.EBITDA),
		money("depreciation", is.Depreciation),
		money("operating_income", is.OperatingIncome),
		money("interest_expense", is.InterestExpense),
		money("interest_income", is.InterestIncome),
		money("pretax_income", is.PretaxIncome),
		money("taxes", is.Taxes),
		money("net_income", is.NetIncome),
		money("loss_carryforward", is.LossCarryforward),
	)
}

func cashFlowLines(cf *statement.CashFlowStatement) []LineDTO {
	return []LineDTO{
		money("net_income", cf.NetIncome),
		money("depreciation", cf.Depreciation),
		money("change_in_working_capital", cf.ChangeInWorkingCapital),
		money("operating_cash_flow", cf.OperatingCashFlow),
		money("capex", cf.Capex),
		money("investing_cash_flow", cf.InvestingCashFlow),
		money("debt_issued", cf.DebtIssued),
		money("debt_repaid", cf.DebtRepaid),
		money("financing_cash_flow", cf.FinancingCashFlow),
		money("net_cash_flow", cf.NetCashFlow),
		money("beginning_cash", cf.BeginningCash),
		money("ending_cash", cf.EndingCash),
		money("interest_paid", cf.InterestPaid),
	}
}

func balanceLines(bs *statement.BalanceSheet) []LineDTO {
	return []LineDTO{
		money("cash", bs.Cash),
		money("receivables", bs.Receivables),
		money("inventory", bs.Inventory),
		money("gross_fixed_assets", bs.GrossFixedAssets),
		money("accumulated_depreciation", bs.AccumulatedDepreciation),
		money("net_fixed_assets", bs.NetFixedAssets),
		money("total_assets", bs.TotalAssets),
		money("payables", bs.Payables),
		money("debt", bs.Debt),
		money("total_liabilities", bs.TotalLiabilities),
		money("common_stock", bs.CommonStock),
		money("retained_earnings", bs.RetainedEarnings),
		money("total_equity", bs.TotalEquity),
		money("total_liabilities_and_equity", bs.TotalLiabilitiesAndEquity),
	}
}

func scheduleLines(s *schedule.Set) []LineDTO {
	if s == nil {
		return nil
	}
	dep, debt, wc := s.Depreciation, s.Debt, s.WorkingCapital
	return []LineDTO{
		money("depreciation.additions", dep.Additions),
		money("depreciation.expense", dep.Expense),
		money("depreciation.ending", dep.Ending),
		money("debt.beginning", debt.Beginning),
		money("debt.payment", debt.Payment),
		money("debt.interest", debt.Interest),
		money("debt.principal", debt.Principal),
		money("debt.ending", debt.Ending),
		money("working_capital.receivables", wc.Receivables),
		money("working_capital.inventory", wc.Inventory),
		money("working_capital.payables", wc.Payables),
		money("working_capital.net", wc.Net),
		money("working_capital.change", wc.Change),
	}
}

// =============================================================================
// SAMPLES
// =============================================================================

// SampleDTO is a ready-made request for demos.
type SampleDTO struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	BusinessTypeID string         `json:"business_type_id"`
	Inputs         map[string]any `json:"inputs"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// ROUNDING
// =============================================================================

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func money(line string, values []float64) LineDTO {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = round(v, MoneyPlaces)
	}
	return LineDTO{Line: line, Values: out}
}
