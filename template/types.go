/*
Package template defines model templates and the registry that serves them.

PURPOSE:
  A template is the contract between a business type and the engine: which
  inputs exist, how they are validated, how revenue and costs are computed,
  and which schedules feed the statements. Templates are plain data; they
  never carry executable formulas.

KEY CONCEPTS IN THIS FILE (types.go):
  - ModelTemplate: the complete definition for one business type
  - InputDefinition: one input (kind, default, rules, scenario role)
  - ValidationRule: range / required / custom checks
  - Calculation steps: tagged variants (GrowthCompound, LinearPercentage,
    FixedAnnuityPayment, ...) consumed by type switches downstream

CALCULATION STEPS:
  Steps are sealed interfaces: only this package can add variants, so every
  type switch over them can be exhaustive.

    RevenueModel:  GrowthCompound | UnitEconomics
    CostLine:      LinearPercentage
    ScheduleStep:  DecliningBalance | FixedAnnuityPayment | DaysOutstanding

  Step fields hold input ids, not values. The statement generator resolves
  them against the request's Drivers.

SEE ALSO:
  - registry.go: lookup with default fallback
  - factory.go: YAML catalog to Go conversion
  - catalog.yaml: built-in templates
*/
package template

// =============================================================================
// INPUTS
// =============================================================================

// InputKind is the semantic kind of an input value.
type InputKind string

const (
	KindNumber     InputKind = "number"
	KindPercentage InputKind = "percentage"
	KindCurrency   InputKind = "currency"
	KindText       InputKind = "text"
	KindEnum       InputKind = "enum"
)

// IsNumeric reports whether values of this kind resolve to float64.
func (k InputKind) IsNumeric() bool {
	switch k {
	case KindNumber, KindPercentage, KindCurrency:
		return true
	default:
		return false
	}
}

// Role tags how the scenario generator perturbs an input.
type Role string

const (
	RoleNone      Role = ""
	RoleGrowth    Role = "growth"    // multiplied by the growth multiplier
	RoleAttrition Role = "attrition" // divided by the growth multiplier
	RoleMargin    Role = "margin"    // shifted up by the margin delta
	RoleCost      Role = "cost"      // shifted down by the margin delta
)

// InputDefinition describes one template input.
type InputDefinition struct {
	ID          string
	Label       string
	Kind        InputKind
	Category    string
	Required    bool
	Default     any    // float64 or string; nil when there is no default
	DefaultFrom string // id of another input whose resolved value is the default
	Options     []string
	Role        Role
	Rules       []ValidationRule
}

// Bounds returns the tightest range rule attached to the input.
func (d InputDefinition) Bounds() (min, max *float64) {
	for _, r := range d.Rules {
		if r.Kind != RuleRange {
			continue
		}
		if r.Min != nil && (min == nil || *r.Min > *min) {
			min = r.Min
		}
		if r.Max != nil && (max == nil || *r.Max < *max) {
			max = r.Max
		}
	}
	return min, max
}

// =============================================================================
// VALIDATION RULES
// =============================================================================

// RuleKind identifies a validation rule.
type RuleKind string

const (
	RuleRequired RuleKind = "required"
	RuleRange    RuleKind = "range"

	// RuleSumAtMost: the sum of Fields must not exceed Limit.
	RuleSumAtMost RuleKind = "sum_at_most"

	// RulePositiveWhen: Target must be > 0 whenever When is > 0.
	RulePositiveWhen RuleKind = "positive_when"
)

// ValidationRule is attached either to an input (required, range) or to a
// template (custom rules spanning several inputs).
type ValidationRule struct {
	Kind    RuleKind
	Min     *float64
	Max     *float64
	Fields  []string
	Limit   float64
	Target  string
	When    string
	Message string
}

// =============================================================================
// CALCULATION STEPS
// =============================================================================

// RevenueModel computes revenue per period.
type RevenueModel interface {
	revenueModel()
}

// GrowthCompound: revenue[0] = Base, revenue[t] = revenue[t-1] * (1 + Growth - Attrition).
// Attrition is optional (empty id means no attrition).
type GrowthCompound struct {
	Base      string
	Growth    string
	Attrition string
}

// UnitEconomics: revenue[t] = units[t] * price[t], each compounding monthly.
type UnitEconomics struct {
	Units       string
	Price       string
	UnitGrowth  string
	PriceGrowth string
}

func (GrowthCompound) revenueModel() {}
func (UnitEconomics) revenueModel()  {}

// CostCategory groups cost lines on the income statement.
type CostCategory string

const (
	CategoryCOGS CostCategory = "cogs"
	CategoryOpex CostCategory = "opex"
)

// LinearPercentage: cost[t] = revenue[t] * pct + fixed.
// With Complement the percentage is 1 - value (COGS from a gross margin).
type LinearPercentage struct {
	Line       string
	Category   CostCategory
	Percent    string
	Fixed      string
	Complement bool
}

// ScheduleKind names the supporting schedules.
type ScheduleKind string

const (
	ScheduleDepreciation   ScheduleKind = "depreciation"
	ScheduleDebt           ScheduleKind = "debt"
	ScheduleWorkingCapital ScheduleKind = "working_capital"
)

// ScheduleStep computes one supporting schedule.
type ScheduleStep interface {
	scheduleStep()
	Kind() ScheduleKind
}

// DecliningBalance depreciates (beginning + additions) at AnnualRate/12.
type DecliningBalance struct {
	Capex      string
	AnnualRate string
}

// FixedAnnuityPayment amortizes Principal with a constant monthly payment.
type FixedAnnuityPayment struct {
	Principal     string
	AnnualRate    string
	MaturityYears string
}

// DaysOutstanding derives AR/Inventory/AP from DSO/DIO/DPO.
type DaysOutstanding struct {
	DSO string
	DIO string
	DPO string
}

func (DecliningBalance) scheduleStep()    {}
func (FixedAnnuityPayment) scheduleStep() {}
func (DaysOutstanding) scheduleStep()     {}

func (DecliningBalance) Kind() ScheduleKind    { return ScheduleDepreciation }
func (FixedAnnuityPayment) Kind() ScheduleKind { return ScheduleDebt }
func (DaysOutstanding) Kind() ScheduleKind     { return ScheduleWorkingCapital }

// =============================================================================
// MODEL TEMPLATE
// =============================================================================

// ModelTemplate is immutable once registered and shared by all requests.
type ModelTemplate struct {
	ID              string
	Name            string
	Description     string
	ApplicableTypes []string
	Inputs          []InputDefinition
	Revenue         RevenueModel
	Costs           []LinearPercentage
	Schedules       []ScheduleStep
	Rules           []ValidationRule
}

// Input returns the definition for id.
func (t *ModelTemplate) Input(id string) (InputDefinition, bool) {
	for _, in := range t.Inputs {
		if in.ID == id {
			return in, true
		}
	}
	return InputDefinition{}, false
}

// Schedule returns the step for the given schedule kind, if defined.
func (t *ModelTemplate) Schedule(kind ScheduleKind) (ScheduleStep, bool) {
	for _, s := range t.Schedules {
		if s.Kind() == kind {
			return s, true
		}
	}
	return nil, false
}

// RequiredInputs lists the ids of required inputs in declaration order.
func (t *ModelTemplate) RequiredInputs() []string {
	var ids []string
	for _, in := range t.Inputs {
		if in.Required {
			ids = append(ids, in.ID)
		}
	}
	return ids
}
