package engine

import (
	"time"

	"github.com/warp/model-engine/audit"
	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/scenario"
	"github.com/warp/model-engine/schedule"
	"github.com/warp/model-engine/statement"
)

// FinancialModel is the assembled output of one generation request.
// It is never mutated after Generate returns it.
type FinancialModel struct {
	ID                string    `json:"id"`
	BusinessTypeID    string    `json:"business_type_id"`
	TemplateID        string    `json:"template_id"`
	UsedDefault       bool      `json:"used_default_template"`
	InputsFingerprint string    `json:"inputs_fingerprint"` // "<template>:<sha256>"
	Periods           int       `json:"periods"`
	GeneratedAt       time.Time `json:"generated_at"`

	Inputs     map[string]float64 `json:"inputs"`
	TextInputs map[string]string  `json:"text_inputs,omitempty"`

	Schedules  *schedule.Set         `json:"schedules"`
	Statements *statement.Statements `json:"statements"`
	Scenarios  []*scenario.Scenario  `json:"scenarios"`
	Audit      []audit.Check         `json:"audit"`
}

// Drivers rebuilds the resolved driver set.
func (m *FinancialModel) Drivers() model.Drivers {
	return model.NewDrivers(m.Inputs, m.TextInputs)
}

// Scenario returns the first scenario of the given kind, or nil.
func (m *FinancialModel) Scenario(kind scenario.Kind) *scenario.Scenario {
	for _, s := range m.Scenarios {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}

// AuditPassed reports whether no audit check failed.
func (m *FinancialModel) AuditPassed() bool {
	return audit.Passed(m.Audit)
}
