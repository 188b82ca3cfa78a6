package engine

import (
	"context"
	"errors"
	"time"

	"github.com/warp/model-engine/audit"
	"github.com/warp/model-engine/scenario"
)

var (
	// ErrModelNotFound is returned by stores when no model has the requested id.
	ErrModelNotFound = errors.New("model not found")

	// ErrDuplicateModel is returned when a model id is saved twice.
	ErrDuplicateModel = errors.New("model already exists")
)

// IsNotFound returns true if the error indicates a missing model.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// ModelSummary is the list view of a stored model.
type ModelSummary struct {
	ID                string    `json:"id"`
	BusinessTypeID    string    `json:"business_type_id"`
	TemplateID        string    `json:"template_id"`
	InputsFingerprint string    `json:"inputs_fingerprint"`
	Periods           int       `json:"periods"`
	BaseNPV           float64   `json:"base_npv"`
	AuditFailures     int       `json:"audit_failures"`
	AuditWarnings     int       `json:"audit_warnings"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Store persists generated models. Implementations must be safe for
// concurrent use.
type Store interface {
	// SaveModel is insert-only; saving an existing id is ErrDuplicateModel.
	SaveModel(ctx context.Context, m *FinancialModel) error
	GetModel(ctx context.Context, id string) (*FinancialModel, error)
	ListModels(ctx context.Context, limit int) ([]ModelSummary, error)

	// FindByFingerprint returns the newest model generated from the same
	// template and resolved inputs, or ErrModelNotFound.
	FindByFingerprint(ctx context.Context, fingerprint string) (*FinancialModel, error)
}

// Summarize builds the list view of m.
func Summarize(m *FinancialModel) ModelSummary {
	s := ModelSummary{
		ID:                m.ID,
		BusinessTypeID:    m.BusinessTypeID,
		TemplateID:        m.TemplateID,
		InputsFingerprint: m.InputsFingerprint,
		Periods:           m.Periods,
		GeneratedAt:       m.GeneratedAt,
	}
	for _, sc := range m.Scenarios {
		if sc.Kind == scenario.KindBase {
			s.BaseNPV = sc.Result.NPV
			break
		}
	}
	for _, c := range m.Audit {
		switch c.Status {
		case audit.StatusFail:
			s.AuditFailures++
		case audit.StatusWarning:
			s.AuditWarnings++
		}
	}
	return s
}
