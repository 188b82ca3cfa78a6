/*
engine.go - Model generation entry point

PURPOSE:
  Runs the full pipeline for one request and assembles the result:

    registry -> normalize -> statements -> scenarios -> audit -> FinancialModel

  The Engine holds only read-only collaborators (registry, logger, options),
  so one Engine serves any number of concurrent requests.

ERRORS:
  *model.ValidationReport   invalid raw inputs (nothing is computed)
  *model.ComputationAnomaly non-finite value or unconverged solve
  An unknown business type is not an error: the default template is used.

USAGE:
  reg, _ := template.Default()
  eng := engine.New(reg, logger)
  fm, err := eng.Generate("saas", map[string]any{"initial_mrr": 50000, ...})

SEE ALSO:
  - model.go: FinancialModel
  - store.go: persistence contract
*/
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/model-engine/audit"
	"github.com/warp/model-engine/model"
	"github.com/warp/model-engine/normalize"
	"github.com/warp/model-engine/scenario"
	"github.com/warp/model-engine/statement"
	"github.com/warp/model-engine/template"
	"go.uber.org/zap"
)

// Engine generates financial models. Safe for concurrent use.
type Engine struct {
	registry  *template.Registry
	logger    *zap.Logger
	audit     audit.Options
	scenarios []scenario.Spec
	newID     func() string
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAuditTolerance sets the absolute tolerance of the identity checks.
func WithAuditTolerance(tol float64) Option {
	return func(e *Engine) { e.audit.Tolerance = tol }
}

// WithScenarios replaces the default base/optimistic/pessimistic set.
func WithScenarios(specs ...scenario.Spec) Option {
	return func(e *Engine) { e.scenarios = append([]scenario.Spec(nil), specs...) }
}

// WithIDGenerator overrides model id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithClock overrides the generation timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// New creates an Engine over reg. A nil logger disables logging.
func New(reg *template.Registry, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		registry:  reg,
		logger:    logger.Named("engine"),
		audit:     audit.Options{Tolerance: audit.DefaultTolerance},
		scenarios: scenario.Defaults(),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the template registry the engine resolves against.
func (e *Engine) Registry() *template.Registry { return e.registry }

// Fingerprint resolves and normalizes raw without generating, returning
// the InputsFingerprint a model built from them would carry.
func (e *Engine) Fingerprint(businessTypeID string, raw map[string]any) (string, error) {
	tpl, _ := e.registry.Resolve(businessTypeID)
	drivers, err := normalize.Inputs(tpl, raw)
	if err != nil {
		return "", err
	}
	return fingerprint(tpl, drivers), nil
}

func fingerprint(tpl *template.ModelTemplate, d model.Drivers) string {
	return fmt.Sprintf("%s:%s", tpl.ID, d.Fingerprint())
}

// Generate builds a model with the engine's default scenarios.
func (e *Engine) Generate(businessTypeID string, raw map[string]any) (*FinancialModel, error) {
	return e.GenerateWithScenarios(businessTypeID, raw, nil)
}

// GenerateWithScenarios builds a model and evaluates custom scenarios
// after the defaults. Custom specs are validated with the raw inputs.
func (e *Engine) GenerateWithScenarios(businessTypeID string, raw map[string]any, custom []scenario.Spec) (*FinancialModel, error) {
	tpl, fellBack := e.registry.Resolve(businessTypeID)
	log := e.logger.With(zap.String("business_type", businessTypeID), zap.String("template", tpl.ID))
	if fellBack {
		log.Info("unknown business type, using default template")
	} else {
		log.Debug("resolved template")
	}

	drivers, err := normalize.Inputs(tpl, raw)
	if err != nil {
		var report *model.ValidationReport
		if errors.As(err, &report) {
			log.Info("input validation failed", zap.Int("violations", len(report.Violations)), zap.Strings("fields", report.Fields()))
		}
		return nil, err
	}

	st, err := statement.Generate(tpl, drivers)
	if err != nil {
		log.Warn("statement generation failed", zap.Error(err))
		return nil, err
	}

	specs := append(append([]scenario.Spec(nil), e.scenarios...), custom...)
	scenarios, err := scenario.Run(tpl, drivers, st, specs)
	if err != nil {
		if model.IsAnomaly(err) {
			log.Warn("scenario generation failed", zap.Error(err))
		}
		return nil, err
	}

	checks := audit.Run(st, e.audit)
	summary := audit.Summary(checks)
	log.Debug("model generated",
		zap.Int("periods", st.Periods),
		zap.Int("iterations", st.Iterations),
		zap.Int("audit_warnings", summary[audit.StatusWarning]),
		zap.Int("audit_failures", summary[audit.StatusFail]),
	)

	return &FinancialModel{
		ID:                e.newID(),
		BusinessTypeID:    businessTypeID,
		TemplateID:        tpl.ID,
		UsedDefault:       fellBack,
		InputsFingerprint: fingerprint(tpl, drivers),
		Periods:           st.Periods,
		GeneratedAt:       e.now(),
		Inputs:            drivers.Numbers(),
		TextInputs:        drivers.Texts(),
		Schedules:         st.Schedules,
		Statements:        st,
		Scenarios:         scenarios,
		Audit:             checks,
	}, nil
}
