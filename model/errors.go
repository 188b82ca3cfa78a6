/*
errors.go - Centralized error types for the modeling engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Outer layers (api, store) wrap these with additional context and map
  them to transport status codes.

ERROR CATEGORIES:
  1. Validation errors - raw inputs that violate the template contract.
     Collected together into a ValidationReport; never returned one by one.
  2. Computation anomalies - NaN/Inf produced by degenerate inputs that
     passed validation (e.g. zero-length debt maturity).

  An unknown business type is NOT an error: the registry falls back to the
  default template.

USAGE:
  model, err := eng.Generate("saas", raw)
  var report *model.ValidationReport
  if errors.As(err, &report) {
      for _, v := range report.Violations {
          fmt.Println(v.Field, v.Code)
      }
  }

  if errors.Is(err, model.ErrMissingRequiredInput) {
      // at least one required input was absent
  }

SEE ALSO:
  - normalize/normalize.go: produces ValidationReport
  - schedule/debt.go: produces ComputationAnomaly
  - api/handlers.go: maps errors to HTTP status
*/
package model

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is matched by every ValidationReport.
	ErrValidation = errors.New("input validation failed")

	// ErrMissingRequiredInput is returned when a required input has neither
	// a raw value nor a default.
	ErrMissingRequiredInput = errors.New("missing required input")

	// ErrRangeViolation is returned when a numeric input falls outside its
	// declared [min, max] bounds.
	ErrRangeViolation = errors.New("value out of range")

	// ErrInvalidValue is returned when a raw value cannot be coerced to the
	// input's kind, or an enum value is not one of the allowed options.
	ErrInvalidValue = errors.New("invalid input value")

	// ErrRuleViolation is returned when a template-level custom rule fails.
	ErrRuleViolation = errors.New("validation rule violated")

	// ErrComputationAnomaly is returned when the engine produces a non-finite
	// number or an iterative solve fails to converge.
	ErrComputationAnomaly = errors.New("computation anomaly")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ViolationCode identifies the kind of validation failure.
type ViolationCode string

const (
	CodeMissingRequired ViolationCode = "missing_required_input"
	CodeRange           ViolationCode = "range_violation"
	CodeInvalidValue    ViolationCode = "invalid_value"
	CodeRule            ViolationCode = "rule_violation"
)

// Violation describes a single input problem.
type Violation struct {
	Code    ViolationCode `json:"code"`
	Field   string        `json:"field"`
	Value   any           `json:"value,omitempty"`
	Min     *float64      `json:"min,omitempty"`
	Max     *float64      `json:"max,omitempty"`
	Message string        `json:"message"`
}

// MissingRequiredInput builds a missing-field violation.
func MissingRequiredInput(field string) *Violation {
	return &Violation{
		Code:    CodeMissingRequired,
		Field:   field,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// RangeViolation builds an out-of-bounds violation. Either bound may be nil.
func RangeViolation(field string, value float64, min, max *float64) *Violation {
	return &Violation{
		Code:    CodeRange,
		Field:   field,
		Value:   value,
		Min:     min,
		Max:     max,
		Message: fmt.Sprintf("%s = %g is outside %s", field, value, boundsString(min, max)),
	}
}

// InvalidValue builds a coercion or enum violation.
func InvalidValue(field string, value any, reason string) *Violation {
	return &Violation{
		Code:    CodeInvalidValue,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("%s: %s", field, reason),
	}
}

// RuleViolation builds a violation for a template-level custom rule.
func RuleViolation(field string, message string) *Violation {
	return &Violation{Code: CodeRule, Field: field, Message: message}
}

func (v *Violation) Error() string { return v.Message }

func (v *Violation) Unwrap() error {
	switch v.Code {
	case CodeMissingRequired:
		return ErrMissingRequiredInput
	case CodeRange:
		return ErrRangeViolation
	case CodeInvalidValue:
		return ErrInvalidValue
	default:
		return ErrRuleViolation
	}
}

func boundsString(min, max *float64) string {
	lo, hi := "-inf", "+inf"
	if min != nil {
		lo = fmt.Sprintf("%g", *min)
	}
	if max != nil {
		hi = fmt.Sprintf("%g", *max)
	}
	return "[" + lo + ", " + hi + "]"
}

// ValidationReport aggregates every violation found for one request.
// It is returned as a single error before any computation begins.
type ValidationReport struct {
	TemplateID string       `json:"template_id"`
	Violations []*Violation `json:"violations"`
}

// Add appends a violation.
func (r *ValidationReport) Add(v *Violation) {
	r.Violations = append(r.Violations, v)
}

// Empty reports whether no violations were recorded.
func (r *ValidationReport) Empty() bool { return len(r.Violations) == 0 }

// Fields returns the distinct field names in report order.
func (r *ValidationReport) Fields() []string {
	seen := make(map[string]bool, len(r.Violations))
	var out []string
	for _, v := range r.Violations {
		if !seen[v.Field] {
			seen[v.Field] = true
			out = append(out, v.Field)
		}
	}
	return out
}

func (r *ValidationReport) Error() string {
	msgs := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		msgs[i] = v.Message
	}
	return fmt.Sprintf("%d input violation(s) for template %q: %s",
		len(r.Violations), r.TemplateID, strings.Join(msgs, "; "))
}

// Unwrap exposes every violation plus ErrValidation to errors.Is/As.
func (r *ValidationReport) Unwrap() []error {
	errs := make([]error, 0, len(r.Violations)+1)
	errs = append(errs, ErrValidation)
	for _, v := range r.Violations {
		errs = append(errs, v)
	}
	return errs
}

// ComputationAnomaly reports a non-finite value or an unconverged solve.
// Period is -1 when the anomaly is not tied to a single period.
type ComputationAnomaly struct {
	Stage  string  `json:"stage"` // e.g. "debt_schedule", "income_statement"
	Field  string  `json:"field"`
	Period int     `json:"period"`
	Value  float64 `json:"-"`
	Reason string  `json:"reason"`
}

func (e *ComputationAnomaly) Error() string {
	if e.Period >= 0 {
		return fmt.Sprintf("computation anomaly in %s.%s at period %d: %s",
			e.Stage, e.Field, e.Period, e.Reason)
	}
	return fmt.Sprintf("computation anomaly in %s.%s: %s", e.Stage, e.Field, e.Reason)
}

func (e *ComputationAnomaly) Unwrap() error {
	return ErrComputationAnomaly
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrMissingRequiredInput) ||
		errors.Is(err, ErrRangeViolation) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrRuleViolation)
}

// IsAnomaly returns true if the error is a computation anomaly.
func IsAnomaly(err error) bool {
	return errors.Is(err, ErrComputationAnomaly)
}
