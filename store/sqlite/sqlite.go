/*
Package sqlite provides a SQLite-backed engine.Store.

PURPOSE:
  Persists generated financial models so they can be listed, fetched by id
  and reused when the same template and resolved inputs are requested
  again.

KEY TABLES:
  models:       One row per model; the full model is kept as JSON
  scenarios:    Scenario scores, queryable without decoding the model
  audit_checks: Audit outcomes, queryable without decoding the model

  Money amounts in the scenarios table are stored as decimal TEXT so that
  the database never rounds through a binary float column.

INSERT-ONLY:
  Models are immutable once generated. SaveModel never updates a row;
  saving an existing id returns engine.ErrDuplicateModel.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The database is opened with WAL so
  readers do not block each other.

USAGE:
  store, err := sqlite.New("./data/models.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - engine/store.go: Store interface
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/model-engine/engine"
	"github.com/warp/model-engine/scenario"
)

// Fixed-width layout so that generated_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		business_type_id TEXT NOT NULL,
		template_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		periods INTEGER NOT NULL,
		model_json TEXT NOT NULL,
		generated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_models_fingerprint
		ON models(fingerprint, generated_at);
	CREATE INDEX IF NOT EXISTS idx_models_generated_at
		ON models(generated_at);

	CREATE TABLE IF NOT EXISTS scenarios (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		npv TEXT NOT NULL,
		irr TEXT,
		payback_period INTEGER NOT NULL,
		PRIMARY KEY (model_id, position)
	);

	CREATE TABLE IF NOT EXISTS audit_checks (
		model_id TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT NOT NULL,
		observed REAL NOT NULL,
		threshold REAL NOT NULL,
		PRIMARY KEY (model_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_audit_checks_status
		ON audit_checks(model_id, status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MODEL STORE
// =============================================================================

// SaveModel writes the model and its scenario and audit rows atomically.
func (s *Store) SaveModel(ctx context.Context, m *engine.FinancialModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode model %s: %w", m.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO models (id, business_type_id, template_id, fingerprint, periods, model_json, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.BusinessTypeID, m.TemplateID, m.InputsFingerprint, m.Periods,
		string(body), m.GeneratedAt.UTC().Format(timeLayout),
	)
	if isUniqueConstraintError(err) {
		return engine.ErrDuplicateModel
	}
	if err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}

	for i, sc := range m.Scenarios {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenarios (model_id, position, kind, name, npv, irr, payback_period)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, i, string(sc.Kind), sc.Name,
			decimal.NewFromFloat(sc.Result.NPV).String(), nullDecimal(sc.Result.IRR),
			sc.Result.PaybackPeriod,
		)
		if err != nil {
			return fmt.Errorf("failed to insert scenario %q: %w", sc.Name, err)
		}
	}

	for i, c := range m.Audit {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audit_checks (model_id, position, name, status, message, observed, threshold)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, i, c.Name, string(c.Status), c.Message, c.Observed, c.Threshold,
		)
		if err != nil {
			return fmt.Errorf("failed to insert audit check %s: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

// GetModel retrieves a model by id.
func (s *Store) GetModel(ctx context.Context, id string) (*engine.FinancialModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryModel(ctx, "SELECT model_json FROM models WHERE id = ?", id)
}

// FindByFingerprint returns the newest model with the given fingerprint.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*engine.FinancialModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryModel(ctx, `
		SELECT model_json FROM models
		WHERE fingerprint = ?
		ORDER BY generated_at DESC, rowid DESC
		LIMIT 1`, fingerprint)
}

// ListModels returns summaries newest first. limit <= 0 means all.
func (s *Store) ListModels(ctx context.Context, limit int) ([]engine.ModelSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.business_type_id, m.template_id, m.fingerprint, m.periods, m.generated_at,
			COALESCE((SELECT npv FROM scenarios WHERE model_id = m.id AND kind = ? ORDER BY position LIMIT 1), '0'),
			(SELECT COUNT(*) FROM audit_checks WHERE model_id = m.id AND status = 'fail'),
			(SELECT COUNT(*) FROM audit_checks WHERE model_id = m.id AND status = 'warning')
		FROM models m
		ORDER BY m.generated_at DESC, m.rowid DESC
		LIMIT ?`, string(scenario.KindBase), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.ModelSummary
	for rows.Next() {
		var sum engine.ModelSummary
		var generatedAt, npv string
		if err := rows.Scan(&sum.ID, &sum.BusinessTypeID, &sum.TemplateID, &sum.InputsFingerprint,
			&sum.Periods, &generatedAt, &npv, &sum.AuditFailures, &sum.AuditWarnings); err != nil {
			return nil, err
		}
		at, err := time.Parse(timeLayout, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("model %s: invalid generated_at %q: %w", sum.ID, generatedAt, err)
		}
		base, err := decimal.NewFromString(npv)
		if err != nil {
			return nil, fmt.Errorf("model %s: invalid base npv %q: %w", sum.ID, npv, err)
		}
		sum.GeneratedAt = at
		sum.BaseNPV = base.InexactFloat64()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) queryModel(ctx context.Context, query string, args ...any) (*engine.FinancialModel, error) {
	var body string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrModelNotFound
	}
	if err != nil {
		return nil, err
	}

	var m engine.FinancialModel
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if m.Statements != nil {
		m.Statements.Schedules = m.Schedules
	}
	return &m, nil
}

// Helper functions

func nullDecimal(v *float64) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: decimal.NewFromFloat(*v).String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed: UNIQUE"))
}
