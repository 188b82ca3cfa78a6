/*
handlers_test.go - HTTP tests for the model API

Tests for:
- Template listing and alias lookup
- Model generation status codes (201, 422, 500)
- Fingerprint reuse
- Stored model listing and retrieval
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/model-engine/api"
	"github.com/warp/model-engine/engine"
	"github.com/warp/model-engine/store/memory"
	"github.com/warp/model-engine/template"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newServer(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	reg, err := template.Default()
	require.NoError(t, err)
	store := memory.New()
	h := api.NewHandler(engine.New(reg, zap.NewNop()), store, zap.NewNop())
	return api.NewRouter(h, nil), store
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func saasRequest() api.CreateModelRequest {
	return api.CreateModelRequest{
		BusinessTypeID: "saas",
		Inputs: map[string]any{
			"initial_mrr":         50000,
			"revenue_growth_rate": 0.05,
			"churn_rate":          0.02,
			"gross_margin":        0.8,
		},
	}
}

func line(t *testing.T, lines []api.LineDTO, name string) []float64 {
	t.Helper()
	for _, l := range lines {
		if l.Line == name {
			return l.Values
		}
	}
	t.Fatalf("line %s not found", name)
	return nil
}

// =============================================================================
// TEMPLATES
// =============================================================================

func TestListTemplates(t *testing.T) {
	srv, _ := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/templates", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]api.TemplateDTO](t, rec)
	require.Len(t, got, 5)
	ids := make([]string, len(got))
	for i, tpl := range got {
		ids[i] = tpl.ID
		assert.Empty(t, tpl.Inputs)
		assert.Equal(t, tpl.ID == "general", tpl.Default)
	}
	assert.Contains(t, ids, "saas")
}

func TestGetTemplate_ByAlias(t *testing.T) {
	srv, _ := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/templates/software", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.TemplateDTO](t, rec)
	assert.Equal(t, "saas", got.ID)
	assert.Equal(t, "growth_compound", got.RevenueModel)
	assert.Contains(t, got.Required, "initial_mrr")
	assert.NotEmpty(t, got.Inputs)
}

func TestGetTemplate_NotFound(t *testing.T) {
	srv, _ := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/templates/not_a_real_type", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// MODELS
// =============================================================================

func TestCreateModel_Created(t *testing.T) {
	// GIVEN: a valid SaaS request
	srv, store := newServer(t)

	// WHEN: posting it
	rec := do(t, srv, http.MethodPost, "/api/models", saasRequest())

	// THEN: the model is returned rounded and stored
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[api.ModelDTO](t, rec)
	assert.Equal(t, "saas", got.TemplateID)
	assert.Equal(t, 60, got.Periods)
	assert.Equal(t, 50000.0, line(t, got.IncomeStatement, "revenue")[0])
	assert.Equal(t, 40000.0, line(t, got.IncomeStatement, "gross_profit")[0])
	assert.Len(t, got.Scenarios, 3)
	assert.Len(t, got.Audit, 8)

	for _, v := range line(t, got.BalanceSheet, "cash") {
		assert.InDelta(t, math.Round(v*100)/100, v, 1e-9)
	}

	stored, err := store.GetModel(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.InputsFingerprint, stored.InputsFingerprint)
}

func TestCreateModel_ValidationReport(t *testing.T) {
	srv, _ := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/models", api.CreateModelRequest{
		BusinessTypeID: "saas",
		Inputs:         map[string]any{"churn_rate": 2},
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decode[struct {
		Code    string `json:"code"`
		Details struct {
			Violations []struct {
				Field string `json:"field"`
			} `json:"violations"`
		} `json:"details"`
	}](t, rec)
	assert.Equal(t, "validation_failed", got.Code)
	fields := make([]string, len(got.Details.Violations))
	for i, v := range got.Details.Violations {
		fields[i] = v.Field
	}
	assert.Contains(t, fields, "initial_mrr")
	assert.Contains(t, fields, "churn_rate")
}

func TestCreateModel_Anomaly(t *testing.T) {
	srv, store := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/models", api.CreateModelRequest{
		BusinessTypeID: "general",
		Inputs: map[string]any{
			"initial_revenue":     10000,
			"revenue_growth_rate": 0.05,
			"initial_debt":        100000,
			"loan_maturity_years": 0,
		},
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	got := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "computation_anomaly", got.Code)

	list, err := store.ListModels(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateModel_BadBody(t *testing.T) {
	srv, _ := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/models", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateModel_UnknownTypeFallsBack(t *testing.T) {
	srv, _ := newServer(t)

	rec := do(t, srv, http.MethodPost, "/api/models", api.CreateModelRequest{
		BusinessTypeID: "not_a_real_type",
		Inputs:         map[string]any{"initial_revenue": 10000, "revenue_growth_rate": 0.05},
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	got := decode[api.ModelDTO](t, rec)
	assert.Equal(t, "general", got.TemplateID)
	assert.True(t, got.UsedDefault)
}

func TestCreateModel_Reuse(t *testing.T) {
	srv, store := newServer(t)
	first := decode[api.ModelDTO](t, do(t, srv, http.MethodPost, "/api/models", saasRequest()))

	req := saasRequest()
	req.Reuse = true
	rec := do(t, srv, http.MethodPost, "/api/models", req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.ModelDTO](t, rec)
	assert.Equal(t, first.ID, got.ID)
	assert.True(t, got.Reused)

	list, err := store.ListModels(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateModel_CustomScenario(t *testing.T) {
	srv, _ := newServer(t)
	body := map[string]any{
		"business_type_id": "saas",
		"inputs":           saasRequest().Inputs,
		"scenarios": []map[string]any{
			{"kind": "custom", "name": "Price cut", "overrides": map[string]float64{"gross_margin": 0.7}},
		},
	}

	rec := do(t, srv, http.MethodPost, "/api/models", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[api.ModelDTO](t, rec)
	require.Len(t, got.Scenarios, 4)
	assert.Equal(t, "Price cut", got.Scenarios[3].Name)
	assert.Equal(t, 0.7, got.Scenarios[3].Overrides["gross_margin"])
}

func TestListAndGetModels(t *testing.T) {
	srv, _ := newServer(t)
	created := decode[api.ModelDTO](t, do(t, srv, http.MethodPost, "/api/models", saasRequest()))

	rec := do(t, srv, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]engine.ModelSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/models/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[api.ModelDTO](t, rec).ID)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/models/missing", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/models?limit=abc", nil).Code)
}

func TestListModels_EmptyIsArray(t *testing.T) {
	srv, _ := newServer(t)

	rec := do(t, srv, http.MethodGet, "/api/models", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t)

	rec := do(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
