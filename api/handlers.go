/*
handlers.go - HTTP API handlers for the financial model engine

PURPOSE:
  Exposes the model engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine and the model store.

ENDPOINTS:
  Templates:
    GET    /api/templates              List templates
    GET    /api/templates/{id}         Template detail with inputs (id or alias)

  Models:
    POST   /api/models                 Generate and store a model
    GET    /api/models                 List stored models (?limit=N)
    GET    /api/models/{id}            Stored model detail

  Samples:
    GET    /api/samples                List sample requests
    POST   /api/samples/{id}/generate  Generate a model from a sample

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed request body or query
  - 404: Unknown template, model or sample
  - 422: Input validation failed (body carries the full report)
  - 500: Computation anomaly or storage failure

SEE ALSO:
  - dto.go: Request/response data structures
  - samples.go: Sample request catalog
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/model-engine/engine"
	"github.com/warp/model-engine/model"
	"go.uber.org/zap"
)

// DefaultListLimit caps GET /api/models when no limit is given.
const DefaultListLimit = 50

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *engine.Engine
	Store  engine.Store
	logger *zap.Logger
}

// NewHandler creates a new handler. A nil logger disables logging.
func NewHandler(eng *engine.Engine, store engine.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: eng, Store: store, logger: logger.Named("api")}
}

// =============================================================================
// TEMPLATE ENDPOINTS
// =============================================================================

// ListTemplates returns every registered template without input detail.
// GET /api/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	reg := h.Engine.Registry()
	out := make([]TemplateDTO, 0, len(reg.List()))
	for _, t := range reg.List() {
		out = append(out, toTemplateDTO(t, t.ID == reg.DefaultID(), false))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetTemplate returns one template by id or alias. No fallback.
// GET /api/templates/{id}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	reg := h.Engine.Registry()
	t, ok := reg.Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Template not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(t, t.ID == reg.DefaultID(), true))
}

// =============================================================================
// MODEL ENDPOINTS
// =============================================================================

// CreateModel generates, stores and returns a model.
// POST /api/models
func (h *Handler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var req CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.generate(w, r, req)
}

// generate is shared by CreateModel and GenerateSample.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request, req CreateModelRequest) {
	ctx := r.Context()
	log := h.logger.With(zap.String("request_id", middleware.GetReqID(ctx)))

	if req.Reuse && len(req.Scenarios) == 0 {
		fp, err := h.Engine.Fingerprint(req.BusinessTypeID, req.Inputs)
		if err != nil {
			h.writeModelError(w, log, err)
			return
		}
		existing, err := h.Store.FindByFingerprint(ctx, fp)
		switch {
		case err == nil:
			dto := toModelDTO(existing)
			dto.Reused = true
			writeJSON(w, http.StatusOK, dto)
			return
		case !engine.IsNotFound(err):
			log.Error("fingerprint lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to look up model", err)
			return
		}
	}

	fm, err := h.Engine.GenerateWithScenarios(req.BusinessTypeID, req.Inputs, req.Scenarios)
	if err != nil {
		h.writeModelError(w, log, err)
		return
	}

	if err := h.Store.SaveModel(ctx, fm); err != nil {
		log.Error("failed to save model", zap.String("model_id", fm.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save model", err)
		return
	}

	writeJSON(w, http.StatusCreated, toModelDTO(fm))
}

// ListModels returns stored model summaries, newest first.
// GET /api/models?limit=N
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	models, err := h.Store.ListModels(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list models", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list models", err)
		return
	}
	if models == nil {
		models = []engine.ModelSummary{}
	}
	writeJSON(w, http.StatusOK, models)
}

// GetModel returns a stored model.
// GET /api/models/{id}
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	fm, err := h.Store.GetModel(r.Context(), chi.URLParam(r, "id"))
	if engine.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Model not found", nil)
		return
	}
	if err != nil {
		h.logger.Error("failed to load model", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load model", err)
		return
	}
	writeJSON(w, http.StatusOK, toModelDTO(fm))
}

// =============================================================================
// HELPERS
// =============================================================================

// writeModelError maps engine errors to status codes.
func (h *Handler) writeModelError(w http.ResponseWriter, log *zap.Logger, err error) {
	var report *model.ValidationReport
	var anomaly *model.ComputationAnomaly
	switch {
	case errors.As(err, &report):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Input validation failed",
			Code:    "validation_failed",
			Details: report,
		})
	case model.IsClientError(err):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "validation_failed",
		})
	case errors.As(err, &anomaly):
		log.Warn("computation anomaly", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Model could not be computed",
			Code:    "computation_anomaly",
			Details: anomaly,
		})
	default:
		log.Error("model generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Model generation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
