/*
handlers.go - HTTP API handlers for the eligibility engine

PURPOSE:
  Exposes the eligibility engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Screens:
    GET    /api/screens                    List screen summaries
    POST   /api/screens                    Submit a household screen
    GET    /api/screens/{id}               Get screen details
    POST   /api/screens/{id}/eligibility   Evaluate programs for a screen
    GET    /api/screens/{id}/snapshots     Past evaluation runs

  Programs:
    GET    /api/programs                   List registered programs

  Validation:
    POST   /api/validate                   Run the fixture harness

  Admin:
    POST   /api/reset                      Database reset (dev only)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (store, orchestrator, harness)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Screen not found
  - 409: Frozen screen overwrite
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/screener"
	"github.com/warp/benefit-engine/store/sqlite"
	"github.com/warp/benefit-engine/validate"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Orchestrator *engine.Orchestrator
	Registry     *engine.Registry
	Logger       *zap.Logger
}

// NewHandler wires the store, orchestrator, and registry.
func NewHandler(store *sqlite.Store, orch *engine.Orchestrator, registry *engine.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Store: store, Orchestrator: orch, Registry: registry, Logger: logger}
}

// =============================================================================
// SCREEN HANDLERS
// =============================================================================

// ListScreens returns screen summaries.
func (h *Handler) ListScreens(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Store.ListScreens(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list screens", err)
		return
	}

	dtos := make([]ScreenSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = ScreenSummaryDTO{
			ID:        string(s.ID),
			State:     s.State,
			Members:   s.Members,
			Frozen:    s.Frozen,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateScreen submits or replaces a household screen.
func (h *Handler) CreateScreen(w http.ResponseWriter, r *http.Request) {
	var req CreateScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.State == "" {
		writeError(w, http.StatusBadRequest, "state is required", nil)
		return
	}
	if len(req.Members) == 0 {
		writeError(w, http.StatusBadRequest, "at least one member is required", nil)
		return
	}

	screen := toScreen(req)
	if err := h.Store.SaveScreen(r.Context(), screen); err != nil {
		if errors.Is(err, sqlite.ErrScreenFrozen) {
			writeError(w, http.StatusConflict, "Screen is frozen", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save screen", err)
		return
	}

	h.Logger.Info("api: screen created",
		zap.String("screen", string(screen.ID)),
		zap.Int("members", screen.HouseholdSize()))
	writeJSON(w, http.StatusCreated, fromScreen(screen))
}

// GetScreen returns one screen with all members.
func (h *Handler) GetScreen(w http.ResponseWriter, r *http.Request) {
	id := screener.ScreenID(chi.URLParam(r, "id"))

	screen, err := h.Store.GetScreen(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load screen", err)
		return
	}
	if screen == nil {
		writeError(w, http.StatusNotFound, "Screen not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, fromScreen(screen))
}

// =============================================================================
// EVALUATION HANDLERS
// =============================================================================

// Evaluate runs the requested programs against a screen, records the
// snapshot, and returns the results. An empty program list means every
// registered program.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	id := screener.ScreenID(chi.URLParam(r, "id"))

	var req EvaluateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	screen, err := h.Store.GetScreen(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load screen", err)
		return
	}
	if screen == nil {
		writeError(w, http.StatusNotFound, "Screen not found", nil)
		return
	}

	programs := h.Registry.Programs()
	if len(req.Programs) > 0 {
		programs = make([]engine.ProgramID, len(req.Programs))
		for i, p := range req.Programs {
			programs[i] = engine.ProgramID(p)
		}
	}

	evaluatedAt := time.Now().UTC()
	results, err := h.Orchestrator.Evaluate(r.Context(), screen, programs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Evaluation failed", err)
		return
	}

	snap := sqlite.EligibilitySnapshot{
		ID:          uuid.NewString(),
		ScreenID:    id,
		EvaluatedAt: evaluatedAt,
		Results:     results,
	}
	if err := h.Store.SaveSnapshot(r.Context(), snap); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record snapshot", err)
		return
	}

	h.Logger.Info("api: eligibility evaluated",
		zap.String("screen", string(id)),
		zap.Int("programs", len(programs)))
	writeJSON(w, http.StatusOK, fromSnapshot(snap))
}

// ListSnapshots returns a screen's past evaluation runs.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	id := screener.ScreenID(chi.URLParam(r, "id"))

	snaps, err := h.Store.GetSnapshots(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load snapshots", err)
		return
	}

	dtos := make([]EvaluationDTO, len(snaps))
	for i, snap := range snaps {
		dtos[i] = fromSnapshot(snap)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PROGRAM HANDLERS
// =============================================================================

// ListPrograms returns every registered program.
func (h *Handler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	ids := h.Registry.Programs()
	dtos := make([]ProgramDTO, 0, len(ids))
	for _, id := range ids {
		calc, err := h.Registry.Lookup(id)
		if err != nil {
			continue
		}
		p := calc.Program()
		dtos = append(dtos, ProgramDTO{
			ID:          string(p.ID),
			Name:        p.Name,
			Mode:        string(p.Mode),
			ValueFormat: string(p.ValueFormat),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// VALIDATION HANDLERS
// =============================================================================

// RunValidation runs the built-in fixtures through the live orchestrator.
func (h *Handler) RunValidation(w http.ResponseWriter, r *http.Request) {
	harness := validate.NewHarness(h.Orchestrator, validate.WithHarnessLogger(h.Logger))
	fixtures := validate.DefaultFixtures()

	mismatches, err := harness.Run(r.Context(), fixtures)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Validation run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ValidationDTO{
		Fixtures:   len(fixtures),
		Mismatches: fromMismatches(mismatches),
		Passed:     len(mismatches) == 0,
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data (dev only).
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

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
