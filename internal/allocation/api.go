package allocation

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/debtflow/platform/internal/shared/auth"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP requests for allocations
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler creates a new allocation handler
func NewHandler(orchestrator *Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// Routes returns the router for allocation endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{caseID}", h.allocate)
	return r
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	caseID, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.Validation("invalid case ID", nil))
		return
	}

	result, err := h.orchestrator.Allocate(r.Context(), caseID, auth.GetCaller(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Internal(err)
	}
	writeJSON(w, appErr.HTTPStatus, map[string]any{
		"error": map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		},
	})
}
