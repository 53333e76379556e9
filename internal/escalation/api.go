package escalation

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/debtflow/platform/internal/shared/auth"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP requests for escalations
type Handler struct {
	service *Service
	repo    *Repository
}

// NewHandler creates a new escalation handler
func NewHandler(service *Service, repo *Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

// Routes returns the router for escalation endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listOpen)
	r.Get("/{escalationID}", h.getEscalation)
	r.Post("/cases/{caseID}", h.escalateCase)
	r.Post("/{escalationID}/resolve", h.resolve)
	return r
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	escalations, err := h.repo.ListOpen(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"escalations": escalations,
		"total":       len(escalations),
	})
}

func (h *Handler) getEscalation(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "escalationID"))
	if err != nil {
		writeError(w, errors.Validation("invalid escalation ID", nil))
		return
	}
	e, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) escalateCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.Validation("invalid case ID", nil))
		return
	}

	// The body is optional; omitting it means a plain manual escalation.
	var req struct {
		Trigger Trigger `json:"trigger"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.Validation("invalid request body", nil))
			return
		}
	}

	e, err := h.service.EscalateManually(r.Context(), caseID, auth.GetCaller(r.Context()), req.Trigger)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "escalationID"))
	if err != nil {
		writeError(w, errors.Validation("invalid escalation ID", nil))
		return
	}

	caller := auth.GetCaller(r.Context())
	if caller.Kind != auth.CallerSupervisor {
		writeError(w, errors.Forbidden("only supervisors may resolve escalations"))
		return
	}

	resolved, err := h.repo.Resolve(r.Context(), id, caller.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !resolved {
		writeError(w, errors.Conflict("escalation is already resolved"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
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
