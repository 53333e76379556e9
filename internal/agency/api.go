package agency

import (
	"encoding/json"
	"net/http"

	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for agency management
type Handler struct {
	repo *Repository
}

// NewHandler creates a new agency handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the agency routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAgencies)
	r.Post("/", h.CreateAgency)

	r.Route("/{agencyID}", func(r chi.Router) {
		r.Get("/", h.GetAgency)
		r.Put("/", h.UpdateAgency)
		r.Post("/terminate", h.TerminateAgency)
	})

	return r
}

func (h *Handler) ListAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": agencies, "total": len(agencies)})
}

func (h *Handler) GetAgency(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "agencyID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid agency ID"))
		return
	}

	a, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) CreateAgency(w http.ResponseWriter, r *http.Request) {
	var req CreateAgencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.Name == "" {
		writeError(w, errors.Validation("name is required", nil))
		return
	}
	if req.CapacityLimit <= 0 {
		writeError(w, errors.Validation("capacity_limit must be positive", nil))
		return
	}

	a := &Agency{
		Name:             req.Name,
		Status:           StatusActive,
		CapacityLimit:    req.CapacityLimit,
		PerformanceScore: req.PerformanceScore,
		RecoveryRate:     req.RecoveryRate,
		SLACompliance:    1,
		IndustryTags:     req.IndustryTags,
		SegmentTags:      req.SegmentTags,
		RegionCodes:      req.RegionCodes,
	}

	if err := h.repo.Save(r.Context(), a); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) UpdateAgency(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "agencyID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid agency ID"))
		return
	}

	var req UpdateAgencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	a, err := h.repo.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// TerminateAgency soft-deactivates an agency; its open cases keep their
// assignment until re-assigned through the supervisor workflow.
func (h *Handler) TerminateAgency(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "agencyID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid agency ID"))
		return
	}

	terminated := StatusTerminated
	a, err := h.repo.Update(r.Context(), id, UpdateAgencyRequest{Status: &terminated})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
