package region

import (
	"encoding/json"
	"net/http"

	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// Handler provides HTTP handlers for regions and geography rules
type Handler struct {
	repo     *Repository
	resolver *Resolver
}

// NewHandler creates a new region handler
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo, resolver: NewResolver(repo)}
}

// Routes registers the region routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListRegions)
	r.Post("/", h.CreateRegion)
	r.Get("/{code}", h.GetRegion)

	// Side-effect free pre-validation before case creation.
	r.Post("/resolve", h.ResolveRegion)

	r.Route("/rules", func(r chi.Router) {
		r.Get("/", h.ListRules)
		r.Post("/", h.CreateRule)
		r.Delete("/{ruleID}", h.DeleteRule)
	})

	return r
}

type resolveRequest struct {
	Geography types.Geography `json:"geography"`
}

func (h *Handler) ResolveRegion(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	match, err := h.resolver.Resolve(r.Context(), req.Geography)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, match)
}

func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.repo.ListRegions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": regions, "total": len(regions)})
}

func (h *Handler) GetRegion(w http.ResponseWriter, r *http.Request) {
	region, err := h.repo.FindRegion(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

func (h *Handler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	var region Region
	if err := json.NewDecoder(r.Body).Decode(&region); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if region.Code == "" || region.Name == "" || region.DefaultCurrency == "" {
		writeError(w, errors.Validation("missing required fields", map[string]string{
			"code": "required", "name": "required", "default_currency": "required",
		}))
		return
	}
	if region.Timezone == "" {
		region.Timezone = "UTC"
	}

	if err := h.repo.SaveRegion(r.Context(), &region); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, region)
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.ListRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rules, "total": len(rules)})
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if rule.RegionCode == "" {
		writeError(w, errors.Validation("region_code is required", nil))
		return
	}
	if rule.Country == nil && rule.State == nil && rule.CityPattern == nil && rule.PostalPattern == nil {
		writeError(w, errors.Validation("rule must constrain at least one dimension", nil))
		return
	}

	if err := h.repo.SaveRule(r.Context(), &rule); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "ruleID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid rule ID"))
		return
	}
	if err := h.repo.DeleteRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
