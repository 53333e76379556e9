package analysis

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/debtflow/platform/internal/agency"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// AgencySource loads agencies for performance analysis and ROE
// matching
type AgencySource interface {
	FindByID(ctx context.Context, id types.ID) (*agency.Agency, error)
	ListActive(ctx context.Context) ([]agency.Agency, error)
}

// Handler handles HTTP requests for analysis
type Handler struct {
	agencies AgencySource
}

// NewHandler creates a new analysis handler
func NewHandler(agencies AgencySource) *Handler {
	return &Handler{agencies: agencies}
}

// Routes returns the router for analysis endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/priority/score", h.scorePriority)
	r.Post("/priority/batch", h.scorePriorityBatch)
	r.Post("/recovery/predict", h.predictRecovery)
	r.Post("/recovery/batch", h.predictRecoveryBatch)
	r.Post("/roe/recommend", h.recommendROE)
	r.Get("/agencies/compare", h.compareAgencies)
	r.Get("/agencies/{agencyID}", h.analyzeAgency)
	return r
}

func (h *Handler) scorePriority(w http.ResponseWriter, r *http.Request) {
	var in PriorityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.Validation("invalid request body", nil))
		return
	}
	if in.OutstandingAmount < 0 || in.DaysPastDue < 0 {
		writeError(w, errors.Validation("amount and days past due must be non-negative", nil))
		return
	}
	writeJSON(w, http.StatusOK, ScorePriority(in))
}

func (h *Handler) scorePriorityBatch(w http.ResponseWriter, r *http.Request) {
	var inputs []PriorityInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		writeError(w, errors.Validation("invalid request body", nil))
		return
	}

	results := make([]PriorityResult, 0, len(inputs))
	for _, in := range inputs {
		results = append(results, ScorePriority(in))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (h *Handler) predictRecovery(w http.ResponseWriter, r *http.Request) {
	var in RecoveryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.Validation("invalid request body", nil))
		return
	}
	if in.OutstandingAmount < 0 || in.DaysPastDue < 0 {
		writeError(w, errors.Validation("amount and days past due must be non-negative", nil))
		return
	}
	if in.AgencyRecoveryRate < 0 || in.AgencyRecoveryRate > 1 {
		writeError(w, errors.Validation("agency recovery rate must be between 0 and 1", nil))
		return
	}
	writeJSON(w, http.StatusOK, PredictRecovery(in))
}

func (h *Handler) predictRecoveryBatch(w http.ResponseWriter, r *http.Request) {
	var inputs []RecoveryInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		writeError(w, errors.Validation("invalid request body", nil))
		return
	}
	if len(inputs) == 0 {
		writeError(w, errors.Validation("at least one case is required", nil))
		return
	}

	results := make([]RecoveryPrediction, 0, len(inputs))
	totalOutstanding, totalExpected, probabilitySum := 0.0, 0.0, 0.0
	for _, in := range inputs {
		p := PredictRecovery(in)
		results = append(results, p)
		totalOutstanding += in.OutstandingAmount
		totalExpected += p.ExpectedAmount
		probabilitySum += p.RecoveryProbability
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
		"summary": map[string]any{
			"total_outstanding":            round1(totalOutstanding),
			"total_expected_recovery":      round1(totalExpected),
			"average_recovery_probability": round1(probabilitySum / float64(len(results))),
		},
	})
}

func (h *Handler) recommendROE(w http.ResponseWriter, r *http.Request) {
	var in ROEInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.Validation("invalid request body", nil))
		return
	}
	if in.OutstandingAmount < 0 || in.DaysPastDue < 0 {
		writeError(w, errors.Validation("amount and days past due must be non-negative", nil))
		return
	}

	agencies, err := h.agencies.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendROE(in, agencies))
}

func (h *Handler) analyzeAgency(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "agencyID"))
	if err != nil {
		writeError(w, errors.Validation("invalid agency ID", nil))
		return
	}

	a, err := h.agencies.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzePerformance(*a))
}

func (h *Handler) compareAgencies(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("agency_ids")
	if raw == "" {
		writeError(w, errors.Validation("agency_ids query parameter is required", nil))
		return
	}

	ids := strings.Split(raw, ",")
	if len(ids) > 5 {
		ids = ids[:5]
	}

	var agencies []agency.Agency
	for _, s := range ids {
		id, err := types.ParseID(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		a, err := h.agencies.FindByID(r.Context(), id)
		if err != nil {
			continue
		}
		agencies = append(agencies, *a)
	}
	if len(agencies) == 0 {
		writeError(w, errors.NotFound("agency", raw))
		return
	}

	reports, ranking := Compare(agencies)
	writeJSON(w, http.StatusOK, map[string]any{
		"comparisons": reports,
		"ranking":     ranking,
	})
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
