package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/region"
	"github.com/debtflow/platform/internal/shared/auth"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/events"
	"github.com/debtflow/platform/internal/shared/metrics"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/go-chi/chi/v5"
)

// ObligationMarker lets the status endpoint report accepted transitions
// to the deadline store without this package depending on it.
type ObligationMarker interface {
	MarkSatisfied(ctx context.Context, caseID types.ID, status casedomain.Status) error
}

// CapacityReleaser frees the assigned agency's slot when a case reaches
// a terminal status.
type CapacityReleaser interface {
	ReleaseCapacity(ctx context.Context, id types.ID) error
}

// Handler handles HTTP requests for cases
type Handler struct {
	repo     casedomain.Repository
	resolver *region.Resolver
	marker   ObligationMarker
	releaser CapacityReleaser
	bus      events.EventBus
}

// NewHandler creates a new case handler
func NewHandler(repo casedomain.Repository, resolver *region.Resolver, marker ObligationMarker, releaser CapacityReleaser, bus events.EventBus) *Handler {
	return &Handler{repo: repo, resolver: resolver, marker: marker, releaser: releaser, bus: bus}
}

// Routes returns the router for case endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.createCase)
	r.Get("/", h.listCases)
	r.Get("/{caseID}", h.getCase)
	r.Get("/{caseID}/activity", h.getActivity)
	r.Post("/{caseID}/status", h.changeStatus)
	return r
}

type createCaseRequest struct {
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Geography   types.Geography `json:"geography"`
	Industry    string          `json:"industry"`
	Segment     string          `json:"segment"`
	DaysPastDue int             `json:"days_past_due"`
	Source      string          `json:"source,omitempty"`
}

func (h *Handler) createCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Validation("invalid request body", nil))
		return
	}

	c, err := casedomain.NewCase(
		types.NewMoney(req.Amount, req.Currency),
		req.Geography, req.Industry, req.Segment, req.DaysPastDue,
	)
	if err != nil {
		writeError(w, errors.Validation(err.Error(), nil))
		return
	}

	// Region resolution runs at intake so allocation works from a
	// stable routing decision. Unresolvable geography is not fatal.
	match, err := h.resolver.Resolve(r.Context(), c.Geography)
	if err == nil {
		c.RegionCode = match.Region.Code
	} else if errors.Code(err) != "NOT_FOUND" {
		writeError(w, err)
		return
	}

	if err := h.repo.Save(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	metrics.RecordCaseCreated(c.RegionCode, source)
	h.publish(r.Context(), events.TypeCaseCreated, c.ID, map[string]any{
		"reference":   c.Reference,
		"region_code": c.RegionCode,
		"amount":      c.Outstanding.Amount,
		"currency":    c.Outstanding.Currency,
	})

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) getCase(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.Validation("invalid case ID", nil))
		return
	}

	c, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) listCases(w http.ResponseWriter, r *http.Request) {
	filter := casedomain.ListFilter{
		Region: r.URL.Query().Get("region"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := casedomain.Status(s)
		filter.Status = &status
	}
	if a := r.URL.Query().Get("agency_id"); a != "" {
		id, err := types.ParseID(a)
		if err != nil {
			writeError(w, errors.Validation("invalid agency ID", nil))
			return
		}
		filter.AgencyID = &id
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		filter.Limit, _ = strconv.Atoi(l)
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		filter.Offset, _ = strconv.Atoi(o)
	}

	cases, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cases": cases,
		"total": total,
	})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.Validation("invalid case ID", nil))
		return
	}

	c, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"case_id":  c.ID,
		"activity": c.Activity,
	})
}

type changeStatusRequest struct {
	Status casedomain.Status `json:"status"`
	Note   string            `json:"note,omitempty"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, errors.Validation("invalid case ID", nil))
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Validation("invalid request body", nil))
		return
	}

	c, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	caller := auth.GetCaller(r.Context())
	if caller.Kind == "" {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}
	if caller.Kind == auth.CallerWorker {
		if !c.Assigned() || caller.AgencyID.IsZero() || caller.AgencyID != *c.AssignedAgencyID {
			writeError(w, errors.NotOwner(c.ID.String()))
			return
		}
	}

	oldStatus := c.Status
	if err := c.Transition(req.Status, caller.ID, req.Note); err != nil {
		writeError(w, err)
		return
	}

	applied, err := h.repo.UpdateStatus(r.Context(), c, oldStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	if !applied {
		writeError(w, errors.PreconditionFailed("INVALID_TRANSITION",
			"case status changed concurrently, reload and retry"))
		return
	}

	metrics.RecordCaseStatusChange(string(oldStatus), string(c.Status))
	h.publish(r.Context(), events.TypeCaseStatusChanged, c.ID, map[string]any{
		"old_status": oldStatus,
		"new_status": c.Status,
	})

	if h.marker != nil {
		if err := h.marker.MarkSatisfied(r.Context(), c.ID, c.Status); err != nil {
			log.Printf("WARN: failed to mark obligations for case %s: %v", c.ID, err)
		}
	}

	if c.Status.IsTerminal() && c.Assigned() && h.releaser != nil {
		if err := h.releaser.ReleaseCapacity(r.Context(), *c.AssignedAgencyID); err != nil {
			log.Printf("WARN: failed to release capacity for agency %s: %v", *c.AssignedAgencyID, err)
		}
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) publish(ctx context.Context, eventType string, caseID types.ID, data map[string]any) {
	if h.bus == nil {
		return
	}
	evt := events.NewEvent(eventType, caseID.String(), data)
	if err := h.bus.Publish(ctx, evt); err != nil {
		log.Printf("WARN: failed to publish %s event: %v", eventType, err)
	}
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
