package allocation

import (
	"context"
	"log"
	"time"

	"github.com/debtflow/platform/internal/agency"
	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/auth"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/events"
	"github.com/debtflow/platform/internal/shared/metrics"
	"github.com/debtflow/platform/internal/shared/types"
)

// CandidateSource supplies the agencies considered for an allocation
type CandidateSource interface {
	ListActive(ctx context.Context) ([]agency.Agency, error)
}

// Assigner applies an assignment atomically: the case row flip and the
// agency capacity increment succeed or fail together. Returns false
// when the case was already taken by a concurrent allocation.
type Assigner interface {
	Assign(ctx context.Context, caseID, agencyID types.ID, regionCode string) (bool, error)
}

// DeadlineScheduler opens the first obligation deadline after a
// successful assignment.
type DeadlineScheduler interface {
	ScheduleFirstContact(ctx context.Context, caseID types.ID, from time.Time) error
}

// Result describes a completed allocation
type Result struct {
	CaseID              types.ID `json:"case_id"`
	AgencyID            types.ID `json:"agency_id"`
	Score               float64  `json:"score"`
	CandidatesEvaluated int      `json:"candidates_evaluated"`
}

// Orchestrator runs the allocation pipeline for a single case
type Orchestrator struct {
	cases      casedomain.Repository
	candidates CandidateSource
	scorer     *agency.Scorer
	assigner   Assigner
	scheduler  DeadlineScheduler
	bus        events.EventBus
}

// NewOrchestrator creates an allocation orchestrator
func NewOrchestrator(
	cases casedomain.Repository,
	candidates CandidateSource,
	scorer *agency.Scorer,
	assigner Assigner,
	scheduler DeadlineScheduler,
	bus events.EventBus,
) *Orchestrator {
	return &Orchestrator{
		cases:      cases,
		candidates: candidates,
		scorer:     scorer,
		assigner:   assigner,
		scheduler:  scheduler,
		bus:        bus,
	}
}

// Allocate assigns the highest-scoring eligible agency to a pending
// case. Only the automated pipeline may invoke it; the caller check
// runs before any state is read or written.
func (o *Orchestrator) Allocate(ctx context.Context, caseID types.ID, caller auth.Caller) (*Result, error) {
	if !caller.IsPipeline() {
		metrics.RecordAllocationCallerDenied()
		o.publish(ctx, events.TypeAllocationDenied, caseID, map[string]any{
			"caller_kind": caller.Kind,
			"caller_id":   caller.ID,
		})
		return nil, errors.SystemOnly("allocation")
	}

	c, err := o.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Assigned() || c.Status != casedomain.StatusPendingAllocation {
		metrics.RecordAllocation("already_assigned")
		return nil, errors.PreconditionFailed("ALREADY_ASSIGNED", "case is already allocated")
	}
	// A case whose geography resolved to no region cannot be
	// auto-routed; it stays pending for manual region assignment.
	if c.RegionCode == "" {
		metrics.RecordAllocation("no_region")
		return nil, errors.PreconditionFailed("NO_REGION", "case has no resolved region and cannot be auto-routed")
	}

	agencies, err := o.candidates.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	profile := agency.CaseProfile{
		Industry:   c.Industry,
		Segment:    c.Segment,
		RegionCode: c.RegionCode,
	}
	ranked := o.scorer.Rank(profile, agencies)
	if len(ranked) == 0 {
		metrics.RecordAllocation("no_candidate")
		return nil, errors.NoCandidate("no eligible agency for case " + c.Reference)
	}

	best := ranked[0]
	applied, err := o.assigner.Assign(ctx, c.ID, best.Agency.ID, c.RegionCode)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent allocation won the conditional update.
		metrics.RecordAllocation("already_assigned")
		return nil, errors.PreconditionFailed("ALREADY_ASSIGNED", "case is already allocated")
	}

	if err := o.scheduler.ScheduleFirstContact(ctx, c.ID, time.Now()); err != nil {
		// The assignment stands; the deadline backfill scan picks the
		// case up on its next pass.
		log.Printf("WARN: failed to schedule first contact deadline for case %s: %v", c.ID, err)
	}

	metrics.RecordAllocation("allocated")
	o.publish(ctx, events.TypeCaseAllocated, c.ID, map[string]any{
		"agency_id":            best.Agency.ID,
		"score":                best.Score,
		"candidates_evaluated": len(ranked),
	})

	return &Result{
		CaseID:              c.ID,
		AgencyID:            best.Agency.ID,
		Score:               best.Score,
		CandidatesEvaluated: len(ranked),
	}, nil
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, caseID types.ID, data map[string]any) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(ctx, events.NewEvent(eventType, caseID.String(), data)); err != nil {
		log.Printf("WARN: failed to publish %s event: %v", eventType, err)
	}
}
