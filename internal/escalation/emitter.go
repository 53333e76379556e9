package escalation

import (
	"context"
	"log"
	"time"

	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/auth"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/events"
	"github.com/debtflow/platform/internal/shared/metrics"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/debtflow/platform/internal/sla"
)

// Store is the persistence the service needs
type Store interface {
	Create(ctx context.Context, e *Escalation) error
	HasOpenForCase(ctx context.Context, caseID types.ID, triggers ...Trigger) (bool, error)
	HasOpenForDeadline(ctx context.Context, deadlineID types.ID, trigger Trigger) (bool, error)
}

// Service raises and records escalations. It is the breach and at-risk
// sink for the SLA monitor and the handler behind manual supervisor
// escalation.
type Service struct {
	store Store
	cases casedomain.Repository
	bus   events.EventBus
}

// NewService creates an escalation service
func NewService(store Store, cases casedomain.Repository, bus events.EventBus) *Service {
	return &Service{store: store, cases: cases, bus: bus}
}

var _ sla.Emitter = (*Service)(nil)

// EmitBreach raises an escalation for a newly breached deadline. The
// monitor's first-writer-wins flip guarantees at most one call per
// breach, so creation here is unconditional.
func (s *Service) EmitBreach(ctx context.Context, cd sla.ClassifiedDeadline) error {
	trigger := TriggerBreach
	severity := SeverityHigh
	repeat, err := s.store.HasOpenForCase(ctx, cd.Deadline.CaseID, TriggerBreach, TriggerRepeatedBreach)
	if err != nil {
		return err
	}
	if repeat {
		trigger = TriggerRepeatedBreach
		severity = SeverityCritical
	}

	e := newDeadlineEscalation(cd, trigger, severity)
	if err := s.store.Create(ctx, e); err != nil {
		return err
	}

	s.moveCaseToEscalated(ctx, cd.Deadline.CaseID)

	if s.bus != nil {
		breached := events.NewEvent(events.TypeDeadlineBreached, cd.Deadline.CaseID.String(), map[string]any{
			"deadline_id":     cd.Deadline.ID,
			"obligation":      cd.Deadline.Obligation,
			"due_at":          cd.Deadline.DueAt,
			"remaining_hours": cd.RemainingHours,
		})
		if err := s.bus.Publish(ctx, breached); err != nil {
			log.Printf("WARN: failed to publish breach event: %v", err)
		}
	}

	metrics.RecordEscalationRaised(string(trigger), string(severity))
	s.publish(ctx, e)
	return nil
}

// EmitAtRisk raises a warning escalation for a deadline inside the
// warning window. The deadline stays pending, so the scan reports it
// on every pass; an open warning for the same deadline makes the call
// a no-op.
func (s *Service) EmitAtRisk(ctx context.Context, cd sla.ClassifiedDeadline) error {
	already, err := s.store.HasOpenForDeadline(ctx, cd.Deadline.ID, TriggerAtRisk)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	e := newDeadlineEscalation(cd, TriggerAtRisk, SeverityWarning)
	if err := s.store.Create(ctx, e); err != nil {
		return err
	}

	if s.bus != nil {
		atRisk := events.NewEvent(events.TypeDeadlineAtRisk, cd.Deadline.CaseID.String(), map[string]any{
			"deadline_id":     cd.Deadline.ID,
			"obligation":      cd.Deadline.Obligation,
			"due_at":          cd.Deadline.DueAt,
			"remaining_hours": cd.RemainingHours,
		})
		if err := s.bus.Publish(ctx, atRisk); err != nil {
			log.Printf("WARN: failed to publish at-risk event: %v", err)
		}
	}

	metrics.RecordEscalationRaised(string(TriggerAtRisk), string(SeverityWarning))
	s.publish(ctx, e)
	return nil
}

func newDeadlineEscalation(cd sla.ClassifiedDeadline, trigger Trigger, severity Severity) *Escalation {
	deadlineID := cd.Deadline.ID
	dueAt := cd.Deadline.DueAt
	remaining := cd.RemainingHours
	return &Escalation{
		ID:             types.NewID(),
		CaseID:         cd.Deadline.CaseID,
		Deadline:       &deadlineID,
		Trigger:        trigger,
		Severity:       severity,
		Recipient:      "supervisor",
		Status:         StatusOpen,
		DueAt:          &dueAt,
		RemainingHours: &remaining,
		CreatedAt:      time.Now(),
	}
}

// EscalateManually raises a supervisor-initiated escalation. The
// trigger distinguishes a judgment call from a stalled case; anything
// else is rejected.
func (s *Service) EscalateManually(ctx context.Context, caseID types.ID, caller auth.Caller, trigger Trigger) (*Escalation, error) {
	if caller.Kind != auth.CallerSupervisor {
		return nil, errors.Forbidden("only supervisors may escalate a case")
	}
	if trigger == "" {
		trigger = TriggerManual
	}
	if trigger != TriggerManual && trigger != TriggerStalled {
		return nil, errors.Validation("trigger must be manual or stalled", nil)
	}

	c, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	oldStatus := c.Status
	if err := c.MarkEscalated(caller.ID); err != nil {
		return nil, err
	}
	if oldStatus != c.Status {
		if _, err := s.cases.UpdateStatus(ctx, c, oldStatus); err != nil {
			return nil, err
		}
	}

	e := &Escalation{
		ID:        types.NewID(),
		CaseID:    caseID,
		Trigger:   trigger,
		Severity:  SeverityHigh,
		Recipient: "supervisor",
		Status:    StatusOpen,
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}

	metrics.RecordEscalationRaised(string(trigger), string(SeverityHigh))
	s.publish(ctx, e)
	return e, nil
}

// moveCaseToEscalated flips the case status. Losing the conditional
// update just means the case moved concurrently; the escalation record
// stands either way.
func (s *Service) moveCaseToEscalated(ctx context.Context, caseID types.ID) {
	c, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		log.Printf("WARN: failed to load case %s for escalation: %v", caseID, err)
		return
	}
	oldStatus := c.Status
	if err := c.MarkEscalated(types.ID("")); err != nil {
		// Terminal cases keep their status; the escalation stays open
		// for supervisor review.
		return
	}
	if oldStatus == c.Status {
		return
	}
	if _, err := s.cases.UpdateStatus(ctx, c, oldStatus); err != nil {
		log.Printf("WARN: failed to move case %s to escalated: %v", caseID, err)
	}
}

func (s *Service) publish(ctx context.Context, e *Escalation) {
	if s.bus == nil {
		return
	}
	evt := events.NewEvent(events.TypeEscalationRaised, e.CaseID.String(), map[string]any{
		"escalation_id": e.ID,
		"trigger":       e.Trigger,
		"severity":      e.Severity,
	})
	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Printf("WARN: failed to publish escalation event: %v", err)
	}
}
