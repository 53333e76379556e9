package escalation

import (
	"context"
	"testing"
	"time"

	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/auth"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/events"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/debtflow/platform/internal/sla"
)

type fakeStore struct {
	created []Escalation
}

func (f *fakeStore) Create(ctx context.Context, e *Escalation) error {
	f.created = append(f.created, *e)
	return nil
}

func (f *fakeStore) HasOpenForCase(ctx context.Context, caseID types.ID, triggers ...Trigger) (bool, error) {
	for _, e := range f.created {
		if e.CaseID != caseID || e.Status != StatusOpen {
			continue
		}
		if len(triggers) == 0 {
			return true, nil
		}
		for _, t := range triggers {
			if e.Trigger == t {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) HasOpenForDeadline(ctx context.Context, deadlineID types.ID, trigger Trigger) (bool, error) {
	for _, e := range f.created {
		if e.Deadline != nil && *e.Deadline == deadlineID && e.Trigger == trigger && e.Status == StatusOpen {
			return true, nil
		}
	}
	return false, nil
}

type fakeCases struct {
	cases map[types.ID]*casedomain.Case
}

func (f *fakeCases) Save(ctx context.Context, c *casedomain.Case) error {
	f.cases[c.ID] = c
	return nil
}

func (f *fakeCases) FindByID(ctx context.Context, id types.ID) (*casedomain.Case, error) {
	c, ok := f.cases[id]
	if !ok {
		return nil, errors.NotFound("case", id.String())
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCases) List(ctx context.Context, filter casedomain.ListFilter) ([]casedomain.Case, int, error) {
	return nil, 0, nil
}

func (f *fakeCases) UpdateStatus(ctx context.Context, c *casedomain.Case, old casedomain.Status) (bool, error) {
	stored, ok := f.cases[c.ID]
	if !ok || stored.Status != old {
		return false, nil
	}
	*stored = *c
	return true, nil
}

func (f *fakeCases) ListOpenWithoutDeadline(ctx context.Context) ([]casedomain.Case, error) {
	return nil, nil
}

func newService(t *testing.T, status casedomain.Status) (*Service, *fakeStore, *casedomain.Case) {
	t.Helper()
	c, err := casedomain.NewCase(
		types.NewMoney(300000, "EUR"),
		types.Geography{Country: "NL", City: "Amsterdam"},
		"retail", "sme", 50,
	)
	if err != nil {
		t.Fatalf("NewCase failed: %v", err)
	}
	c.Status = status

	store := &fakeStore{}
	cases := &fakeCases{cases: map[types.ID]*casedomain.Case{c.ID: c}}
	return NewService(store, cases, events.NopBus{}), store, c
}

func breach(caseID types.ID, remaining float64) sla.ClassifiedDeadline {
	return sla.ClassifiedDeadline{
		Deadline: sla.Deadline{
			ID:         types.NewID(),
			CaseID:     caseID,
			Obligation: casedomain.ObligationFirstContact,
			DueAt:      time.Now().Add(-time.Hour),
			Status:     sla.DeadlineBreached,
		},
		RemainingHours: remaining,
		Classification: sla.Breached,
	}
}

func TestEmitBreachRaisesHighSeverity(t *testing.T) {
	svc, store, c := newService(t, casedomain.StatusInProgress)

	if err := svc.EmitBreach(context.Background(), breach(c.ID, -1.5)); err != nil {
		t.Fatalf("EmitBreach failed: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("Expected 1 escalation, got %d", len(store.created))
	}
	e := store.created[0]
	if e.Severity != SeverityHigh {
		t.Errorf("Expected severity %s, got %s", SeverityHigh, e.Severity)
	}
	if e.Trigger != TriggerBreach {
		t.Errorf("Expected trigger %s, got %s", TriggerBreach, e.Trigger)
	}
	if e.RemainingHours == nil || *e.RemainingHours != -1.5 {
		t.Error("Expected breach context on the escalation")
	}
}

func TestRepeatedBreachGoesCritical(t *testing.T) {
	svc, store, c := newService(t, casedomain.StatusInProgress)

	if err := svc.EmitBreach(context.Background(), breach(c.ID, -1)); err != nil {
		t.Fatalf("first EmitBreach failed: %v", err)
	}
	if err := svc.EmitBreach(context.Background(), breach(c.ID, -20)); err != nil {
		t.Fatalf("second EmitBreach failed: %v", err)
	}

	if len(store.created) != 2 {
		t.Fatalf("Expected 2 escalations, got %d", len(store.created))
	}
	if store.created[1].Severity != SeverityCritical {
		t.Errorf("Expected repeated breach to be %s, got %s", SeverityCritical, store.created[1].Severity)
	}
	if store.created[1].Trigger != TriggerRepeatedBreach {
		t.Errorf("Expected trigger %s, got %s", TriggerRepeatedBreach, store.created[1].Trigger)
	}
}

func atRisk(caseID types.ID, remaining float64) sla.ClassifiedDeadline {
	return sla.ClassifiedDeadline{
		Deadline: sla.Deadline{
			ID:         types.NewID(),
			CaseID:     caseID,
			Obligation: casedomain.ObligationResolution,
			DueAt:      time.Now().Add(time.Duration(remaining * float64(time.Hour))),
			Status:     sla.DeadlinePending,
		},
		RemainingHours: remaining,
		Classification: sla.AtRisk,
	}
}

func TestEmitAtRiskRaisesWarning(t *testing.T) {
	svc, store, c := newService(t, casedomain.StatusInProgress)
	cases := svc.cases.(*fakeCases)

	if err := svc.EmitAtRisk(context.Background(), atRisk(c.ID, 2)); err != nil {
		t.Fatalf("EmitAtRisk failed: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("Expected 1 escalation, got %d", len(store.created))
	}
	e := store.created[0]
	if e.Trigger != TriggerAtRisk {
		t.Errorf("Expected trigger %s, got %s", TriggerAtRisk, e.Trigger)
	}
	if e.Severity != SeverityWarning {
		t.Errorf("Expected severity %s, got %s", SeverityWarning, e.Severity)
	}
	if e.RemainingHours == nil || *e.RemainingHours != 2 {
		t.Error("Expected remaining hours on the warning")
	}
	// A warning is advance notice, not a breach: the case keeps its
	// working status.
	if cases.cases[c.ID].Status != casedomain.StatusInProgress {
		t.Errorf("Expected case to stay in progress, got %s", cases.cases[c.ID].Status)
	}
}

func TestEmitAtRiskSuppressesRepeatWarnings(t *testing.T) {
	svc, store, c := newService(t, casedomain.StatusInProgress)

	cd := atRisk(c.ID, 3)
	if err := svc.EmitAtRisk(context.Background(), cd); err != nil {
		t.Fatalf("first EmitAtRisk failed: %v", err)
	}
	cd.RemainingHours = 1.5
	if err := svc.EmitAtRisk(context.Background(), cd); err != nil {
		t.Fatalf("second EmitAtRisk failed: %v", err)
	}

	if len(store.created) != 1 {
		t.Errorf("Expected 1 escalation for repeated warnings on one deadline, got %d", len(store.created))
	}
}

func TestAtRiskWarningDoesNotEscalateFirstBreach(t *testing.T) {
	svc, store, c := newService(t, casedomain.StatusInProgress)

	if err := svc.EmitAtRisk(context.Background(), atRisk(c.ID, 2)); err != nil {
		t.Fatalf("EmitAtRisk failed: %v", err)
	}
	if err := svc.EmitBreach(context.Background(), breach(c.ID, -1)); err != nil {
		t.Fatalf("EmitBreach failed: %v", err)
	}

	if len(store.created) != 2 {
		t.Fatalf("Expected 2 escalations, got %d", len(store.created))
	}
	last := store.created[1]
	if last.Trigger != TriggerBreach {
		t.Errorf("Expected first breach trigger %s, got %s", TriggerBreach, last.Trigger)
	}
	if last.Severity != SeverityHigh {
		t.Errorf("Expected first breach severity %s, got %s", SeverityHigh, last.Severity)
	}
}

func TestEmitBreachMovesCaseToEscalated(t *testing.T) {
	svc, _, c := newService(t, casedomain.StatusInProgress)
	cases := svc.cases.(*fakeCases)

	if err := svc.EmitBreach(context.Background(), breach(c.ID, -1)); err != nil {
		t.Fatalf("EmitBreach failed: %v", err)
	}
	if cases.cases[c.ID].Status != casedomain.StatusEscalated {
		t.Errorf("Expected case status %s, got %s", casedomain.StatusEscalated, cases.cases[c.ID].Status)
	}
}

func TestEmitBreachOnClosedCaseKeepsStatus(t *testing.T) {
	svc, store, c := newService(t, casedomain.StatusClosed)
	cases := svc.cases.(*fakeCases)

	if err := svc.EmitBreach(context.Background(), breach(c.ID, -1)); err != nil {
		t.Fatalf("EmitBreach failed: %v", err)
	}

	// The escalation is recorded for review even though the case stays
	// closed.
	if len(store.created) != 1 {
		t.Errorf("Expected escalation to be recorded, got %d", len(store.created))
	}
	if cases.cases[c.ID].Status != casedomain.StatusClosed {
		t.Errorf("Expected case to stay closed, got %s", cases.cases[c.ID].Status)
	}
}

func TestEscalateManuallyRequiresSupervisor(t *testing.T) {
	svc, store, c := newService(t, casedomain.StatusInProgress)

	_, err := svc.EscalateManually(context.Background(), c.ID, auth.Caller{Kind: auth.CallerWorker, ID: types.NewID()}, TriggerManual)
	if err == nil {
		t.Fatal("Expected worker escalation to be rejected")
	}
	if errors.Code(err) != "FORBIDDEN" {
		t.Errorf("Expected FORBIDDEN, got %s", errors.Code(err))
	}
	if len(store.created) != 0 {
		t.Error("Expected no escalation from rejected caller")
	}

	e, err := svc.EscalateManually(context.Background(), c.ID, auth.Caller{Kind: auth.CallerSupervisor, ID: types.NewID()}, "")
	if err != nil {
		t.Fatalf("EscalateManually failed: %v", err)
	}
	if e.Trigger != TriggerManual {
		t.Errorf("Expected trigger %s, got %s", TriggerManual, e.Trigger)
	}
}

func TestEscalateManuallyStalledTrigger(t *testing.T) {
	svc, store, c := newService(t, casedomain.StatusInProgress)
	supervisor := auth.Caller{Kind: auth.CallerSupervisor, ID: types.NewID()}

	e, err := svc.EscalateManually(context.Background(), c.ID, supervisor, TriggerStalled)
	if err != nil {
		t.Fatalf("EscalateManually failed: %v", err)
	}
	if e.Trigger != TriggerStalled {
		t.Errorf("Expected trigger %s, got %s", TriggerStalled, e.Trigger)
	}

	_, err = svc.EscalateManually(context.Background(), c.ID, supervisor, TriggerBreach)
	if err == nil {
		t.Fatal("Expected breach trigger to be rejected for manual escalation")
	}
	if errors.Code(err) != "VALIDATION" {
		t.Errorf("Expected VALIDATION, got %s", errors.Code(err))
	}
	if len(store.created) != 1 {
		t.Errorf("Expected 1 escalation, got %d", len(store.created))
	}
}
