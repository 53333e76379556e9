package sla

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/debtflow/platform/internal/calendar"
	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/config"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
)

type fakeStore struct {
	deadlines map[types.ID]*Deadline
	scheduled []casedomain.Obligation
}

func newFakeStore() *fakeStore {
	return &fakeStore{deadlines: map[types.ID]*Deadline{}}
}

func (f *fakeStore) add(d Deadline) types.ID {
	d.ID = types.NewID()
	d.Status = DeadlinePending
	f.deadlines[d.ID] = &d
	return d.ID
}

func (f *fakeStore) ListPending(ctx context.Context) ([]Deadline, error) {
	var out []Deadline
	for _, d := range f.deadlines {
		if d.Status == DeadlinePending {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkBreached(ctx context.Context, id types.ID) (bool, error) {
	d, ok := f.deadlines[id]
	if !ok || d.Status != DeadlinePending {
		return false, nil
	}
	d.Status = DeadlineBreached
	return true, nil
}

func (f *fakeStore) Schedule(ctx context.Context, caseID types.ID, obligation casedomain.Obligation, from time.Time, synthesized bool) error {
	f.scheduled = append(f.scheduled, obligation)
	f.add(Deadline{
		CaseID:      caseID,
		Obligation:  obligation,
		StartAt:     from,
		DueAt:       from.Add(240 * time.Hour),
		Synthesized: synthesized,
	})
	return nil
}

type fakeCases struct {
	withoutDeadline []casedomain.Case
}

func (f *fakeCases) Save(ctx context.Context, c *casedomain.Case) error { return nil }
func (f *fakeCases) FindByID(ctx context.Context, id types.ID) (*casedomain.Case, error) {
	return nil, errors.NotFound("case", id.String())
}
func (f *fakeCases) List(ctx context.Context, filter casedomain.ListFilter) ([]casedomain.Case, int, error) {
	return nil, 0, nil
}
func (f *fakeCases) UpdateStatus(ctx context.Context, c *casedomain.Case, old casedomain.Status) (bool, error) {
	return true, nil
}
func (f *fakeCases) ListOpenWithoutDeadline(ctx context.Context) ([]casedomain.Case, error) {
	out := f.withoutDeadline
	f.withoutDeadline = nil
	return out, nil
}

type fakeEmitter struct {
	emitted []ClassifiedDeadline
	atRisk  []ClassifiedDeadline
	fail    map[types.ID]bool
}

func (f *fakeEmitter) EmitBreach(ctx context.Context, d ClassifiedDeadline) error {
	if f.fail[d.Deadline.CaseID] {
		return fmt.Errorf("sink unavailable")
	}
	f.emitted = append(f.emitted, d)
	return nil
}

func (f *fakeEmitter) EmitAtRisk(ctx context.Context, d ClassifiedDeadline) error {
	if f.fail[d.Deadline.CaseID] {
		return fmt.Errorf("sink unavailable")
	}
	f.atRisk = append(f.atRisk, d)
	return nil
}

func testConfig() config.SLAConfig {
	return config.SLAConfig{
		WarningThresholdHours: 8,
		ScanSchedule:          "@every 5m",
		FirstContactHours:     24,
		WeeklyUpdateHours:     40,
		ResolutionHours:       240,
	}
}

func newMonitor(store *fakeStore, cases *fakeCases, emitter *fakeEmitter) *Monitor {
	return NewMonitor(store, cases, calendar.Default(), testConfig(), emitter)
}

// Wall-clock deadlines keep remaining-hour arithmetic exact in tests.
func wallClockDeadline(dueIn time.Duration) Deadline {
	now := time.Now()
	return Deadline{
		CaseID:        types.NewID(),
		Obligation:    casedomain.ObligationFirstContact,
		StartAt:       now.Add(-time.Hour),
		DueAt:         now.Add(dueIn),
		BusinessHours: false,
	}
}

func TestScanClassification(t *testing.T) {
	store := newFakeStore()
	store.add(wallClockDeadline(-30 * time.Minute)) // breached
	store.add(wallClockDeadline(2 * time.Hour))     // at risk
	store.add(wallClockDeadline(100 * time.Hour))   // on track

	m := newMonitor(store, &fakeCases{}, &fakeEmitter{})
	report, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(report.Breached) != 1 {
		t.Errorf("Expected 1 breached, got %d", len(report.Breached))
	}
	if len(report.AtRisk) != 1 {
		t.Errorf("Expected 1 at risk, got %d", len(report.AtRisk))
	}
	if len(report.OnTrack) != 1 {
		t.Errorf("Expected 1 on track, got %d", len(report.OnTrack))
	}
	if got := report.Breached[0].RemainingHours; got > 0 {
		t.Errorf("Expected negative remaining for breached, got %f", got)
	}
}

func TestScanEmitsBreachExactlyOnce(t *testing.T) {
	store := newFakeStore()
	id := store.add(wallClockDeadline(-30 * time.Minute))
	emitter := &fakeEmitter{}

	m := newMonitor(store, &fakeCases{}, emitter)
	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan failed: %v", err)
	}
	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}

	if len(emitter.emitted) != 1 {
		t.Fatalf("Expected exactly 1 emission across repeated scans, got %d", len(emitter.emitted))
	}
	if emitter.emitted[0].Deadline.ID != id {
		t.Error("Expected emission for the breached deadline")
	}
	if store.deadlines[id].Status != DeadlineBreached {
		t.Errorf("Expected deadline status breached, got %s", store.deadlines[id].Status)
	}
}

func TestScanAtRiskEmittedWithoutFlip(t *testing.T) {
	store := newFakeStore()
	id := store.add(wallClockDeadline(2 * time.Hour))
	emitter := &fakeEmitter{}

	m := newMonitor(store, &fakeCases{}, emitter)
	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if store.deadlines[id].Status != DeadlinePending {
		t.Errorf("Expected at-risk deadline to stay pending, got %s", store.deadlines[id].Status)
	}
	if len(emitter.atRisk) != 1 {
		t.Fatalf("Expected 1 at-risk emission, got %d", len(emitter.atRisk))
	}
	if emitter.atRisk[0].Deadline.ID != id {
		t.Error("Expected emission for the at-risk deadline")
	}
	if len(emitter.emitted) != 0 {
		t.Errorf("Expected no breach emissions, got %d", len(emitter.emitted))
	}
}

func TestScanBackfillsSynthesizedDeadline(t *testing.T) {
	c, err := casedomain.NewCase(
		types.NewMoney(100000, "EUR"),
		types.Geography{Country: "DE"},
		"retail", "sme", 30,
	)
	if err != nil {
		t.Fatalf("NewCase failed: %v", err)
	}

	store := newFakeStore()
	cases := &fakeCases{withoutDeadline: []casedomain.Case{*c}}

	m := newMonitor(store, cases, &fakeEmitter{})
	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(store.scheduled) != 1 || store.scheduled[0] != casedomain.ObligationResolution {
		t.Fatalf("Expected one synthesized resolution deadline, got %v", store.scheduled)
	}

	// The synthesized deadline persists: the next pass sees the case
	// covered and must not schedule again.
	if _, err := m.Scan(context.Background()); err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	if len(store.scheduled) != 1 {
		t.Errorf("Expected no re-scheduling on later passes, got %d", len(store.scheduled))
	}
}

func TestScanIsolatesEmitterFailures(t *testing.T) {
	store := newFakeStore()
	failing := wallClockDeadline(-time.Hour)
	healthy := wallClockDeadline(-2 * time.Hour)
	failingID := store.add(failing)
	healthyID := store.add(healthy)

	emitter := &fakeEmitter{fail: map[types.ID]bool{failing.CaseID: true}}
	m := newMonitor(store, &fakeCases{}, emitter)

	report, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(report.Breached) != 2 {
		t.Errorf("Expected both deadlines classified breached, got %d", len(report.Breached))
	}
	if store.deadlines[failingID].Status != DeadlineBreached {
		t.Error("Expected failing case's deadline to be flipped regardless of sink error")
	}
	if store.deadlines[healthyID].Status != DeadlineBreached {
		t.Error("Expected healthy case's deadline to be flipped")
	}
	if len(emitter.emitted) != 1 {
		t.Errorf("Expected 1 successful emission, got %d", len(emitter.emitted))
	}
}

func TestScanOrdersMostUrgentFirst(t *testing.T) {
	store := newFakeStore()
	store.add(wallClockDeadline(6 * time.Hour))
	store.add(wallClockDeadline(1 * time.Hour))
	store.add(wallClockDeadline(4 * time.Hour))

	m := newMonitor(store, &fakeCases{}, &fakeEmitter{})
	report, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(report.AtRisk) != 3 {
		t.Fatalf("Expected 3 at-risk deadlines, got %d", len(report.AtRisk))
	}
	for i := 1; i < len(report.AtRisk); i++ {
		if report.AtRisk[i-1].RemainingHours > report.AtRisk[i].RemainingHours {
			t.Errorf("Expected ascending remaining hours, got %f before %f",
				report.AtRisk[i-1].RemainingHours, report.AtRisk[i].RemainingHours)
		}
	}

	// Emission order follows the ranked report.
	emitter := m.emitter.(*fakeEmitter)
	if len(emitter.atRisk) != 3 {
		t.Fatalf("Expected 3 at-risk emissions, got %d", len(emitter.atRisk))
	}
	for i := 1; i < len(emitter.atRisk); i++ {
		if emitter.atRisk[i-1].RemainingHours > emitter.atRisk[i].RemainingHours {
			t.Errorf("Expected at-risk emissions most urgent first, got %f before %f",
				emitter.atRisk[i-1].RemainingHours, emitter.atRisk[i].RemainingHours)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		remaining float64
		want      Classification
	}{
		{-5, Breached},
		{0, Breached},
		{0.5, AtRisk},
		{8, AtRisk},
		{8.1, OnTrack},
		{100, OnTrack},
	}
	for _, tt := range tests {
		if got := Classify(tt.remaining, 8); got != tt.want {
			t.Errorf("Classify(%f, 8) = %s, want %s", tt.remaining, got, tt.want)
		}
	}
}
