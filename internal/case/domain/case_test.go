package domain

import (
	"testing"

	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
)

func newTestCase(t *testing.T, status Status) *Case {
	t.Helper()
	c, err := NewCase(
		types.NewMoney(250000, "EUR"),
		types.Geography{Country: "DE", State: "BY", City: "Munich"},
		"manufacturing", "sme", 45,
	)
	if err != nil {
		t.Fatalf("NewCase failed: %v", err)
	}
	c.Status = status
	return c
}

func TestNewCase(t *testing.T) {
	c, err := NewCase(
		types.NewMoney(100000, "EUR"),
		types.Geography{Country: "de", City: "Berlin"},
		"retail", "consumer", 30,
	)
	if err != nil {
		t.Fatalf("NewCase failed: %v", err)
	}

	if c.Status != StatusPendingAllocation {
		t.Errorf("Expected status %s, got %s", StatusPendingAllocation, c.Status)
	}
	if c.Assigned() {
		t.Error("Expected new case to be unassigned")
	}
	if c.Geography.Country != "DE" {
		t.Errorf("Expected normalized country DE, got %s", c.Geography.Country)
	}
	if c.Reference != "" {
		t.Error("Expected the reference to stay empty until persistence assigns it")
	}
}

func TestFormatReference(t *testing.T) {
	tests := []struct {
		year int
		seq  int64
		want string
	}{
		{2026, 1, "DC-2026-000001"},
		{2026, 42137, "DC-2026-042137"},
		{2027, 1000000, "DC-2027-1000000"}, // sequence outgrows the pad
	}
	for _, tt := range tests {
		if got := FormatReference(tt.year, tt.seq); got != tt.want {
			t.Errorf("FormatReference(%d, %d) = %s, want %s", tt.year, tt.seq, got, tt.want)
		}
	}
}

func TestNewCaseValidation(t *testing.T) {
	tests := []struct {
		name        string
		amount      int64
		currency    string
		geo         types.Geography
		daysPastDue int
	}{
		{"zero amount", 0, "EUR", types.Geography{Country: "DE"}, 10},
		{"negative amount", -500, "EUR", types.Geography{Country: "DE"}, 10},
		{"missing currency", 100000, "", types.Geography{Country: "DE"}, 10},
		{"missing country", 100000, "EUR", types.Geography{City: "Berlin"}, 10},
		{"negative days past due", 100000, "EUR", types.Geography{Country: "DE"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCase(types.NewMoney(tt.amount, tt.currency), tt.geo, "retail", "sme", tt.daysPastDue)
			if err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestTransitionAllowList(t *testing.T) {
	all := []Status{
		StatusPendingAllocation, StatusAllocated, StatusInProgress,
		StatusCustomerContacted, StatusPaymentPromised, StatusDisputed,
		StatusPartialRecovery, StatusFullRecovery, StatusWrittenOff,
		StatusClosed, StatusEscalated,
	}

	actor := types.NewID()
	for _, from := range all {
		for _, target := range all {
			c := newTestCase(t, from)
			err := c.Transition(target, actor, "")

			if CanTransition(from, target) {
				if err != nil {
					t.Errorf("Expected %s -> %s to be allowed, got %v", from, target, err)
				}
				if c.Status != target {
					t.Errorf("Expected status %s after transition, got %s", target, c.Status)
				}
				continue
			}

			if err == nil {
				t.Errorf("Expected %s -> %s to be rejected", from, target)
				continue
			}
			if errors.Code(err) != "INVALID_TRANSITION" {
				t.Errorf("Expected INVALID_TRANSITION for %s -> %s, got %s", from, target, errors.Code(err))
			}
			if c.Status != from {
				t.Errorf("Expected status to remain %s after rejected transition, got %s", from, c.Status)
			}
			if len(c.Activity) != 0 {
				t.Errorf("Expected no activity after rejected transition, got %d entries", len(c.Activity))
			}
		}
	}
}

func TestTransitionAppendsActivity(t *testing.T) {
	c := newTestCase(t, StatusInProgress)
	actor := types.NewID()

	if err := c.Transition(StatusCustomerContacted, actor, "reached debtor by phone"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	if len(c.Activity) != 1 {
		t.Fatalf("Expected 1 activity entry, got %d", len(c.Activity))
	}
	a := c.Activity[0]
	if a.OldStatus != StatusInProgress || a.NewStatus != StatusCustomerContacted {
		t.Errorf("Expected activity in_progress -> customer_contacted, got %s -> %s", a.OldStatus, a.NewStatus)
	}
	if a.ActorID != actor {
		t.Errorf("Expected actor %s, got %s", actor, a.ActorID)
	}
	if a.Note != "reached debtor by phone" {
		t.Errorf("Expected note to be recorded, got %q", a.Note)
	}
}

func TestTerminalStatusSetsClosedAt(t *testing.T) {
	c := newTestCase(t, StatusPaymentPromised)

	if err := c.Transition(StatusFullRecovery, types.NewID(), ""); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if c.ClosedAt == nil {
		t.Error("Expected ClosedAt to be set on terminal status")
	}
	if !c.Status.IsTerminal() {
		t.Error("Expected full_recovery to be terminal")
	}
}

func TestMarkAllocated(t *testing.T) {
	c := newTestCase(t, StatusPendingAllocation)
	agency := types.NewID()

	if err := c.MarkAllocated(agency, "EU-WEST", types.NewID()); err != nil {
		t.Fatalf("MarkAllocated failed: %v", err)
	}
	if c.Status != StatusAllocated {
		t.Errorf("Expected status %s, got %s", StatusAllocated, c.Status)
	}
	if !c.Assigned() || *c.AssignedAgencyID != agency {
		t.Error("Expected agency to be assigned")
	}
	if c.RegionCode != "EU-WEST" {
		t.Errorf("Expected region EU-WEST, got %s", c.RegionCode)
	}

	err := c.MarkAllocated(types.NewID(), "EU-EAST", types.NewID())
	if err == nil {
		t.Fatal("Expected second allocation to fail")
	}
	if errors.Code(err) != "ALREADY_ASSIGNED" {
		t.Errorf("Expected ALREADY_ASSIGNED, got %s", errors.Code(err))
	}
	if *c.AssignedAgencyID != agency {
		t.Error("Expected original assignment to survive a second attempt")
	}
}

func TestMarkEscalated(t *testing.T) {
	c := newTestCase(t, StatusInProgress)

	if err := c.MarkEscalated(types.NewID()); err != nil {
		t.Fatalf("MarkEscalated failed: %v", err)
	}
	if c.Status != StatusEscalated {
		t.Errorf("Expected status %s, got %s", StatusEscalated, c.Status)
	}

	// Escalating an already escalated case is a no-op.
	if err := c.MarkEscalated(types.NewID()); err != nil {
		t.Errorf("Expected repeated escalation to be a no-op, got %v", err)
	}

	closed := newTestCase(t, StatusClosed)
	if err := closed.MarkEscalated(types.NewID()); err == nil {
		t.Error("Expected escalation of a closed case to fail")
	}
}

func TestSatisfiesObligation(t *testing.T) {
	tests := []struct {
		status     Status
		obligation Obligation
		want       bool
	}{
		{StatusCustomerContacted, ObligationFirstContact, true},
		{StatusPaymentPromised, ObligationFirstContact, true},
		{StatusInProgress, ObligationFirstContact, false},
		{StatusDisputed, ObligationFirstContact, false},
		{StatusInProgress, ObligationWeeklyUpdate, true},
		{StatusClosed, ObligationResolution, true},
		{StatusFullRecovery, ObligationResolution, true},
		{StatusPaymentPromised, ObligationResolution, false},
	}

	for _, tt := range tests {
		got := SatisfiesObligation(tt.status, tt.obligation)
		if got != tt.want {
			t.Errorf("SatisfiesObligation(%s, %s) = %v, want %v", tt.status, tt.obligation, got, tt.want)
		}
	}
}
