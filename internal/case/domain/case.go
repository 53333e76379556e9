package domain

import (
	"fmt"
	"time"

	"github.com/debtflow/platform/internal/shared/types"
)

// Status defines the lifecycle status of a case
type Status string

const (
	StatusPendingAllocation Status = "pending_allocation"
	StatusAllocated         Status = "allocated"
	StatusInProgress        Status = "in_progress"
	StatusCustomerContacted Status = "customer_contacted"
	StatusPaymentPromised   Status = "payment_promised"
	StatusDisputed          Status = "disputed"
	StatusPartialRecovery   Status = "partial_recovery"
	StatusFullRecovery      Status = "full_recovery"
	StatusWrittenOff        Status = "written_off"
	StatusClosed            Status = "closed"
	StatusEscalated         Status = "escalated"
)

// Case is the aggregate root for a debt-recovery record
type Case struct {
	ID        types.ID `json:"id"`
	Reference string   `json:"reference"`

	Outstanding types.Money     `json:"outstanding"`
	Geography   types.Geography `json:"geography"`
	Industry    string          `json:"industry"`
	Segment     string          `json:"segment"`

	Status Status `json:"status"`

	// Routing; assignment is set once by the allocation pipeline and is
	// immutable afterwards outside the re-assignment workflow.
	AssignedAgencyID *types.ID `json:"assigned_agency_id,omitempty"`
	RegionCode       string    `json:"region_code,omitempty"`

	// Active deadline snapshot (authoritative record lives in the SLA store)
	DeadlineAt   *time.Time `json:"deadline_at,omitempty"`
	DeadlineType string     `json:"deadline_type,omitempty"`

	DaysPastDue int `json:"days_past_due"`

	Activity []Activity `json:"activity,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// NewCase creates a new case awaiting allocation
func NewCase(outstanding types.Money, geo types.Geography, industry, segment string, daysPastDue int) (*Case, error) {
	if outstanding.Amount <= 0 {
		return nil, fmt.Errorf("outstanding amount must be positive")
	}
	if outstanding.Currency == "" {
		return nil, fmt.Errorf("currency is required")
	}
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	if daysPastDue < 0 {
		return nil, fmt.Errorf("days past due cannot be negative")
	}

	now := time.Now()
	return &Case{
		ID:          types.NewID(),
		Outstanding: outstanding,
		Geography:   geo.Normalized(),
		Industry:    industry,
		Segment:     segment,
		Status:      StatusPendingAllocation,
		DaysPastDue: daysPastDue,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsTerminal reports whether the status freezes further transitions
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFullRecovery, StatusWrittenOff, StatusClosed:
		return true
	}
	return false
}

// Assigned reports whether the case has an agency assignment
func (c *Case) Assigned() bool {
	return c.AssignedAgencyID != nil && !c.AssignedAgencyID.IsZero()
}

// FormatReference builds the human-readable case reference from the
// persistence-owned sequence number. The reference is assigned when the
// case is first saved, never here in the domain.
func FormatReference(year int, seq int64) string {
	return fmt.Sprintf("DC-%d-%06d", year, seq)
}
