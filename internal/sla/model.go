package sla

import (
	"time"

	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/types"
)

// DeadlineStatus is the lifecycle of a single obligation deadline
type DeadlineStatus string

const (
	DeadlinePending  DeadlineStatus = "pending"
	DeadlineMet      DeadlineStatus = "met"
	DeadlineBreached DeadlineStatus = "breached"
)

// Deadline is one obligation window on a case. Synthesized deadlines
// were backfilled by the scan for cases that lacked one; once written
// they behave exactly like scheduled ones.
type Deadline struct {
	ID            types.ID              `json:"id"`
	CaseID        types.ID              `json:"case_id"`
	Obligation    casedomain.Obligation `json:"obligation"`
	StartAt       time.Time             `json:"start_at"`
	DueAt         time.Time             `json:"due_at"`
	Status        DeadlineStatus        `json:"status"`
	BusinessHours bool                  `json:"business_hours"`
	Synthesized   bool                  `json:"synthesized"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// Classification buckets a pending deadline by time remaining
type Classification string

const (
	OnTrack  Classification = "on_track"
	AtRisk   Classification = "at_risk"
	Breached Classification = "breached"
)

// ClassifiedDeadline is a pending deadline with its scan verdict
type ClassifiedDeadline struct {
	Deadline       Deadline       `json:"deadline"`
	RemainingHours float64        `json:"remaining_hours"`
	Classification Classification `json:"classification"`
}

// Classify buckets by remaining hours against the warning threshold.
// Zero remaining counts as breached.
func Classify(remainingHours, warningThresholdHours float64) Classification {
	if remainingHours <= 0 {
		return Breached
	}
	if remainingHours <= warningThresholdHours {
		return AtRisk
	}
	return OnTrack
}

// ScanReport summarizes one monitor pass, ordered most urgent first
// within each bucket.
type ScanReport struct {
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration"`
	Breached  []ClassifiedDeadline `json:"breached"`
	AtRisk    []ClassifiedDeadline `json:"at_risk"`
	OnTrack   []ClassifiedDeadline `json:"on_track"`
}
