package escalation

import (
	"time"

	"github.com/debtflow/platform/internal/shared/types"
)

// Trigger identifies what raised an escalation
type Trigger string

const (
	TriggerBreach         Trigger = "sla_breach"
	TriggerRepeatedBreach Trigger = "sla_repeated_breach"
	TriggerAtRisk         Trigger = "sla_at_risk"
	TriggerStalled        Trigger = "stalled"
	TriggerManual         Trigger = "manual"
)

// Severity of an escalation. An at-risk warning opens at warning, a
// breach at high; a case breaching again while an earlier breach
// escalation is still open goes critical.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status of an escalation record
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Escalation is a supervisor work item raised for a case
type Escalation struct {
	ID       types.ID  `json:"id"`
	CaseID   types.ID  `json:"case_id"`
	Deadline *types.ID `json:"deadline_id,omitempty"`

	Trigger   Trigger  `json:"trigger"`
	Severity  Severity `json:"severity"`
	Recipient string   `json:"recipient"`
	Status    Status   `json:"status"`

	// Breach context, absent on manual escalations
	DueAt          *time.Time `json:"due_at,omitempty"`
	RemainingHours *float64   `json:"remaining_hours,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy *types.ID  `json:"resolved_by,omitempty"`
}
