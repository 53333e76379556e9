package domain

import (
	"time"

	"github.com/debtflow/platform/internal/shared/types"
)

// Activity is one immutable entry in the case trail: who moved the case
// from which status to which, and when.
type Activity struct {
	ID        types.ID  `json:"id"`
	CaseID    types.ID  `json:"case_id"`
	OldStatus Status    `json:"old_status"`
	NewStatus Status    `json:"new_status"`
	ActorID   types.ID  `json:"actor_id"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Obligation identifies a deadline obligation type
type Obligation string

const (
	ObligationFirstContact Obligation = "first_contact"
	ObligationWeeklyUpdate Obligation = "weekly_update"
	ObligationResolution   Obligation = "resolution"
)

// SatisfiesObligation reports whether reaching a status fulfils an
// obligation, so the SLA layer can mark the matching pending deadline
// met. Any accepted transition counts as an update.
func SatisfiesObligation(status Status, obligation Obligation) bool {
	switch obligation {
	case ObligationFirstContact:
		switch status {
		case StatusCustomerContacted, StatusPaymentPromised,
			StatusPartialRecovery, StatusFullRecovery:
			return true
		}
		return false
	case ObligationWeeklyUpdate:
		return true
	case ObligationResolution:
		return status.IsTerminal()
	}
	return false
}
