package domain

import (
	"time"

	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
)

// transitions is the fixed allow-list of worker-driven status changes.
// pending_allocation has no worker transitions: only the allocation
// pipeline moves a case out of it. escalated is entered through the
// escalation path, never requested directly; it can be worked back into
// the normal flow or closed once the escalation is resolved.
var transitions = map[Status][]Status{
	StatusPendingAllocation: {},
	StatusAllocated:         {StatusInProgress},
	StatusInProgress:        {StatusCustomerContacted, StatusDisputed},
	StatusCustomerContacted: {StatusPaymentPromised, StatusDisputed, StatusInProgress},
	StatusPaymentPromised:   {StatusPartialRecovery, StatusFullRecovery, StatusDisputed},
	StatusDisputed:          {StatusInProgress, StatusCustomerContacted, StatusClosed},
	StatusPartialRecovery:   {StatusPaymentPromised, StatusFullRecovery, StatusWrittenOff, StatusClosed},
	StatusEscalated:         {StatusInProgress, StatusClosed},
	StatusFullRecovery:      {},
	StatusWrittenOff:        {},
	StatusClosed:            {},
}

// CanTransition reports whether from allows a worker transition to target
func CanTransition(from, target Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the worker allow-list for a status
func AllowedTransitions(from Status) []Status {
	return transitions[from]
}

// Transition applies a worker-requested status change. An attempt at any
// status outside the allow-list fails with INVALID_TRANSITION and leaves
// the case unmodified. Accepted transitions append an immutable activity
// record with old/new status and actor.
func (c *Case) Transition(target Status, actorID types.ID, note string) error {
	if !CanTransition(c.Status, target) {
		return errors.PreconditionFailed("INVALID_TRANSITION",
			"cannot transition from "+string(c.Status)+" to "+string(target))
	}

	now := time.Now()
	old := c.Status
	c.Status = target
	c.UpdatedAt = now
	if target.IsTerminal() {
		c.ClosedAt = &now
	}

	c.Activity = append(c.Activity, Activity{
		ID:        types.NewID(),
		CaseID:    c.ID,
		OldStatus: old,
		NewStatus: target,
		ActorID:   actorID,
		Note:      note,
		CreatedAt: now,
	})

	return nil
}

// MarkAllocated records the pipeline assignment. Used only by the
// allocation orchestrator; the durable guarantee is the conditional
// UPDATE in the repository, this keeps the in-memory aggregate in step.
func (c *Case) MarkAllocated(agencyID types.ID, regionCode string, actorID types.ID) error {
	if c.Status != StatusPendingAllocation {
		return errors.PreconditionFailed("ALREADY_ASSIGNED", "case is already allocated")
	}

	now := time.Now()
	c.AssignedAgencyID = &agencyID
	if regionCode != "" {
		c.RegionCode = regionCode
	}
	old := c.Status
	c.Status = StatusAllocated
	c.UpdatedAt = now

	c.Activity = append(c.Activity, Activity{
		ID:        types.NewID(),
		CaseID:    c.ID,
		OldStatus: old,
		NewStatus: StatusAllocated,
		ActorID:   actorID,
		CreatedAt: now,
	})

	return nil
}

// MarkEscalated flips the case into the escalated status from any
// non-terminal state. Part of the escalation path, not the worker table.
func (c *Case) MarkEscalated(actorID types.ID) error {
	if c.Status.IsTerminal() {
		return errors.PreconditionFailed("INVALID_TRANSITION", "cannot escalate a closed case")
	}
	if c.Status == StatusEscalated {
		return nil
	}

	now := time.Now()
	old := c.Status
	c.Status = StatusEscalated
	c.UpdatedAt = now

	c.Activity = append(c.Activity, Activity{
		ID:        types.NewID(),
		CaseID:    c.ID,
		OldStatus: old,
		NewStatus: StatusEscalated,
		ActorID:   actorID,
		CreatedAt: now,
	})

	return nil
}
