package domain

import (
	"context"

	"github.com/debtflow/platform/internal/shared/types"
)

// ListFilter narrows case listings
type ListFilter struct {
	Status   *Status
	AgencyID *types.ID
	Region   string
	Limit    int
	Offset   int
}

// Repository is the persistence port for cases
type Repository interface {
	Save(ctx context.Context, c *Case) error
	FindByID(ctx context.Context, id types.ID) (*Case, error)
	List(ctx context.Context, filter ListFilter) ([]Case, int, error)

	// UpdateStatus applies a status change guarded by the expected old
	// status and appends the activity trail atomically. Returns false
	// when the guard failed (someone else moved the case first).
	UpdateStatus(ctx context.Context, c *Case, oldStatus Status) (bool, error)

	// ListOpenWithoutDeadline returns non-terminal cases that have no
	// pending deadline record, for the classifier's synthesized fallback.
	ListOpenWithoutDeadline(ctx context.Context) ([]Case, error)
}
