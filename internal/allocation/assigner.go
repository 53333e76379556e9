package allocation

import (
	"context"

	"github.com/debtflow/platform/internal/agency"
	caseinfra "github.com/debtflow/platform/internal/case/infrastructure"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAssigner commits the case assignment and the agency capacity
// increment in one transaction. Either both rows change or neither
// does, so capacity counters cannot drift from assignments.
type PostgresAssigner struct {
	pool     *pgxpool.Pool
	cases    *caseinfra.PostgresRepository
	agencies *agency.Repository
}

// NewPostgresAssigner creates a transactional assigner
func NewPostgresAssigner(pool *pgxpool.Pool, cases *caseinfra.PostgresRepository, agencies *agency.Repository) *PostgresAssigner {
	return &PostgresAssigner{pool: pool, cases: cases, agencies: agencies}
}

var _ Assigner = (*PostgresAssigner)(nil)

// Assign performs the conditional assignment
func (a *PostgresAssigner) Assign(ctx context.Context, caseID, agencyID types.ID, regionCode string) (bool, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	assigned, err := a.cases.AssignAgency(ctx, tx, caseID, agencyID, regionCode)
	if err != nil {
		return false, err
	}
	if !assigned {
		return false, nil
	}

	// Capacity is re-checked under the row lock; losing the race here
	// rolls the assignment back too.
	hasRoom, err := a.agencies.IncrementCapacity(ctx, tx, agencyID)
	if err != nil {
		return false, err
	}
	if !hasRoom {
		return false, errors.Conflict("agency reached capacity during allocation")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "failed to commit transaction")
	}
	return true, nil
}
