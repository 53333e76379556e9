package escalation

import (
	"context"
	"time"

	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists escalations in PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an escalation repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const escalationColumns = `id, case_id, deadline_id, trigger_type, severity,
	recipient, status, due_at, remaining_hours, created_at, resolved_at, resolved_by`

func scanEscalation(row pgx.Row) (*Escalation, error) {
	e := &Escalation{}
	err := row.Scan(&e.ID, &e.CaseID, &e.Deadline, &e.Trigger, &e.Severity,
		&e.Recipient, &e.Status, &e.DueAt, &e.RemainingHours,
		&e.CreatedAt, &e.ResolvedAt, &e.ResolvedBy)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts a new escalation
func (r *Repository) Create(ctx context.Context, e *Escalation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO escalations (`+escalationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.CaseID, e.Deadline, e.Trigger, e.Severity,
		e.Recipient, e.Status, e.DueAt, e.RemainingHours,
		e.CreatedAt, e.ResolvedAt, e.ResolvedBy,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create escalation")
	}
	return nil
}

// FindByID finds an escalation
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Escalation, error) {
	e, err := scanEscalation(r.pool.QueryRow(ctx,
		`SELECT `+escalationColumns+` FROM escalations WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("escalation", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find escalation")
	}
	return e, nil
}

// ListOpen returns open escalations, oldest first
func (r *Repository) ListOpen(ctx context.Context) ([]Escalation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+escalationColumns+` FROM escalations
		WHERE status = 'open' ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list escalations")
	}
	defer rows.Close()

	var out []Escalation
	for rows.Next() {
		e, err := scanEscalation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan escalation")
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// HasOpenForCase reports whether the case already has an open
// escalation with one of the given triggers. With no triggers any open
// escalation counts.
func (r *Repository) HasOpenForCase(ctx context.Context, caseID types.ID, triggers ...Trigger) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM escalations WHERE case_id = $1 AND status = 'open'
		)`
	args := []any{caseID}
	if len(triggers) > 0 {
		query = `
		SELECT EXISTS (
			SELECT 1 FROM escalations
			WHERE case_id = $1 AND status = 'open' AND trigger_type = ANY($2)
		)`
		names := make([]string, 0, len(triggers))
		for _, t := range triggers {
			names = append(names, string(t))
		}
		args = append(args, names)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to check open escalations")
	}
	return exists, nil
}

// HasOpenForDeadline reports whether the deadline already has an open
// escalation with the given trigger
func (r *Repository) HasOpenForDeadline(ctx context.Context, deadlineID types.ID, trigger Trigger) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM escalations
			WHERE deadline_id = $1 AND trigger_type = $2 AND status = 'open'
		)`, deadlineID, trigger).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check open escalations")
	}
	return exists, nil
}

// Resolve closes an open escalation. Returns false when it was already
// resolved.
func (r *Repository) Resolve(ctx context.Context, id types.ID, by types.ID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE escalations
		SET status = 'resolved', resolved_at = $1, resolved_by = $2
		WHERE id = $3 AND status = 'open'`, time.Now(), by, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to resolve escalation")
	}
	return tag.RowsAffected() == 1, nil
}
