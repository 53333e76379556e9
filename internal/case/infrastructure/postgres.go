package infrastructure

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ domain.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const caseColumns = `id, reference, outstanding_amount, currency,
	country, state, city, postal_code, industry, segment,
	status, assigned_agency_id, region_code, deadline_at, deadline_type,
	days_past_due, created_at, updated_at, closed_at`

func scanCase(row pgx.Row) (*domain.Case, error) {
	c := &domain.Case{}
	var regionCode, deadlineType *string

	err := row.Scan(
		&c.ID, &c.Reference, &c.Outstanding.Amount, &c.Outstanding.Currency,
		&c.Geography.Country, &c.Geography.State, &c.Geography.City, &c.Geography.PostalCode,
		&c.Industry, &c.Segment,
		&c.Status, &c.AssignedAgencyID, &regionCode, &c.DeadlineAt, &deadlineType,
		&c.DaysPastDue, &c.CreatedAt, &c.UpdatedAt, &c.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	if regionCode != nil {
		c.RegionCode = *regionCode
	}
	if deadlineType != nil {
		c.DeadlineType = *deadlineType
	}
	return c, nil
}

// Save saves a new case with its initial activity. A case arriving
// without a reference gets one from the database sequence, so bursts of
// concurrent intake never collide on the unique reference column.
func (r *PostgresRepository) Save(ctx context.Context, c *domain.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if c.Reference == "" {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('case_reference_seq')`).Scan(&seq); err != nil {
			return errors.Wrap(err, "failed to allocate case reference")
		}
		c.Reference = domain.FormatReference(time.Now().Year(), seq)
	}

	query := `
		INSERT INTO cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = tx.Exec(ctx, query,
		c.ID, c.Reference, c.Outstanding.Amount, c.Outstanding.Currency,
		c.Geography.Country, c.Geography.State, c.Geography.City, c.Geography.PostalCode,
		c.Industry, c.Segment,
		c.Status, c.AssignedAgencyID, nullable(c.RegionCode), c.DeadlineAt, nullable(c.DeadlineType),
		c.DaysPastDue, c.CreatedAt, c.UpdatedAt, c.ClosedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("case with this reference already exists")
		}
		return errors.Wrap(err, "failed to save case")
	}

	for _, a := range c.Activity {
		if err := insertActivity(ctx, tx, &a); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// FindByID finds a case by ID including its activity trail
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`

	c, err := scanCase(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case")
	}

	activity, err := r.loadActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Activity = activity
	return c, nil
}

// List returns cases matching a filter, newest first
func (r *PostgresRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Case, int, error) {
	where := []string{"TRUE"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, "status = $"+itoa(len(args)))
	}
	if filter.AgencyID != nil {
		args = append(args, *filter.AgencyID)
		where = append(where, "assigned_agency_id = $"+itoa(len(args)))
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		where = append(where, "region_code = $"+itoa(len(args)))
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cases WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count cases")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := `SELECT ` + caseColumns + ` FROM cases WHERE ` + clause +
		` ORDER BY created_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list cases")
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan case")
		}
		cases = append(cases, *c)
	}
	return cases, total, rows.Err()
}

// UpdateStatus applies a status change guarded by the expected old
// status, persisting the appended activity in the same transaction.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, c *domain.Case, oldStatus domain.Status) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE cases
		SET status = $1, updated_at = $2, closed_at = $3
		WHERE id = $4 AND status = $5`,
		c.Status, c.UpdatedAt, c.ClosedAt, c.ID, oldStatus,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to update case status")
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	// Persist only activity rows appended by this change.
	for i := range c.Activity {
		a := &c.Activity[i]
		if a.OldStatus == oldStatus && a.NewStatus == c.Status {
			if err := insertActivity(ctx, tx, a); err != nil {
				return false, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "failed to commit transaction")
	}
	return true, nil
}

// AssignAgency is the single write path for agency assignment: one
// conditional UPDATE that both checks the precondition (no assignment,
// still pending) and applies it, so concurrent retries cannot
// double-allocate.
func (r *PostgresRepository) AssignAgency(ctx context.Context, tx pgx.Tx, caseID, agencyID types.ID, regionCode string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE cases
		SET assigned_agency_id = $1,
			region_code = COALESCE(NULLIF($2, ''), region_code),
			status = $3,
			updated_at = NOW()
		WHERE id = $4 AND assigned_agency_id IS NULL AND status = $5`,
		agencyID, regionCode, domain.StatusAllocated, caseID, domain.StatusPendingAllocation,
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to assign agency")
	}
	return tag.RowsAffected() == 1, nil
}

// ListOpenWithoutDeadline returns non-terminal cases lacking a pending
// deadline record
func (r *PostgresRepository) ListOpenWithoutDeadline(ctx context.Context) ([]domain.Case, error) {
	query := `
		SELECT ` + caseColumns + ` FROM cases c
		WHERE c.status NOT IN ($1, $2, $3)
		AND NOT EXISTS (
			SELECT 1 FROM deadlines d WHERE d.case_id = c.id AND d.status = 'pending'
		)`

	rows, err := r.pool.Query(ctx, query,
		domain.StatusFullRecovery, domain.StatusWrittenOff, domain.StatusClosed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cases without deadlines")
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan case")
		}
		cases = append(cases, *c)
	}
	return cases, rows.Err()
}

func (r *PostgresRepository) loadActivity(ctx context.Context, caseID types.ID) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, case_id, old_status, new_status, actor_id, note, created_at
		FROM case_activity WHERE case_id = $1 ORDER BY created_at`, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load case activity")
	}
	defer rows.Close()

	var activity []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.CaseID, &a.OldStatus, &a.NewStatus, &a.ActorID, &a.Note, &a.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan activity")
		}
		activity = append(activity, a)
	}
	return activity, rows.Err()
}

func insertActivity(ctx context.Context, tx pgx.Tx, a *domain.Activity) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO case_activity (id, case_id, old_status, new_status, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.CaseID, a.OldStatus, a.NewStatus, a.ActorID, a.Note, a.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save activity")
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
