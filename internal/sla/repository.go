package sla

import (
	"context"
	"time"

	"github.com/debtflow/platform/internal/calendar"
	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/config"
	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/metrics"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists deadlines in PostgreSQL
type Store struct {
	pool *pgxpool.Pool
	cal  calendar.Calendar
	cfg  config.SLAConfig
}

// NewStore creates a deadline store
func NewStore(pool *pgxpool.Pool, cal calendar.Calendar, cfg config.SLAConfig) *Store {
	return &Store{pool: pool, cal: cal, cfg: cfg}
}

const deadlineColumns = `id, case_id, obligation, start_at, due_at, status,
	business_hours, synthesized, created_at, updated_at`

func scanDeadline(row pgx.Row) (*Deadline, error) {
	d := &Deadline{}
	err := row.Scan(&d.ID, &d.CaseID, &d.Obligation, &d.StartAt, &d.DueAt,
		&d.Status, &d.BusinessHours, &d.Synthesized, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Create inserts a deadline. Duplicate windows (same case, obligation
// and start) are silently ignored so scheduling is retry-safe.
func (s *Store) Create(ctx context.Context, d *Deadline) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO deadlines (`+deadlineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (case_id, obligation, start_at) DO NOTHING`,
		d.ID, d.CaseID, d.Obligation, d.StartAt, d.DueAt, d.Status,
		d.BusinessHours, d.Synthesized, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create deadline")
	}
	return nil
}

// ListPending returns all pending deadlines ordered by due time
func (s *Store) ListPending(ctx context.Context) ([]Deadline, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+deadlineColumns+` FROM deadlines
		WHERE status = 'pending' ORDER BY due_at`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pending deadlines")
	}
	defer rows.Close()

	var deadlines []Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan deadline")
		}
		deadlines = append(deadlines, *d)
	}
	return deadlines, rows.Err()
}

// ListByCase returns all deadlines for a case
func (s *Store) ListByCase(ctx context.Context, caseID types.ID) ([]Deadline, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+deadlineColumns+` FROM deadlines
		WHERE case_id = $1 ORDER BY due_at`, caseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list deadlines")
	}
	defer rows.Close()

	var deadlines []Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan deadline")
		}
		deadlines = append(deadlines, *d)
	}
	return deadlines, rows.Err()
}

// MarkBreached flips a pending deadline to breached. The conditional
// update makes the flip first-writer-wins: exactly one scan pass
// observes true and owns the escalation emission.
func (s *Store) MarkBreached(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE deadlines SET status = 'breached', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark deadline breached")
	}
	return tag.RowsAffected() == 1, nil
}

// MarkMet flips a pending deadline to met
func (s *Store) MarkMet(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE deadlines SET status = 'met', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark deadline met")
	}
	return tag.RowsAffected() == 1, nil
}

// MarkSatisfied closes every pending deadline whose obligation the new
// case status fulfils. Invoked by the case status endpoint.
func (s *Store) MarkSatisfied(ctx context.Context, caseID types.ID, status casedomain.Status) error {
	pending, err := s.ListByCase(ctx, caseID)
	if err != nil {
		return err
	}
	for _, d := range pending {
		if d.Status != DeadlinePending {
			continue
		}
		if !casedomain.SatisfiesObligation(status, d.Obligation) {
			continue
		}
		if _, err := s.MarkMet(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleFirstContact opens the first contact window after allocation
func (s *Store) ScheduleFirstContact(ctx context.Context, caseID types.ID, from time.Time) error {
	return s.Schedule(ctx, caseID, casedomain.ObligationFirstContact, from, false)
}

// Schedule creates a pending deadline for an obligation, walking the
// business calendar from the start time.
func (s *Store) Schedule(ctx context.Context, caseID types.ID, obligation casedomain.Obligation, from time.Time, synthesized bool) error {
	hours := s.obligationHours(obligation)
	due, degraded := s.cal.DueTime(from, hours, true)
	if degraded {
		metrics.RecordCalendarWalkDegraded()
	}

	now := time.Now()
	err := s.Create(ctx, &Deadline{
		ID:            types.NewID(),
		CaseID:        caseID,
		Obligation:    obligation,
		StartAt:       from,
		DueAt:         due,
		Status:        DeadlinePending,
		BusinessHours: true,
		Synthesized:   synthesized,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return err
	}
	return s.snapshotOnCase(ctx, caseID, due, obligation)
}

// snapshotOnCase mirrors the nearest pending deadline onto the case row
// for cheap listing queries. The deadlines table stays authoritative.
func (s *Store) snapshotOnCase(ctx context.Context, caseID types.ID, due time.Time, obligation casedomain.Obligation) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE cases SET deadline_at = $1, deadline_type = $2, updated_at = NOW()
		WHERE id = $3 AND (deadline_at IS NULL OR deadline_at > $1)`,
		due, obligation, caseID)
	if err != nil {
		return errors.Wrap(err, "failed to snapshot deadline on case")
	}
	return nil
}

func (s *Store) obligationHours(obligation casedomain.Obligation) float64 {
	switch obligation {
	case casedomain.ObligationFirstContact:
		return s.cfg.FirstContactHours
	case casedomain.ObligationWeeklyUpdate:
		return s.cfg.WeeklyUpdateHours
	default:
		return s.cfg.ResolutionHours
	}
}
