package agency

import (
	"context"
	"time"

	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists agencies in PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new agency repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const agencyColumns = `id, name, status, capacity_limit, capacity_used,
	performance_score, recovery_rate, sla_compliance,
	industry_tags, segment_tags, region_codes, created_at, updated_at`

func scanAgency(row pgx.Row) (*Agency, error) {
	a := &Agency{}
	err := row.Scan(
		&a.ID, &a.Name, &a.Status, &a.CapacityLimit, &a.CapacityUsed,
		&a.PerformanceScore, &a.RecoveryRate, &a.SLACompliance,
		&a.IndustryTags, &a.SegmentTags, &a.RegionCodes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Save inserts a new agency
func (r *Repository) Save(ctx context.Context, a *Agency) error {
	if a.ID.IsZero() {
		a.ID = types.NewID()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO agencies (` + agencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Name, a.Status, a.CapacityLimit, a.CapacityUsed,
		a.PerformanceScore, a.RecoveryRate, a.SLACompliance,
		a.IndustryTags, a.SegmentTags, a.RegionCodes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save agency")
	}
	return nil
}

// FindByID finds an agency by ID
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies WHERE id = $1`

	a, err := scanAgency(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("agency", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find agency")
	}
	return a, nil
}

// List returns all agencies
func (r *Repository) List(ctx context.Context) ([]Agency, error) {
	return r.query(ctx, `SELECT `+agencyColumns+` FROM agencies ORDER BY name`)
}

// ListActive returns agencies whose status is active. Capacity headroom
// is re-checked by the scorer; this just narrows the candidate pool.
func (r *Repository) ListActive(ctx context.Context) ([]Agency, error) {
	return r.query(ctx, `SELECT `+agencyColumns+` FROM agencies WHERE status = 'active' ORDER BY id`)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Agency, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query agencies")
	}
	defer rows.Close()

	var agencies []Agency
	for rows.Next() {
		a, err := scanAgency(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan agency")
		}
		agencies = append(agencies, *a)
	}
	return agencies, rows.Err()
}

// Update applies a partial update to an agency
func (r *Repository) Update(ctx context.Context, id types.ID, req UpdateAgencyRequest) (*Agency, error) {
	a, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.CapacityLimit != nil {
		a.CapacityLimit = *req.CapacityLimit
	}
	if req.PerformanceScore != nil {
		a.PerformanceScore = *req.PerformanceScore
	}
	if req.RecoveryRate != nil {
		a.RecoveryRate = *req.RecoveryRate
	}
	if req.IndustryTags != nil {
		a.IndustryTags = req.IndustryTags
	}
	if req.SegmentTags != nil {
		a.SegmentTags = req.SegmentTags
	}
	if req.RegionCodes != nil {
		a.RegionCodes = req.RegionCodes
	}

	query := `
		UPDATE agencies SET
			name = $2, status = $3, capacity_limit = $4,
			performance_score = $5, recovery_rate = $6,
			industry_tags = $7, segment_tags = $8, region_codes = $9,
			updated_at = NOW()
		WHERE id = $1`

	_, err = r.pool.Exec(ctx, query,
		a.ID, a.Name, a.Status, a.CapacityLimit,
		a.PerformanceScore, a.RecoveryRate,
		a.IndustryTags, a.SegmentTags, a.RegionCodes,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update agency")
	}
	return a, nil
}

// IncrementCapacity bumps capacity_used by one, guarded against the
// limit so a concurrent allocation can never overfill an agency.
// Returns false when no headroom remained.
func (r *Repository) IncrementCapacity(ctx context.Context, tx pgx.Tx, id types.ID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE agencies
		SET capacity_used = capacity_used + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND capacity_used < capacity_limit`, id)
	if err != nil {
		return false, errors.Wrap(err, "failed to increment agency capacity")
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseCapacity frees one capacity slot (case closed or reassigned)
func (r *Repository) ReleaseCapacity(ctx context.Context, id types.ID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE agencies
		SET capacity_used = GREATEST(capacity_used - 1, 0), updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to release agency capacity")
	}
	return nil
}
