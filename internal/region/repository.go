package region

import (
	"context"
	"strings"
	"time"

	"github.com/debtflow/platform/internal/shared/errors"
	"github.com/debtflow/platform/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists regions and geography rules in PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

var _ RuleSource = (*Repository)(nil)

// NewRepository creates a new region repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRegion inserts or updates a region
func (r *Repository) SaveRegion(ctx context.Context, region *Region) error {
	query := `
		INSERT INTO regions (code, name, default_currency, timezone, deadline_template, escalation_route, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			default_currency = EXCLUDED.default_currency,
			timezone = EXCLUDED.timezone,
			deadline_template = EXCLUDED.deadline_template,
			escalation_route = EXCLUDED.escalation_route,
			updated_at = NOW()`

	now := time.Now()
	_, err := r.pool.Exec(ctx, query,
		region.Code, region.Name, region.DefaultCurrency, region.Timezone,
		region.DeadlineTemplate, region.EscalationRoute, now, now,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save region")
	}
	return nil
}

// FindRegion finds a region by code
func (r *Repository) FindRegion(ctx context.Context, code string) (*Region, error) {
	query := `
		SELECT code, name, default_currency, timezone, deadline_template, escalation_route, created_at, updated_at
		FROM regions WHERE code = $1`

	region := &Region{}
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&region.Code, &region.Name, &region.DefaultCurrency, &region.Timezone,
		&region.DeadlineTemplate, &region.EscalationRoute, &region.CreatedAt, &region.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("region", code)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find region")
	}
	return region, nil
}

// ListRegions returns all regions
func (r *Repository) ListRegions(ctx context.Context) ([]Region, error) {
	query := `
		SELECT code, name, default_currency, timezone, deadline_template, escalation_route, created_at, updated_at
		FROM regions ORDER BY code`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list regions")
	}
	defer rows.Close()

	var regions []Region
	for rows.Next() {
		var region Region
		if err := rows.Scan(
			&region.Code, &region.Name, &region.DefaultCurrency, &region.Timezone,
			&region.DeadlineTemplate, &region.EscalationRoute, &region.CreatedAt, &region.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan region")
		}
		regions = append(regions, region)
	}
	return regions, rows.Err()
}

// SaveRule inserts a geography rule
func (r *Repository) SaveRule(ctx context.Context, rule *Rule) error {
	if rule.ID.IsZero() {
		rule.ID = types.NewID()
	}
	if rule.Country != nil {
		upper := strings.ToUpper(*rule.Country)
		rule.Country = &upper
	}

	query := `
		INSERT INTO geography_rules (id, region_code, country, state, city_pattern, postal_pattern, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := r.pool.Exec(ctx, query,
		rule.ID, rule.RegionCode, rule.Country, rule.State,
		rule.CityPattern, rule.PostalPattern, rule.Priority,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save geography rule")
	}
	return nil
}

// ListRules returns the full rule set
func (r *Repository) ListRules(ctx context.Context) ([]Rule, error) {
	query := `
		SELECT id, region_code, country, state, city_pattern, postal_pattern, priority, created_at
		FROM geography_rules`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list geography rules")
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(
			&rule.ID, &rule.RegionCode, &rule.Country, &rule.State,
			&rule.CityPattern, &rule.PostalPattern, &rule.Priority, &rule.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan geography rule")
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteRule removes a geography rule
func (r *Repository) DeleteRule(ctx context.Context, id types.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM geography_rules WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete geography rule")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("geography rule", id.String())
	}
	return nil
}
