package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/platform/apperr"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new activity repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const activityColumns = `
	a.id, a.external_ref, a.type, a.activity_date, a.territory, a.zone,
	a.business_unit, a.state, a.crop, a.product, a.status, a.created_at, a.updated_at,
	(SELECT COUNT(*) FROM activity_farmers af WHERE af.activity_id = a.id)`

// CreateActivity inserts an activity keyed by external_ref.
func (r *Repo) CreateActivity(ctx context.Context, params CreateActivityParams) (uuid.UUID, bool, error) {
	query := `
		INSERT INTO activities
			(external_ref, type, activity_date, territory, zone, business_unit, state, crop, product)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_ref) DO NOTHING
		RETURNING id`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		params.ExternalRef, params.Type, params.ActivityDate, params.Territory,
		params.Zone, params.BusinessUnit, params.State, params.Crop, params.Product,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing := `SELECT id FROM activities WHERE external_ref = $1`
			if err := r.pool.QueryRow(ctx, existing, params.ExternalRef).Scan(&id); err != nil {
				return uuid.UUID{}, false, fmt.Errorf("lookup existing activity: %w", err)
			}
			return id, false, nil
		}
		return uuid.UUID{}, false, fmt.Errorf("create activity: %w", err)
	}
	return id, true, nil
}

// GetActivity retrieves one activity.
func (r *Repo) GetActivity(ctx context.Context, id uuid.UUID) (Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities a WHERE a.id = $1`

	activity, err := scanActivity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, apperr.NotFound("activity not found")
		}
		return Activity{}, fmt.Errorf("get activity: %w", err)
	}
	return activity, nil
}

// ListActivities retrieves activities matching the filter, newest first.
func (r *Repo) ListActivities(ctx context.Context, filter ListFilter) ([]Activity, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + activityColumns + `
		FROM activities a
		WHERE ($1 = '' OR a.status = $1)
			AND ($2 = '' OR a.territory = $2)
		ORDER BY a.activity_date DESC, a.created_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, filter.Status, filter.Territory, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return activities, nil
}

// UpdateStatus moves an activity's lifecycle status.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE activities SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update activity status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("activity not found")
	}
	return nil
}

// UpsertFarmer inserts or refreshes a farmer keyed by phone.
func (r *Repo) UpsertFarmer(ctx context.Context, params UpsertFarmerParams) (uuid.UUID, error) {
	query := `
		INSERT INTO farmers (name, phone, village, territory, state, preferred_language)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (phone) DO UPDATE
		SET name = EXCLUDED.name,
			village = EXCLUDED.village,
			territory = EXCLUDED.territory,
			state = EXCLUDED.state,
			preferred_language = EXCLUDED.preferred_language,
			updated_at = now()
		RETURNING id`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		params.Name, params.Phone, params.Village, params.Territory,
		params.State, params.PreferredLanguage,
	).Scan(&id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("upsert farmer: %w", err)
	}
	return id, nil
}

// LinkFarmer attaches a farmer to an activity.
func (r *Repo) LinkFarmer(ctx context.Context, activityID, farmerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_farmers (activity_id, farmer_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		activityID, farmerID)
	if err != nil {
		return fmt.Errorf("link farmer to activity: %w", err)
	}
	return nil
}

// FarmerIDs returns the activity's resolvable farmer references. The missing
// count covers references whose farmer row is gone; foreign keys make that
// rare, but ingestion backfills can leave gaps during partial restores.
func (r *Repo) FarmerIDs(ctx context.Context, activityID uuid.UUID) ([]uuid.UUID, int, error) {
	query := `
		SELECT af.farmer_id, (f.id IS NOT NULL)
		FROM activity_farmers af
		LEFT JOIN farmers f ON f.id = af.farmer_id
		WHERE af.activity_id = $1
		ORDER BY af.farmer_id`

	rows, err := r.pool.Query(ctx, query, activityID)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity farmers: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	missing := 0
	for rows.Next() {
		var id uuid.UUID
		var resolves bool
		if err := rows.Scan(&id, &resolves); err != nil {
			return nil, 0, fmt.Errorf("scan activity farmer: %w", err)
		}
		if !resolves {
			missing++
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate activity farmers: %w", err)
	}
	return ids, missing, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID, &a.ExternalRef, &a.Type, &a.ActivityDate, &a.Territory, &a.Zone,
		&a.BusinessUnit, &a.State, &a.Crop, &a.Product, &a.Status,
		&a.CreatedAt, &a.UpdatedAt, &a.FarmerCount,
	)
	if err != nil {
		return Activity{}, err
	}
	return a, nil
}
