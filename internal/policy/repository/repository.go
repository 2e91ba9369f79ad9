package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/platform/apperr"
)

const configNotFoundMessage = "sampling config not found"

const configColumns = `id, scope, scope_value, activity_type, percentage, algorithm, cooling_days, is_active, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new sampling config repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// ListMatching retrieves all active config rows applicable to the scope query.
func (r *Repo) ListMatching(ctx context.Context, query ScopeQuery) ([]SamplingConfig, error) {
	sql := `
		SELECT ` + configColumns + `
		FROM sampling_configs
		WHERE is_active = true
			AND (activity_type IS NULL OR activity_type = $4)
			AND (
				(scope = 'territory' AND scope_value = $1)
				OR (scope = 'zone' AND scope_value = $2)
				OR (scope = 'business_unit' AND scope_value = $3)
				OR scope = 'global'
			)`

	rows, err := r.pool.Query(ctx, sql, query.Territory, query.Zone, query.BusinessUnit, query.ActivityType)
	if err != nil {
		return nil, fmt.Errorf("list matching sampling configs: %w", err)
	}
	defer rows.Close()

	return scanConfigs(rows)
}

// GetByID retrieves a sampling config by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (SamplingConfig, error) {
	sql := `SELECT ` + configColumns + ` FROM sampling_configs WHERE id = $1`

	cfg, err := scanConfig(r.pool.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SamplingConfig{}, apperr.NotFound(configNotFoundMessage)
		}
		return SamplingConfig{}, fmt.Errorf("get sampling config: %w", err)
	}
	return cfg, nil
}

// List retrieves all sampling configs ordered by scope specificity.
func (r *Repo) List(ctx context.Context) ([]SamplingConfig, error) {
	sql := `
		SELECT ` + configColumns + `
		FROM sampling_configs
		ORDER BY scope, scope_value, COALESCE(activity_type, '')`

	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list sampling configs: %w", err)
	}
	defer rows.Close()

	return scanConfigs(rows)
}

// Create creates a new sampling config.
func (r *Repo) Create(ctx context.Context, params CreateParams) (SamplingConfig, error) {
	sql := `
		INSERT INTO sampling_configs (scope, scope_value, activity_type, percentage, algorithm, cooling_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + configColumns

	cfg, err := scanConfig(r.pool.QueryRow(ctx, sql,
		params.Scope, params.ScopeValue, params.ActivityType, params.Percentage, params.Algorithm, params.CoolingDays,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return SamplingConfig{}, apperr.Conflict("a sampling config already exists for this scope")
		}
		return SamplingConfig{}, fmt.Errorf("create sampling config: %w", err)
	}
	return cfg, nil
}

// Update updates an existing sampling config.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (SamplingConfig, error) {
	sql := `
		UPDATE sampling_configs SET
			percentage = COALESCE($2, percentage),
			algorithm = COALESCE($3, algorithm),
			cooling_days = COALESCE($4, cooling_days),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + configColumns

	cfg, err := scanConfig(r.pool.QueryRow(ctx, sql, params.ID, params.Percentage, params.Algorithm, params.CoolingDays))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SamplingConfig{}, apperr.NotFound(configNotFoundMessage)
		}
		return SamplingConfig{}, fmt.Errorf("update sampling config: %w", err)
	}
	return cfg, nil
}

// Delete removes a sampling config by ID.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM sampling_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sampling config: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(configNotFoundMessage)
	}
	return nil
}

// SetActive sets the is_active flag for a sampling config.
func (r *Repo) SetActive(ctx context.Context, id uuid.UUID, isActive bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE sampling_configs SET is_active = $2, updated_at = now() WHERE id = $1`, id, isActive)
	if err != nil {
		return fmt.Errorf("set sampling config active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(configNotFoundMessage)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (SamplingConfig, error) {
	var cfg SamplingConfig
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&cfg.ID, &cfg.Scope, &cfg.ScopeValue, &cfg.ActivityType, &cfg.Percentage, &cfg.Algorithm,
		&cfg.CoolingDays, &cfg.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return SamplingConfig{}, err
	}

	cfg.CreatedAt = createdAt.Format(time.RFC3339)
	cfg.UpdatedAt = updatedAt.Format(time.RFC3339)
	return cfg, nil
}

func scanConfigs(rows pgx.Rows) ([]SamplingConfig, error) {
	var results []SamplingConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sampling config: %w", err)
		}
		results = append(results, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sampling configs: %w", err)
	}
	return results, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
