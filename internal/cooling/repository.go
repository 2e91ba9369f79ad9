// Package cooling provides the per-farmer cooling period store.
// A farmer with an active cooling window must never be selected by the
// sampler; windows are extended whenever a farmer is actually sampled.
package cooling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Period is one farmer's cooling record.
type Period struct {
	FarmerID        uuid.UUID
	LastContactedAt time.Time
	CoolingUntil    time.Time
}

// Repo implements cooling period persistence with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new cooling period repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ActiveFarmerIDs returns the subset of farmerIDs whose cooling window is
// still open as of the given instant.
func (r *Repo) ActiveFarmerIDs(ctx context.Context, farmerIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]bool, error) {
	active := make(map[uuid.UUID]bool)
	if len(farmerIDs) == 0 {
		return active, nil
	}

	query := `
		SELECT farmer_id
		FROM cooling_periods
		WHERE farmer_id = ANY($1) AND cooling_until > $2`

	rows, err := r.pool.Query(ctx, query, farmerIDs, asOf)
	if err != nil {
		return nil, fmt.Errorf("list active cooling periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cooling period: %w", err)
		}
		active[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cooling periods: %w", err)
	}

	return active, nil
}

// Extend opens (or re-opens) a farmer's cooling window for the given number
// of days from asOf. The upsert overwrites rather than stacks: concurrent
// extensions are last-write-wins on a single row, so windows never drift
// unbounded.
func (r *Repo) Extend(ctx context.Context, farmerID uuid.UUID, asOf time.Time, days int) error {
	until := asOf.AddDate(0, 0, days)

	query := `
		INSERT INTO cooling_periods (farmer_id, last_contacted_at, cooling_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (farmer_id) DO UPDATE
		SET last_contacted_at = EXCLUDED.last_contacted_at,
			cooling_until = EXCLUDED.cooling_until`

	if _, err := r.pool.Exec(ctx, query, farmerID, asOf, until); err != nil {
		return fmt.Errorf("extend cooling period: %w", err)
	}
	return nil
}

// Get returns a farmer's cooling record, if any.
func (r *Repo) Get(ctx context.Context, farmerID uuid.UUID) (Period, bool, error) {
	query := `
		SELECT farmer_id, last_contacted_at, cooling_until
		FROM cooling_periods
		WHERE farmer_id = $1`

	var p Period
	err := r.pool.QueryRow(ctx, query, farmerID).Scan(&p.FarmerID, &p.LastContactedAt, &p.CoolingUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, false, nil
		}
		return Period{}, false, fmt.Errorf("get cooling period: %w", err)
	}
	return p, true, nil
}
