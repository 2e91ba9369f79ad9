// Package repository persists sampling audit records. The unique partial
// index on (activity_id) WHERE outcome = 'success' makes the success insert
// the engine's run-level idempotency guard.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// Audit is one recorded engine invocation for an activity.
type Audit struct {
	ID                   uuid.UUID
	ActivityID           uuid.UUID
	Outcome              string
	FarmerCount          int
	PolicyPercentage     int
	PolicyAlgorithm      string
	SampledCount         int
	NotSampledCount      int
	ExcludedCoolingCount int
	SkippedMissingCount  int
	TasksCreated         int
	ErrorMessage         string
	CreatedAt            time.Time
}

// ErrSuccessExists reports that another run already recorded the success
// audit for this activity.
var ErrSuccessExists = errors.New("a successful sampling audit already exists for this activity")

// Repository is the persistence contract for sampling audits.
type Repository interface {
	// Insert writes one audit. Inserting a second success audit for the same
	// activity returns ErrSuccessExists.
	Insert(ctx context.Context, audit Audit) (uuid.UUID, error)

	// LatestSuccessful returns the activity's success audit, if one exists.
	LatestSuccessful(ctx context.Context, activityID uuid.UUID) (Audit, bool, error)

	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]Audit, error)
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new sampling audit repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// Insert writes one audit record.
func (r *Repo) Insert(ctx context.Context, audit Audit) (uuid.UUID, error) {
	query := `
		INSERT INTO sampling_audits
			(activity_id, outcome, farmer_count, policy_percentage, policy_algorithm,
			 sampled_count, not_sampled_count, excluded_cooling_count,
			 skipped_missing_count, tasks_created, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query,
		audit.ActivityID, audit.Outcome, audit.FarmerCount, audit.PolicyPercentage,
		audit.PolicyAlgorithm, audit.SampledCount, audit.NotSampledCount,
		audit.ExcludedCoolingCount, audit.SkippedMissingCount, audit.TasksCreated,
		audit.ErrorMessage,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.UUID{}, ErrSuccessExists
		}
		return uuid.UUID{}, fmt.Errorf("insert sampling audit: %w", err)
	}
	return id, nil
}

// LatestSuccessful returns the one success audit for an activity, if any.
func (r *Repo) LatestSuccessful(ctx context.Context, activityID uuid.UUID) (Audit, bool, error) {
	query := auditSelect + `
		WHERE activity_id = $1 AND outcome = 'success'
		ORDER BY created_at DESC
		LIMIT 1`

	audit, err := scanAudit(r.pool.QueryRow(ctx, query, activityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Audit{}, false, nil
		}
		return Audit{}, false, fmt.Errorf("get successful sampling audit: %w", err)
	}
	return audit, true, nil
}

// ListByActivity returns every audit recorded for an activity, newest first.
func (r *Repo) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]Audit, error) {
	query := auditSelect + `
		WHERE activity_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, activityID)
	if err != nil {
		return nil, fmt.Errorf("list sampling audits: %w", err)
	}
	defer rows.Close()

	var audits []Audit
	for rows.Next() {
		audit, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sampling audit: %w", err)
		}
		audits = append(audits, audit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sampling audits: %w", err)
	}
	return audits, nil
}

const auditSelect = `
	SELECT id, activity_id, outcome, farmer_count, policy_percentage, policy_algorithm,
		sampled_count, not_sampled_count, excluded_cooling_count,
		skipped_missing_count, tasks_created, error_message, created_at
	FROM sampling_audits`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAudit(row rowScanner) (Audit, error) {
	var a Audit
	err := row.Scan(
		&a.ID, &a.ActivityID, &a.Outcome, &a.FarmerCount, &a.PolicyPercentage,
		&a.PolicyAlgorithm, &a.SampledCount, &a.NotSampledCount,
		&a.ExcludedCoolingCount, &a.SkippedMissingCount, &a.TasksCreated,
		&a.ErrorMessage, &a.CreatedAt,
	)
	if err != nil {
		return Audit{}, err
	}
	return a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
