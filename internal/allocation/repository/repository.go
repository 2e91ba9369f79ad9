// Package repository persists allocation runs and their per-task decisions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/allocation/allocator"
	"callops_backend/platform/apperr"
)

// Run is one recorded allocation pass.
type Run struct {
	ID                 uuid.UUID
	StartedAt          time.Time
	FinishedAt         *time.Time
	AssignedCount      int
	UnallocatableCount int
}

// Decision is one persisted allocation decision.
type Decision struct {
	ID      uuid.UUID
	RunID   uuid.UUID
	TaskID  uuid.UUID
	AgentID *uuid.UUID
	Outcome string
	Reason  string
}

// Repository is the persistence contract for allocation runs.
type Repository interface {
	CreateRun(ctx context.Context, startedAt time.Time) (uuid.UUID, error)
	FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, assigned, unallocatable int) error
	RecordDecisions(ctx context.Context, runID uuid.UUID, decisions []allocator.Decision) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (Run, []Decision, error)
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new allocation repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// CreateRun opens a new allocation run record.
func (r *Repo) CreateRun(ctx context.Context, startedAt time.Time) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO allocation_runs (started_at) VALUES ($1) RETURNING id`, startedAt,
	).Scan(&id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("create allocation run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run with its final counts.
func (r *Repo) FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, assigned, unallocatable int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE allocation_runs
		SET finished_at = $2, assigned_count = $3, unallocatable_count = $4
		WHERE id = $1`,
		runID, finishedAt, assigned, unallocatable)
	if err != nil {
		return fmt.Errorf("finish allocation run: %w", err)
	}
	return nil
}

// RecordDecisions bulk-inserts the run's decisions.
func (r *Repo) RecordDecisions(ctx context.Context, runID uuid.UUID, decisions []allocator.Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	rows := make([][]any, len(decisions))
	for i, d := range decisions {
		rows[i] = []any{runID, d.TaskID, d.AgentID, string(d.Outcome), d.Reason}
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"allocation_decisions"},
		[]string{"run_id", "task_id", "agent_id", "outcome", "reason"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("record allocation decisions: %w", err)
	}
	return nil
}

// ListRuns retrieves the most recent runs.
func (r *Repo) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, started_at, finished_at, assigned_count, unallocatable_count
		FROM allocation_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list allocation runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.AssignedCount, &run.UnallocatableCount); err != nil {
			return nil, fmt.Errorf("scan allocation run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocation runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves one run with its decisions.
func (r *Repo) GetRun(ctx context.Context, runID uuid.UUID) (Run, []Decision, error) {
	var run Run
	err := r.pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, assigned_count, unallocatable_count
		FROM allocation_runs
		WHERE id = $1`, runID,
	).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.AssignedCount, &run.UnallocatableCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, nil, apperr.NotFound("allocation run not found")
		}
		return Run{}, nil, fmt.Errorf("get allocation run: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, run_id, task_id, agent_id, outcome, reason
		FROM allocation_decisions
		WHERE run_id = $1`, runID)
	if err != nil {
		return Run{}, nil, fmt.Errorf("list allocation decisions: %w", err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.RunID, &d.TaskID, &d.AgentID, &d.Outcome, &d.Reason); err != nil {
			return Run{}, nil, fmt.Errorf("scan allocation decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("iterate allocation decisions: %w", err)
	}

	return run, decisions, nil
}
