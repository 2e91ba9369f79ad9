package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/tasks/domain"
	"callops_backend/platform/apperr"
)

const taskNotFoundMessage = "call task not found"

const taskColumns = `
	t.id, t.activity_id, t.farmer_id, t.assigned_agent_id, t.status, t.retry_count,
	t.scheduled_date, t.created_at, t.updated_at,
	f.name, f.phone, f.preferred_language, f.territory`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new call task repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// CreateIfAbsent materializes one task per (activity, farmer), exactly once.
func (r *Repo) CreateIfAbsent(ctx context.Context, activityID, farmerID uuid.UUID, scheduledDate time.Time) (uuid.UUID, bool, error) {
	query := `
		INSERT INTO call_tasks (activity_id, farmer_id, scheduled_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (activity_id, farmer_id) DO NOTHING
		RETURNING id`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, activityID, farmerID, scheduledDate).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Task already exists; fetch its id for the caller.
			existing := `SELECT id FROM call_tasks WHERE activity_id = $1 AND farmer_id = $2`
			if err := r.pool.QueryRow(ctx, existing, activityID, farmerID).Scan(&id); err != nil {
				return uuid.UUID{}, false, fmt.Errorf("lookup existing call task: %w", err)
			}
			return id, false, nil
		}
		return uuid.UUID{}, false, fmt.Errorf("create call task: %w", err)
	}

	return id, true, nil
}

// GetByID retrieves a call task with farmer details.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (CallTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM call_tasks t
		JOIN farmers f ON f.id = t.farmer_id
		WHERE t.id = $1`

	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CallTask{}, apperr.NotFound(taskNotFoundMessage)
		}
		return CallTask{}, fmt.Errorf("get call task: %w", err)
	}
	return task, nil
}

// ListByAgent retrieves an agent's tasks, optionally filtered by status.
func (r *Repo) ListByAgent(ctx context.Context, agentID uuid.UUID, statuses []domain.Status) ([]CallTask, error) {
	statusFilter := make([]string, len(statuses))
	for i, s := range statuses {
		statusFilter[i] = string(s)
	}

	query := `
		SELECT ` + taskColumns + `
		FROM call_tasks t
		JOIN farmers f ON f.id = t.farmer_id
		WHERE t.assigned_agent_id = $1
			AND (cardinality($2::text[]) = 0 OR t.status = ANY($2))
		ORDER BY t.scheduled_date, t.created_at`

	rows, err := r.pool.Query(ctx, query, agentID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("list tasks by agent: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListUnassigned retrieves all tasks awaiting allocation.
func (r *Repo) ListUnassigned(ctx context.Context) ([]CallTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM call_tasks t
		JOIN farmers f ON f.id = t.farmer_id
		WHERE t.status = 'unassigned'
		ORDER BY t.created_at, t.id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list unassigned tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListByActivity retrieves all tasks materialized for an activity.
func (r *Repo) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]CallTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM call_tasks t
		JOIN farmers f ON f.id = t.farmer_id
		WHERE t.activity_id = $1
		ORDER BY t.created_at, t.id`

	rows, err := r.pool.Query(ctx, query, activityID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by activity: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// Assign sets the agent on a still-unassigned task and queues it.
func (r *Repo) Assign(ctx context.Context, taskID, agentID uuid.UUID) (bool, error) {
	query := `
		UPDATE call_tasks
		SET assigned_agent_id = $2, status = 'sampled_in_queue', updated_at = now()
		WHERE id = $1 AND status = 'unassigned'`

	result, err := r.pool.Exec(ctx, query, taskID, agentID)
	if err != nil {
		return false, fmt.Errorf("assign call task: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Transition performs a compare-and-set status move.
func (r *Repo) Transition(ctx context.Context, taskID uuid.UUID, from, to domain.Status, incrementRetry bool) (bool, error) {
	retryBump := 0
	if incrementRetry {
		retryBump = 1
	}

	query := `
		UPDATE call_tasks
		SET status = $3, retry_count = retry_count + $4, updated_at = now()
		WHERE id = $1 AND status = $2`

	result, err := r.pool.Exec(ctx, query, taskID, string(from), string(to), retryBump)
	if err != nil {
		return false, fmt.Errorf("transition call task: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// OpenCountByAgent returns the current open-task count per agent.
func (r *Repo) OpenCountByAgent(ctx context.Context) (map[uuid.UUID]int, error) {
	query := `
		SELECT assigned_agent_id, COUNT(*)
		FROM call_tasks
		WHERE assigned_agent_id IS NOT NULL
			AND status IN ('sampled_in_queue', 'in_progress')
		GROUP BY assigned_agent_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count open tasks by agent: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var agentID uuid.UUID
		var count int
		if err := rows.Scan(&agentID, &count); err != nil {
			return nil, fmt.Errorf("scan open task count: %w", err)
		}
		counts[agentID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open task counts: %w", err)
	}

	return counts, nil
}

// RequeueRetryable moves retry-eligible not_reachable tasks back into queues.
func (r *Repo) RequeueRetryable(ctx context.Context, retryCap int) (int, error) {
	query := `
		UPDATE call_tasks
		SET status = 'sampled_in_queue', retry_count = retry_count + 1, updated_at = now()
		WHERE status = 'not_reachable' AND retry_count < $1`

	result, err := r.pool.Exec(ctx, query, retryCap)
	if err != nil {
		return 0, fmt.Errorf("requeue retryable tasks: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// CreateOutcome records the result of one call.
func (r *Repo) CreateOutcome(ctx context.Context, params OutcomeParams) error {
	query := `
		INSERT INTO call_outcomes
			(task_id, connected, identity_wrong, not_a_farmer, attended_meeting, purchased, willingness, activity_quality, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		params.TaskID, params.Connected, params.IdentityWrong, params.NotAFarmer,
		params.AttendedMeeting, params.Purchased, params.Willingness, params.ActivityQuality, params.Remarks,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("an outcome is already recorded for this task")
		}
		return fmt.Errorf("create call outcome: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (CallTask, error) {
	var t CallTask
	var status string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&t.ID, &t.ActivityID, &t.FarmerID, &t.AssignedAgentID, &status, &t.RetryCount,
		&t.ScheduledDate, &createdAt, &updatedAt,
		&t.FarmerName, &t.FarmerPhone, &t.FarmerLanguage, &t.FarmerTerritory,
	)
	if err != nil {
		return CallTask{}, err
	}

	t.Status = domain.Status(status)
	t.CreatedAt = createdAt.Format(time.RFC3339)
	t.UpdatedAt = updatedAt.Format(time.RFC3339)
	return t, nil
}

func scanTasks(rows pgx.Rows) ([]CallTask, error) {
	var results []CallTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call task: %w", err)
		}
		results = append(results, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call tasks: %w", err)
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
