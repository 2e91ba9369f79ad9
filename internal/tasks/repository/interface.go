package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"callops_backend/internal/tasks/domain"
)

// CallTask is one unit of outbound-call work tied to one farmer and one activity.
type CallTask struct {
	ID              uuid.UUID
	ActivityID      uuid.UUID
	FarmerID        uuid.UUID
	AssignedAgentID *uuid.UUID
	Status          domain.Status
	RetryCount      int
	ScheduledDate   time.Time
	CreatedAt       string
	UpdatedAt       string

	// Farmer details joined in for queue listings and allocation.
	FarmerName      string
	FarmerPhone     string
	FarmerLanguage  string
	FarmerTerritory string
}

// OutcomeParams captures the result of one call as logged by an agent.
type OutcomeParams struct {
	TaskID          uuid.UUID
	Connected       bool
	IdentityWrong   bool
	NotAFarmer      bool
	AttendedMeeting bool
	Purchased       bool
	Willingness     string // yes | no | maybe
	ActivityQuality *int   // 1..5
	Remarks         string
}

// Repository is the persistence contract for call tasks.
type Repository interface {
	// CreateIfAbsent materializes a task for (activityID, farmerID) unless one
	// already exists. Returns whether a new row was inserted.
	CreateIfAbsent(ctx context.Context, activityID, farmerID uuid.UUID, scheduledDate time.Time) (uuid.UUID, bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (CallTask, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, statuses []domain.Status) ([]CallTask, error)
	ListUnassigned(ctx context.Context) ([]CallTask, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]CallTask, error)

	// Assign sets the agent and moves the task to sampled_in_queue. It only
	// touches tasks still unassigned, so concurrent allocation passes cannot
	// double-assign. Returns false if the task was no longer assignable.
	Assign(ctx context.Context, taskID, agentID uuid.UUID) (bool, error)

	// Transition moves a task between statuses, optionally bumping the retry
	// count. The from-status guard makes the update a compare-and-set.
	Transition(ctx context.Context, taskID uuid.UUID, from, to domain.Status, incrementRetry bool) (bool, error)

	// OpenCountByAgent returns each agent's count of open tasks
	// (sampled_in_queue or in_progress).
	OpenCountByAgent(ctx context.Context) (map[uuid.UUID]int, error)

	// RequeueRetryable moves not_reachable tasks with retries left back to
	// sampled_in_queue, incrementing their retry counts. Returns how many
	// tasks were requeued.
	RequeueRetryable(ctx context.Context, retryCap int) (int, error)

	CreateOutcome(ctx context.Context, params OutcomeParams) error
}
