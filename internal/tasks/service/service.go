package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"callops_backend/internal/events"
	"callops_backend/internal/tasks/domain"
	"callops_backend/internal/tasks/repository"
	"callops_backend/internal/tasks/transport"
	"callops_backend/platform/apperr"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
	"callops_backend/platform/sanitize"
)

// CoolingExtender is the slice of the cooling store the materializer needs.
// Extending happens only for farmers whose task was actually created.
type CoolingExtender interface {
	Extend(ctx context.Context, farmerID uuid.UUID, asOf time.Time, days int) error
}

// Service provides business logic for call tasks.
type Service struct {
	repo    repository.Repository
	cooling CoolingExtender
	cfg     config.EngineConfig
	bus     events.Bus
	log     *logger.Logger
}

// New creates a new tasks service.
func New(repo repository.Repository, cooling CoolingExtender, cfg config.EngineConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cooling: cooling, cfg: cfg, bus: bus, log: log}
}

// Materialize creates one call task per sampled farmer, idempotently, and
// extends each newly materialized farmer's cooling window. The returned count
// covers tasks actually created; re-runs over the same farmer list create
// nothing and extend nothing.
func (s *Service) Materialize(ctx context.Context, activityID uuid.UUID, farmerIDs []uuid.UUID, coolingDays int, now time.Time) (int, error) {
	created := 0
	for _, farmerID := range farmerIDs {
		_, inserted, err := s.repo.CreateIfAbsent(ctx, activityID, farmerID, now)
		if err != nil {
			return created, err
		}
		if !inserted {
			continue
		}
		created++

		if err := s.cooling.Extend(ctx, farmerID, now, coolingDays); err != nil {
			return created, err
		}
	}

	s.log.Debug("tasks materialized", "activityId", activityID, "requested", len(farmerIDs), "created", created)
	return created, nil
}

// Get retrieves one task.
func (s *Service) Get(ctx context.Context, taskID uuid.UUID) (transport.TaskResponse, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	return toResponse(task), nil
}

// Queue lists an agent's open tasks.
func (s *Service) Queue(ctx context.Context, agentID uuid.UUID) (transport.TaskListResponse, error) {
	items, err := s.repo.ListByAgent(ctx, agentID, []domain.Status{domain.StatusSampledInQueue, domain.StatusInProgress})
	if err != nil {
		return transport.TaskListResponse{}, err
	}
	return toListResponse(items), nil
}

// Start moves a queued task into in_progress for the calling agent.
func (s *Service) Start(ctx context.Context, taskID, agentID uuid.UUID) (transport.TaskResponse, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	if task.AssignedAgentID == nil || *task.AssignedAgentID != agentID {
		return transport.TaskResponse{}, apperr.Forbidden("task is not assigned to you")
	}
	if !domain.CanTransition(task.Status, domain.StatusInProgress, task.RetryCount, s.cfg.GetTaskRetryCap()) {
		return transport.TaskResponse{}, apperr.Conflict("task cannot be started from status " + string(task.Status))
	}

	moved, err := s.repo.Transition(ctx, taskID, task.Status, domain.StatusInProgress, false)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	if !moved {
		return transport.TaskResponse{}, apperr.Conflict("task changed state concurrently")
	}

	task, err = s.repo.GetByID(ctx, taskID)
	if err != nil {
		return transport.TaskResponse{}, err
	}
	return toResponse(task), nil
}

// RecordOutcome logs a call result and moves the task to its resulting state.
// Detail fields are persisted only for completed calls; not_reachable and
// invalid_number are status-only outcomes.
func (s *Service) RecordOutcome(ctx context.Context, taskID, agentID uuid.UUID, req transport.RecordOutcomeRequest) (transport.OutcomeResponse, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return transport.OutcomeResponse{}, err
	}
	if task.AssignedAgentID == nil || *task.AssignedAgentID != agentID {
		return transport.OutcomeResponse{}, apperr.Forbidden("task is not assigned to you")
	}

	target := domain.Status(req.Status)
	if !domain.CanTransition(task.Status, target, task.RetryCount, s.cfg.GetTaskRetryCap()) {
		return transport.OutcomeResponse{}, apperr.Conflict("task cannot move from " + string(task.Status) + " to " + req.Status)
	}

	if target == domain.StatusCompleted {
		willingness := req.Willingness
		if willingness == "" {
			willingness = "no"
		}
		err := s.repo.CreateOutcome(ctx, repository.OutcomeParams{
			TaskID:          taskID,
			Connected:       req.Connected,
			IdentityWrong:   req.IdentityWrong,
			NotAFarmer:      req.NotAFarmer,
			AttendedMeeting: req.AttendedMeeting,
			Purchased:       req.Purchased,
			Willingness:     willingness,
			ActivityQuality: req.ActivityQuality,
			Remarks:         sanitize.Text(req.Remarks),
		})
		if err != nil {
			return transport.OutcomeResponse{}, err
		}
	}

	moved, err := s.repo.Transition(ctx, taskID, task.Status, target, false)
	if err != nil {
		return transport.OutcomeResponse{}, err
	}
	if !moved {
		return transport.OutcomeResponse{}, apperr.Conflict("task changed state concurrently")
	}

	s.bus.Publish(ctx, events.CallOutcomeRecorded{
		BaseEvent:  events.NewBaseEvent(),
		TaskID:     taskID,
		ActivityID: task.ActivityID,
		FarmerID:   task.FarmerID,
		AgentID:    agentID,
		Status:     req.Status,
		RecordedAt: time.Now(),
	})

	task, err = s.repo.GetByID(ctx, taskID)
	if err != nil {
		return transport.OutcomeResponse{}, err
	}
	return transport.OutcomeResponse{TaskID: task.ID, Status: string(task.Status), RetryCount: task.RetryCount}, nil
}

// Retry requeues a single not_reachable task, respecting the retry cap.
func (s *Service) Retry(ctx context.Context, taskID uuid.UUID) (transport.OutcomeResponse, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return transport.OutcomeResponse{}, err
	}
	if !domain.CanTransition(task.Status, domain.StatusSampledInQueue, task.RetryCount, s.cfg.GetTaskRetryCap()) {
		return transport.OutcomeResponse{}, apperr.Conflict("task is not retryable")
	}

	moved, err := s.repo.Transition(ctx, taskID, task.Status, domain.StatusSampledInQueue, true)
	if err != nil {
		return transport.OutcomeResponse{}, err
	}
	if !moved {
		return transport.OutcomeResponse{}, apperr.Conflict("task changed state concurrently")
	}

	task, err = s.repo.GetByID(ctx, taskID)
	if err != nil {
		return transport.OutcomeResponse{}, err
	}
	return transport.OutcomeResponse{TaskID: task.ID, Status: string(task.Status), RetryCount: task.RetryCount}, nil
}

// RequeueRetryable bulk-requeues retry-eligible tasks; used by the scheduler.
func (s *Service) RequeueRetryable(ctx context.Context) (int, error) {
	requeued, err := s.repo.RequeueRetryable(ctx, s.cfg.GetTaskRetryCap())
	if err != nil {
		return 0, err
	}
	if requeued > 0 {
		s.log.Info("retryable tasks requeued", "count", requeued)
	}
	return requeued, nil
}

// ListByActivity lists all tasks for one activity (admin/audit view).
func (s *Service) ListByActivity(ctx context.Context, activityID uuid.UUID) (transport.TaskListResponse, error) {
	items, err := s.repo.ListByActivity(ctx, activityID)
	if err != nil {
		return transport.TaskListResponse{}, err
	}
	return toListResponse(items), nil
}

func toResponse(t repository.CallTask) transport.TaskResponse {
	return transport.TaskResponse{
		ID:              t.ID,
		ActivityID:      t.ActivityID,
		FarmerID:        t.FarmerID,
		FarmerName:      t.FarmerName,
		FarmerPhone:     t.FarmerPhone,
		FarmerLanguage:  t.FarmerLanguage,
		FarmerTerritory: t.FarmerTerritory,
		AssignedAgentID: t.AssignedAgentID,
		Status:          string(t.Status),
		RetryCount:      t.RetryCount,
		ScheduledDate:   t.ScheduledDate.Format("2006-01-02"),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toListResponse(items []repository.CallTask) transport.TaskListResponse {
	responses := make([]transport.TaskResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	return transport.TaskListResponse{Items: responses, Total: len(responses)}
}
