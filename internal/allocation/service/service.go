package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	agentrepo "callops_backend/internal/agents/repository"
	"callops_backend/internal/allocation/allocator"
	"callops_backend/internal/allocation/repository"
	"callops_backend/internal/events"
	taskrepo "callops_backend/internal/tasks/repository"
	"callops_backend/platform/logger"
)

// TaskSource is the slice of the task store the allocator needs.
type TaskSource interface {
	ListUnassigned(ctx context.Context) ([]taskrepo.CallTask, error)
	OpenCountByAgent(ctx context.Context) (map[uuid.UUID]int, error)
	Assign(ctx context.Context, taskID, agentID uuid.UUID) (bool, error)
}

// AgentSource provides the allocation candidate pool.
type AgentSource interface {
	ListActive(ctx context.Context) ([]agentrepo.Agent, error)
}

// RunResult summarizes one allocation pass.
type RunResult struct {
	RunID         uuid.UUID `json:"runId"`
	Considered    int       `json:"considered"`
	Assigned      int       `json:"assigned"`
	Unallocatable int       `json:"unallocatable"`
}

// Service orchestrates allocation passes.
type Service struct {
	runs   repository.Repository
	tasks  TaskSource
	agents AgentSource
	bus    events.Bus
	log    *logger.Logger
}

// New creates a new allocation service.
func New(runs repository.Repository, tasks TaskSource, agents AgentSource, bus events.Bus, log *logger.Logger) *Service {
	return &Service{runs: runs, tasks: tasks, agents: agents, bus: bus, log: log}
}

// Run allocates every currently unassigned task. A pass with nothing to do
// records no run.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	unassigned, err := s.tasks.ListUnassigned(ctx)
	if err != nil {
		return RunResult{}, err
	}
	if len(unassigned) == 0 {
		return RunResult{}, nil
	}
	return s.Allocate(ctx, unassigned)
}

// Allocate runs one recorded allocation pass over the given tasks. Assignments
// are applied with a compare-and-set per task, so a task grabbed by a
// concurrent pass is silently skipped rather than double-assigned.
func (s *Service) Allocate(ctx context.Context, tasks []taskrepo.CallTask) (RunResult, error) {
	agents, err := s.agents.ListActive(ctx)
	if err != nil {
		return RunResult{}, err
	}
	openCounts, err := s.tasks.OpenCountByAgent(ctx)
	if err != nil {
		return RunResult{}, err
	}

	startedAt := time.Now()
	runID, err := s.runs.CreateRun(ctx, startedAt)
	if err != nil {
		return RunResult{}, err
	}

	candidates := make([]allocator.Candidate, len(agents))
	for i, a := range agents {
		candidates[i] = allocator.Candidate{
			ID:          a.ID,
			Languages:   a.Languages,
			Territories: a.Territories,
			OpenTasks:   openCounts[a.ID],
		}
	}

	byID := make(map[uuid.UUID]taskrepo.CallTask, len(tasks))
	input := make([]allocator.Task, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = t
		input[i] = allocator.Task{
			ID:              t.ID,
			FarmerLanguage:  t.FarmerLanguage,
			FarmerTerritory: t.FarmerTerritory,
		}
	}

	decisions := allocator.Assign(input, candidates)

	result := RunResult{RunID: runID, Considered: len(tasks)}
	recorded := make([]allocator.Decision, 0, len(decisions))
	gapTerritories := make(map[string]bool)
	gapLanguages := make(map[string]bool)

	for _, d := range decisions {
		if d.Outcome == allocator.OutcomeUnallocatable {
			result.Unallocatable++
			recorded = append(recorded, d)
			if t, ok := byID[d.TaskID]; ok {
				gapTerritories[t.FarmerTerritory] = true
				gapLanguages[t.FarmerLanguage] = true
			}
			continue
		}

		applied, err := s.tasks.Assign(ctx, d.TaskID, *d.AgentID)
		if err != nil {
			return result, err
		}
		if !applied {
			s.log.Debug("task no longer assignable, skipping", "taskId", d.TaskID, "runId", runID)
			continue
		}
		result.Assigned++
		recorded = append(recorded, d)
	}

	if err := s.runs.RecordDecisions(ctx, runID, recorded); err != nil {
		return result, err
	}
	if err := s.runs.FinishRun(ctx, runID, time.Now(), result.Assigned, result.Unallocatable); err != nil {
		return result, err
	}

	if result.Unallocatable > 0 {
		s.log.AllocationGap(runID, result.Unallocatable)
		s.bus.Publish(ctx, events.TasksUnallocatable{
			BaseEvent:     events.NewBaseEvent(),
			RunID:         runID,
			Unallocatable: result.Unallocatable,
			Territories:   keys(gapTerritories),
			Languages:     keys(gapLanguages),
		})
	}

	s.log.Info("allocation pass finished",
		"runId", runID,
		"considered", result.Considered,
		"assigned", result.Assigned,
		"unallocatable", result.Unallocatable,
	)
	return result, nil
}

// ListRuns retrieves recent allocation runs.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]repository.Run, error) {
	return s.runs.ListRuns(ctx, limit)
}

// GetRun retrieves one run with its decisions.
func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (repository.Run, []repository.Decision, error) {
	return s.runs.GetRun(ctx, runID)
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
