package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	agentrepo "callops_backend/internal/agents/repository"
	"callops_backend/internal/allocation/allocator"
	"callops_backend/internal/allocation/repository"
	"callops_backend/internal/events"
	taskrepo "callops_backend/internal/tasks/repository"
	"callops_backend/platform/logger"
)

type fakeRuns struct {
	runID     uuid.UUID
	decisions []allocator.Decision
	assigned  int
	unalloc   int
	finished  bool
}

func (f *fakeRuns) CreateRun(_ context.Context, _ time.Time) (uuid.UUID, error) {
	f.runID = uuid.New()
	return f.runID, nil
}

func (f *fakeRuns) FinishRun(_ context.Context, _ uuid.UUID, _ time.Time, assigned, unallocatable int) error {
	f.finished = true
	f.assigned = assigned
	f.unalloc = unallocatable
	return nil
}

func (f *fakeRuns) RecordDecisions(_ context.Context, _ uuid.UUID, decisions []allocator.Decision) error {
	f.decisions = decisions
	return nil
}

func (f *fakeRuns) ListRuns(_ context.Context, _ int) ([]repository.Run, error) {
	return nil, nil
}

func (f *fakeRuns) GetRun(_ context.Context, _ uuid.UUID) (repository.Run, []repository.Decision, error) {
	return repository.Run{}, nil, nil
}

type fakeTasks struct {
	unassigned  []taskrepo.CallTask
	openCounts  map[uuid.UUID]int
	assignments map[uuid.UUID]uuid.UUID
	rejectAll   bool
}

func (f *fakeTasks) ListUnassigned(_ context.Context) ([]taskrepo.CallTask, error) {
	return f.unassigned, nil
}

func (f *fakeTasks) OpenCountByAgent(_ context.Context) (map[uuid.UUID]int, error) {
	if f.openCounts == nil {
		return map[uuid.UUID]int{}, nil
	}
	return f.openCounts, nil
}

func (f *fakeTasks) Assign(_ context.Context, taskID, agentID uuid.UUID) (bool, error) {
	if f.rejectAll {
		return false, nil
	}
	if f.assignments == nil {
		f.assignments = make(map[uuid.UUID]uuid.UUID)
	}
	f.assignments[taskID] = agentID
	return true, nil
}

type fakeAgents struct {
	agents []agentrepo.Agent
}

func (f *fakeAgents) ListActive(_ context.Context) ([]agentrepo.Agent, error) {
	return f.agents, nil
}

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func unassignedTask(lang, terr string) taskrepo.CallTask {
	return taskrepo.CallTask{
		ID:              uuid.New(),
		FarmerLanguage:  lang,
		FarmerTerritory: terr,
	}
}

func TestRun_NothingToDoRecordsNoRun(t *testing.T) {
	runs := &fakeRuns{}
	svc := New(runs, &fakeTasks{}, &fakeAgents{}, &fakeBus{}, logger.New("test"))

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.RunID != (uuid.UUID{}) {
		t.Fatalf("expected no run to be created, got %s", result.RunID)
	}
	if runs.finished {
		t.Fatal("expected no run to be finished")
	}
}

func TestRun_AssignsAndRecords(t *testing.T) {
	agentID := uuid.New()
	tasks := &fakeTasks{
		unassigned: []taskrepo.CallTask{
			unassignedTask("hindi", "pune"),
			unassignedTask("hindi", "pune"),
		},
	}
	agents := &fakeAgents{agents: []agentrepo.Agent{
		{ID: agentID, IsActive: true, Languages: []string{"hindi"}},
	}}
	runs := &fakeRuns{}
	bus := &fakeBus{}
	svc := New(runs, tasks, agents, bus, logger.New("test"))

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Assigned != 2 || result.Unallocatable != 0 {
		t.Fatalf("result = %+v, want 2 assigned, 0 unallocatable", result)
	}
	if len(tasks.assignments) != 2 {
		t.Fatalf("assignments applied = %d, want 2", len(tasks.assignments))
	}
	if !runs.finished || runs.assigned != 2 {
		t.Fatalf("run not finished with correct counts: %+v", runs)
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected no gap event when everything assigned, got %d", len(bus.published))
	}
}

func TestRun_GapPublishesEvent(t *testing.T) {
	tasks := &fakeTasks{
		unassigned: []taskrepo.CallTask{unassignedTask("tamil", "salem")},
	}
	agents := &fakeAgents{agents: []agentrepo.Agent{
		{ID: uuid.New(), IsActive: true, Languages: []string{"hindi"}},
	}}
	runs := &fakeRuns{}
	bus := &fakeBus{}
	svc := New(runs, tasks, agents, bus, logger.New("test"))

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Unallocatable != 1 {
		t.Fatalf("unallocatable = %d, want 1", result.Unallocatable)
	}
	if len(bus.published) != 1 {
		t.Fatalf("events published = %d, want 1", len(bus.published))
	}
	gap, ok := bus.published[0].(events.TasksUnallocatable)
	if !ok {
		t.Fatalf("published event has wrong type %T", bus.published[0])
	}
	if gap.Unallocatable != 1 || len(gap.Languages) != 1 || gap.Languages[0] != "tamil" {
		t.Fatalf("gap event = %+v, want 1 unallocatable in tamil", gap)
	}
}

func TestRun_ConcurrentlyGrabbedTaskSkipped(t *testing.T) {
	tasks := &fakeTasks{
		unassigned: []taskrepo.CallTask{unassignedTask("hindi", "pune")},
		rejectAll:  true,
	}
	agents := &fakeAgents{agents: []agentrepo.Agent{
		{ID: uuid.New(), IsActive: true, Languages: []string{"hindi"}},
	}}
	runs := &fakeRuns{}
	svc := New(runs, tasks, agents, &fakeBus{}, logger.New("test"))

	result, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Assigned != 0 {
		t.Fatalf("assigned = %d, want 0 when every CAS loses", result.Assigned)
	}
	if len(runs.decisions) != 0 {
		t.Fatalf("recorded decisions = %d, want 0", len(runs.decisions))
	}
}
