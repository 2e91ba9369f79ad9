package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"callops_backend/internal/events"
	"callops_backend/internal/tasks/domain"
	"callops_backend/internal/tasks/repository"
	"callops_backend/internal/tasks/transport"
	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository

	tasks    map[uuid.UUID]repository.CallTask
	existing map[string]uuid.UUID // "activity|farmer" -> task id
	created  []uuid.UUID
	outcomes []repository.OutcomeParams
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tasks:    make(map[uuid.UUID]repository.CallTask),
		existing: make(map[string]uuid.UUID),
	}
}

func pairKey(activityID, farmerID uuid.UUID) string {
	return activityID.String() + "|" + farmerID.String()
}

func (f *fakeRepo) CreateIfAbsent(_ context.Context, activityID, farmerID uuid.UUID, scheduledDate time.Time) (uuid.UUID, bool, error) {
	key := pairKey(activityID, farmerID)
	if id, ok := f.existing[key]; ok {
		return id, false, nil
	}
	id := uuid.New()
	f.existing[key] = id
	f.created = append(f.created, id)
	f.tasks[id] = repository.CallTask{
		ID:            id,
		ActivityID:    activityID,
		FarmerID:      farmerID,
		Status:        domain.StatusUnassigned,
		ScheduledDate: scheduledDate,
	}
	return id, true, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.CallTask, error) {
	task, ok := f.tasks[id]
	if !ok {
		return repository.CallTask{}, apperr.NotFound("call task not found")
	}
	return task, nil
}

func (f *fakeRepo) Transition(_ context.Context, taskID uuid.UUID, from, to domain.Status, incrementRetry bool) (bool, error) {
	task, ok := f.tasks[taskID]
	if !ok || task.Status != from {
		return false, nil
	}
	task.Status = to
	if incrementRetry {
		task.RetryCount++
	}
	f.tasks[taskID] = task
	return true, nil
}

func (f *fakeRepo) CreateOutcome(_ context.Context, params repository.OutcomeParams) error {
	f.outcomes = append(f.outcomes, params)
	return nil
}

type fakeCooling struct {
	extended []uuid.UUID
}

func (f *fakeCooling) Extend(_ context.Context, farmerID uuid.UUID, _ time.Time, _ int) error {
	f.extended = append(f.extended, farmerID)
	return nil
}

type fakeEngineConfig struct {
	retryCap int
}

func (f fakeEngineConfig) GetDefaultSamplingPercent() int { return 100 }
func (f fakeEngineConfig) GetDefaultCoolingDays() int     { return 30 }
func (f fakeEngineConfig) GetTaskRetryCap() int           { return f.retryCap }
func (f fakeEngineConfig) GetReprocessParallelism() int   { return 1 }

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

func newTestService(repo *fakeRepo, cool *fakeCooling, bus *fakeBus) *Service {
	return New(repo, cool, fakeEngineConfig{retryCap: 3}, bus, logger.New("test"))
}

func TestMaterialize_CreatesTasksAndExtendsCooling(t *testing.T) {
	repo := newFakeRepo()
	cool := &fakeCooling{}
	svc := newTestService(repo, cool, &fakeBus{})

	activityID := uuid.New()
	farmers := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	created, err := svc.Materialize(context.Background(), activityID, farmers, 30, time.Now())
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}
	if len(cool.extended) != 3 {
		t.Fatalf("cooling extended for %d farmers, want 3", len(cool.extended))
	}
}

func TestMaterialize_SecondRunCreatesNothing(t *testing.T) {
	repo := newFakeRepo()
	cool := &fakeCooling{}
	svc := newTestService(repo, cool, &fakeBus{})

	activityID := uuid.New()
	farmers := []uuid.UUID{uuid.New(), uuid.New()}

	if _, err := svc.Materialize(context.Background(), activityID, farmers, 30, time.Now()); err != nil {
		t.Fatalf("first Materialize() error = %v", err)
	}

	created, err := svc.Materialize(context.Background(), activityID, farmers, 30, time.Now())
	if err != nil {
		t.Fatalf("second Materialize() error = %v", err)
	}
	if created != 0 {
		t.Fatalf("second run created = %d, want 0", created)
	}
	if len(cool.extended) != 2 {
		t.Fatalf("cooling extended %d times, want 2 (no re-extension on replay)", len(cool.extended))
	}
}

func TestStart_RejectsForeignAgent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeCooling{}, &fakeBus{})

	owner := uuid.New()
	taskID := uuid.New()
	repo.tasks[taskID] = repository.CallTask{
		ID:              taskID,
		AssignedAgentID: &owner,
		Status:          domain.StatusSampledInQueue,
	}

	_, err := svc.Start(context.Background(), taskID, uuid.New())
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestRecordOutcome_CompletedStoresDetailAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	svc := newTestService(repo, &fakeCooling{}, bus)

	agentID := uuid.New()
	taskID := uuid.New()
	repo.tasks[taskID] = repository.CallTask{
		ID:              taskID,
		ActivityID:      uuid.New(),
		FarmerID:        uuid.New(),
		AssignedAgentID: &agentID,
		Status:          domain.StatusInProgress,
	}

	quality := 4
	resp, err := svc.RecordOutcome(context.Background(), taskID, agentID, transport.RecordOutcomeRequest{
		Status:          string(domain.StatusCompleted),
		Connected:       true,
		AttendedMeeting: true,
		Willingness:     "yes",
		ActivityQuality: &quality,
	})
	if err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}
	if resp.Status != string(domain.StatusCompleted) {
		t.Fatalf("status = %s, want completed", resp.Status)
	}
	if len(repo.outcomes) != 1 {
		t.Fatalf("outcomes stored = %d, want 1", len(repo.outcomes))
	}
	if !repo.outcomes[0].Connected || repo.outcomes[0].Willingness != "yes" {
		t.Fatalf("outcome detail not persisted: %+v", repo.outcomes[0])
	}
	if len(bus.published) != 1 {
		t.Fatalf("events published = %d, want 1", len(bus.published))
	}
	if bus.published[0].EventName() != "tasks.outcome.recorded" {
		t.Fatalf("event = %s, want tasks.outcome.recorded", bus.published[0].EventName())
	}
}

func TestRecordOutcome_NotReachableSkipsDetail(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeCooling{}, &fakeBus{})

	agentID := uuid.New()
	taskID := uuid.New()
	repo.tasks[taskID] = repository.CallTask{
		ID:              taskID,
		AssignedAgentID: &agentID,
		Status:          domain.StatusInProgress,
	}

	resp, err := svc.RecordOutcome(context.Background(), taskID, agentID, transport.RecordOutcomeRequest{
		Status: string(domain.StatusNotReachable),
	})
	if err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}
	if resp.Status != string(domain.StatusNotReachable) {
		t.Fatalf("status = %s, want not_reachable", resp.Status)
	}
	if len(repo.outcomes) != 0 {
		t.Fatalf("outcomes stored = %d, want 0 for not_reachable", len(repo.outcomes))
	}
}

func TestRetry_AtCapRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeCooling{}, &fakeBus{})

	taskID := uuid.New()
	repo.tasks[taskID] = repository.CallTask{
		ID:         taskID,
		Status:     domain.StatusNotReachable,
		RetryCount: 3,
	}

	_, err := svc.Retry(context.Background(), taskID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict error at retry cap, got %v", err)
	}
}

func TestRetry_UnderCapRequeues(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeCooling{}, &fakeBus{})

	taskID := uuid.New()
	repo.tasks[taskID] = repository.CallTask{
		ID:         taskID,
		Status:     domain.StatusNotReachable,
		RetryCount: 1,
	}

	resp, err := svc.Retry(context.Background(), taskID)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if resp.Status != string(domain.StatusSampledInQueue) {
		t.Fatalf("status = %s, want sampled_in_queue", resp.Status)
	}
	if resp.RetryCount != 2 {
		t.Fatalf("retryCount = %d, want 2", resp.RetryCount)
	}
}
