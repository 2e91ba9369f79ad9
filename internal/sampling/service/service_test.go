package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	activityrepo "callops_backend/internal/activity/repository"
	allocservice "callops_backend/internal/allocation/service"
	"callops_backend/internal/events"
	policyservice "callops_backend/internal/policy/service"
	"callops_backend/internal/sampling/repository"
	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
)

type fakeAudits struct {
	audits []repository.Audit

	// hideSuccessOnce makes the first LatestSuccessful lookup miss, simulating
	// a concurrent run that wins the success insert after this run's fast path.
	hideSuccessOnce bool
}

func (f *fakeAudits) Insert(_ context.Context, audit repository.Audit) (uuid.UUID, error) {
	if audit.Outcome == repository.OutcomeSuccess {
		for _, a := range f.audits {
			if a.ActivityID == audit.ActivityID && a.Outcome == repository.OutcomeSuccess {
				return uuid.UUID{}, repository.ErrSuccessExists
			}
		}
	}
	audit.ID = uuid.New()
	f.audits = append(f.audits, audit)
	return audit.ID, nil
}

func (f *fakeAudits) LatestSuccessful(_ context.Context, activityID uuid.UUID) (repository.Audit, bool, error) {
	if f.hideSuccessOnce {
		f.hideSuccessOnce = false
		return repository.Audit{}, false, nil
	}
	for i := len(f.audits) - 1; i >= 0; i-- {
		a := f.audits[i]
		if a.ActivityID == activityID && a.Outcome == repository.OutcomeSuccess {
			return a, true, nil
		}
	}
	return repository.Audit{}, false, nil
}

func (f *fakeAudits) ListByActivity(_ context.Context, activityID uuid.UUID) ([]repository.Audit, error) {
	var out []repository.Audit
	for _, a := range f.audits {
		if a.ActivityID == activityID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeActivities struct {
	activity activityrepo.Activity
	farmers  []uuid.UUID
	missing  int
	statuses []string
}

func (f *fakeActivities) GetActivity(_ context.Context, _ uuid.UUID) (activityrepo.Activity, error) {
	return f.activity, nil
}

func (f *fakeActivities) ListActivities(_ context.Context, _ activityrepo.ListFilter) ([]activityrepo.Activity, error) {
	return []activityrepo.Activity{f.activity}, nil
}

func (f *fakeActivities) UpdateStatus(_ context.Context, _ uuid.UUID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeActivities) FarmerIDs(_ context.Context, _ uuid.UUID) ([]uuid.UUID, int, error) {
	return f.farmers, f.missing, nil
}

type fakePolicies struct {
	policy policyservice.Policy
}

func (f *fakePolicies) Resolve(_ context.Context, _ policyservice.Scope) (policyservice.Policy, error) {
	return f.policy, nil
}

type fakeCooling struct {
	active map[uuid.UUID]bool
}

func (f *fakeCooling) ActiveFarmerIDs(_ context.Context, farmerIDs []uuid.UUID, _ time.Time) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	for _, id := range farmerIDs {
		if f.active[id] {
			out[id] = true
		}
	}
	return out, nil
}

type fakeMaterializer struct {
	created map[string]bool // "activity|farmer"
	calls   int
	fail    error
}

func (f *fakeMaterializer) Materialize(_ context.Context, activityID uuid.UUID, farmerIDs []uuid.UUID, _ int, _ time.Time) (int, error) {
	f.calls++
	if f.fail != nil {
		return 0, f.fail
	}
	if f.created == nil {
		f.created = make(map[string]bool)
	}
	created := 0
	for _, farmerID := range farmerIDs {
		key := activityID.String() + "|" + farmerID.String()
		if f.created[key] {
			continue
		}
		f.created[key] = true
		created++
	}
	return created, nil
}

type fakeAllocator struct {
	calls int
	fail  error
}

func (f *fakeAllocator) Run(_ context.Context) (allocservice.RunResult, error) {
	f.calls++
	if f.fail != nil {
		return allocservice.RunResult{}, f.fail
	}
	return allocservice.RunResult{}, nil
}

type fakeEngineConfig struct{}

func (fakeEngineConfig) GetDefaultSamplingPercent() int { return 100 }
func (fakeEngineConfig) GetDefaultCoolingDays() int     { return 30 }
func (fakeEngineConfig) GetTaskRetryCap() int           { return 3 }
func (fakeEngineConfig) GetReprocessParallelism() int   { return 2 }

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

type engineFixture struct {
	svc        *Service
	audits     *fakeAudits
	activities *fakeActivities
	tasks      *fakeMaterializer
	allocator  *fakeAllocator
	bus        *fakeBus
}

func newEngine(farmers []uuid.UUID, cooling map[uuid.UUID]bool, percentage int) *engineFixture {
	f := &engineFixture{
		audits: &fakeAudits{},
		activities: &fakeActivities{
			activity: activityrepo.Activity{
				ID:        uuid.New(),
				Type:      "demo",
				Territory: "nashik",
				Status:    "active",
			},
			farmers: farmers,
		},
		tasks:     &fakeMaterializer{},
		allocator: &fakeAllocator{},
		bus:       &fakeBus{},
	}
	f.svc = New(
		f.audits,
		f.activities,
		&fakePolicies{policy: policyservice.Policy{Percentage: percentage, Algorithm: "uniform", CoolingDays: 30}},
		&fakeCooling{active: cooling},
		f.tasks,
		f.allocator,
		fakeEngineConfig{},
		f.bus,
		logger.New("test"),
	)
	return f
}

func makeFarmers(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestSampleAndCreateTasks_TwelveFarmersHalfPolicyTwoCooling(t *testing.T) {
	farmers := makeFarmers(12)
	cooling := map[uuid.UUID]bool{farmers[1]: true, farmers[6]: true}
	fix := newEngine(farmers, cooling, 50)

	result, err := fix.svc.SampleAndCreateTasks(context.Background(), fix.activities.activity.ID)
	if err != nil {
		t.Fatalf("SampleAndCreateTasks() error = %v", err)
	}
	if result.SampledCount != 5 {
		t.Fatalf("sampledCount = %d, want 5", result.SampledCount)
	}
	if result.TasksCreated != 5 {
		t.Fatalf("tasksCreated = %d, want 5", result.TasksCreated)
	}
	if result.Replayed {
		t.Fatal("first run must not be a replay")
	}

	audit := fix.audits.audits[0]
	if audit.Outcome != repository.OutcomeSuccess {
		t.Fatalf("audit outcome = %s, want success", audit.Outcome)
	}
	if audit.FarmerCount != 12 || audit.ExcludedCoolingCount != 2 || audit.NotSampledCount != 5 {
		t.Fatalf("audit counts wrong: %+v", audit)
	}
	if audit.SampledCount+audit.NotSampledCount+audit.ExcludedCoolingCount != 12 {
		t.Fatalf("audit partition does not conserve the farmer list: %+v", audit)
	}

	if len(fix.activities.statuses) != 1 || fix.activities.statuses[0] != "sampled" {
		t.Fatalf("lifecycle updates = %v, want [sampled]", fix.activities.statuses)
	}
	if fix.allocator.calls != 1 {
		t.Fatalf("allocator calls = %d, want 1", fix.allocator.calls)
	}
	if len(fix.bus.published) != 1 || fix.bus.published[0].EventName() != "sampling.activity.sampled" {
		t.Fatalf("expected one sampled event, got %v", fix.bus.published)
	}
}

func TestSampleAndCreateTasks_SecondRunReplaysWithoutWork(t *testing.T) {
	fix := newEngine(makeFarmers(8), nil, 100)
	activityID := fix.activities.activity.ID

	first, err := fix.svc.SampleAndCreateTasks(context.Background(), activityID)
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}

	second, err := fix.svc.SampleAndCreateTasks(context.Background(), activityID)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}

	if !second.Replayed {
		t.Fatal("second run must be a replay")
	}
	if second.SampledCount != first.SampledCount || second.TasksCreated != first.TasksCreated {
		t.Fatalf("replay counts %+v differ from first run %+v", second, first)
	}
	if fix.tasks.calls != 1 {
		t.Fatalf("materializer calls = %d, want 1 (replay must not touch tasks)", fix.tasks.calls)
	}
	if len(fix.tasks.created) != 8 {
		t.Fatalf("tasks in store = %d, want 8 (zero new on replay)", len(fix.tasks.created))
	}
}

func TestSampleAndCreateTasks_AllocatorFailureRecordsPartial(t *testing.T) {
	fix := newEngine(makeFarmers(4), nil, 100)
	fix.allocator.fail = errors.New("allocation store unavailable")

	result, err := fix.svc.SampleAndCreateTasks(context.Background(), fix.activities.activity.ID)
	if apperr.GetKind(err) != apperr.KindPartial {
		t.Fatalf("expected partial error, got %v", err)
	}
	if result.TasksCreated != 4 {
		t.Fatalf("partial result tasksCreated = %d, want 4 (achieved counts kept)", result.TasksCreated)
	}

	audit := fix.audits.audits[0]
	if audit.Outcome != repository.OutcomePartial {
		t.Fatalf("audit outcome = %s, want partial", audit.Outcome)
	}
	if audit.ErrorMessage == "" {
		t.Fatal("partial audit must carry the cause")
	}

	// Retry after the failure: task idempotency means no duplicates.
	fix.allocator.fail = nil
	retry, err := fix.svc.SampleAndCreateTasks(context.Background(), fix.activities.activity.ID)
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if retry.TasksCreated != 0 {
		t.Fatalf("retry created %d tasks, want 0", retry.TasksCreated)
	}
	if len(fix.tasks.created) != 4 {
		t.Fatalf("tasks in store = %d, want 4 after retry", len(fix.tasks.created))
	}
}

func TestSampleAndCreateTasks_ConcurrentWinnerCountsReturned(t *testing.T) {
	fix := newEngine(makeFarmers(5), nil, 100)
	activityID := fix.activities.activity.ID

	// A concurrent run wins the success insert between this run's fast path
	// and its final audit write. This run's own insert must lose and return
	// the winner's counts.
	fix.audits.audits = append(fix.audits.audits, repository.Audit{
		ID:           uuid.New(),
		ActivityID:   activityID,
		Outcome:      repository.OutcomeSuccess,
		SampledCount: 2,
		TasksCreated: 2,
	})
	fix.audits.hideSuccessOnce = true

	result, err := fix.svc.SampleAndCreateTasks(context.Background(), activityID)
	if err != nil {
		t.Fatalf("SampleAndCreateTasks() error = %v", err)
	}
	if !result.Replayed {
		t.Fatal("losing run must return the winner's result as a replay")
	}
	if result.SampledCount != 2 || result.TasksCreated != 2 {
		t.Fatalf("expected winner's counts (2/2), got %+v", result)
	}
	if len(fix.audits.audits) != 1 {
		t.Fatalf("audits stored = %d, want only the winner's", len(fix.audits.audits))
	}
}

func TestSampleAndCreateTasks_ZeroPercentGoesInactive(t *testing.T) {
	fix := newEngine(makeFarmers(6), nil, 0)

	result, err := fix.svc.SampleAndCreateTasks(context.Background(), fix.activities.activity.ID)
	if err != nil {
		t.Fatalf("SampleAndCreateTasks() error = %v", err)
	}
	if result.SampledCount != 0 || result.TasksCreated != 0 {
		t.Fatalf("result = %+v, want zero sampled and created", result)
	}
	if fix.activities.statuses[0] != "inactive" {
		t.Fatalf("lifecycle = %s, want inactive", fix.activities.statuses[0])
	}
	if fix.allocator.calls != 0 {
		t.Fatalf("allocator calls = %d, want 0 with nothing sampled", fix.allocator.calls)
	}
}

func TestSampleAndCreateTasks_AllCoolingGoesNotEligible(t *testing.T) {
	farmers := makeFarmers(3)
	cooling := map[uuid.UUID]bool{farmers[0]: true, farmers[1]: true, farmers[2]: true}
	fix := newEngine(farmers, cooling, 80)

	result, err := fix.svc.SampleAndCreateTasks(context.Background(), fix.activities.activity.ID)
	if err != nil {
		t.Fatalf("SampleAndCreateTasks() error = %v", err)
	}
	if result.SampledCount != 0 {
		t.Fatalf("sampledCount = %d, want 0", result.SampledCount)
	}
	if fix.activities.statuses[0] != "not_eligible" {
		t.Fatalf("lifecycle = %s, want not_eligible", fix.activities.statuses[0])
	}

	audit := fix.audits.audits[0]
	if audit.ExcludedCoolingCount != 3 {
		t.Fatalf("excludedCoolingCount = %d, want 3", audit.ExcludedCoolingCount)
	}
}

func TestReprocess_CountsOutcomes(t *testing.T) {
	fix := newEngine(makeFarmers(4), nil, 100)

	result, err := fix.svc.Reprocess(context.Background())
	if err != nil {
		t.Fatalf("Reprocess() error = %v", err)
	}
	if result.Processed != 1 || result.Succeeded != 1 {
		t.Fatalf("result = %+v, want 1 processed, 1 succeeded", result)
	}
}
