package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"callops_backend/internal/policy/repository"
	"callops_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository
	rows []repository.SamplingConfig
	err  error
}

func (f *fakeRepo) ListMatching(_ context.Context, _ repository.ScopeQuery) ([]repository.SamplingConfig, error) {
	return f.rows, f.err
}

type fakeEngineConfig struct {
	percent     int
	coolingDays int
}

func (f fakeEngineConfig) GetDefaultSamplingPercent() int { return f.percent }
func (f fakeEngineConfig) GetDefaultCoolingDays() int     { return f.coolingDays }
func (f fakeEngineConfig) GetTaskRetryCap() int           { return 3 }
func (f fakeEngineConfig) GetReprocessParallelism() int   { return 4 }

func configRow(scope, scopeValue string, activityType *string, percentage int) repository.SamplingConfig {
	return repository.SamplingConfig{
		ID:          uuid.New(),
		Scope:       scope,
		ScopeValue:  scopeValue,
		ActivityType: activityType,
		Percentage:  percentage,
		Algorithm:   AlgorithmUniform,
		CoolingDays: 15,
		IsActive:    true,
	}
}

func newTestService(rows []repository.SamplingConfig) *Service {
	return New(&fakeRepo{rows: rows}, fakeEngineConfig{percent: 100, coolingDays: 30}, logger.New("test"))
}

func TestResolve_TerritoryBeatsZoneAndGlobal(t *testing.T) {
	svc := newTestService([]repository.SamplingConfig{
		configRow("global", "", nil, 10),
		configRow("zone", "north", nil, 20),
		configRow("territory", "T-042", nil, 40),
	})

	policy, err := svc.Resolve(context.Background(), Scope{Territory: "T-042", Zone: "north"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Percentage != 40 {
		t.Fatalf("expected territory config (40%%), got %d%%", policy.Percentage)
	}
}

func TestResolve_ZoneBeatsBusinessUnit(t *testing.T) {
	svc := newTestService([]repository.SamplingConfig{
		configRow("business_unit", "crop-science", nil, 25),
		configRow("zone", "north", nil, 50),
	})

	policy, err := svc.Resolve(context.Background(), Scope{Zone: "north", BusinessUnit: "crop-science"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Percentage != 50 {
		t.Fatalf("expected zone config (50%%), got %d%%", policy.Percentage)
	}
}

func TestResolve_TypeSpecificWinsAtSameScope(t *testing.T) {
	demoType := "demo"
	svc := newTestService([]repository.SamplingConfig{
		configRow("territory", "T-042", nil, 30),
		configRow("territory", "T-042", &demoType, 75),
	})

	policy, err := svc.Resolve(context.Background(), Scope{Territory: "T-042", ActivityType: "demo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Percentage != 75 {
		t.Fatalf("expected type-specific config (75%%), got %d%%", policy.Percentage)
	}
}

func TestResolve_NoConfigFallsBackToDefault(t *testing.T) {
	svc := newTestService(nil)

	policy, err := svc.Resolve(context.Background(), Scope{Territory: "nowhere"})
	if err != nil {
		t.Fatalf("resolution must fail closed, got error: %v", err)
	}
	if policy.Percentage != 100 {
		t.Fatalf("expected default 100%%, got %d%%", policy.Percentage)
	}
	if policy.Algorithm != AlgorithmUniform {
		t.Fatalf("expected uniform algorithm, got %q", policy.Algorithm)
	}
	if policy.CoolingDays != 30 {
		t.Fatalf("expected default cooling days 30, got %d", policy.CoolingDays)
	}
}

func TestResolve_InvalidDefaultPercentClampedTo100(t *testing.T) {
	svc := New(&fakeRepo{}, fakeEngineConfig{percent: 0, coolingDays: 30}, logger.New("test"))

	policy, err := svc.Resolve(context.Background(), Scope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Percentage != 100 {
		t.Fatalf("expected clamp to 100%%, got %d%%", policy.Percentage)
	}
}
