// Package service orchestrates one full engine run per activity: policy
// resolution, cooling filter, sampling, task materialization, allocation and
// the audit record that makes the whole run idempotent.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	activityrepo "callops_backend/internal/activity/repository"
	allocservice "callops_backend/internal/allocation/service"
	"callops_backend/internal/events"
	policyservice "callops_backend/internal/policy/service"
	"callops_backend/internal/sampling/repository"
	"callops_backend/internal/sampling/sampler"
	"callops_backend/platform/apperr"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// RunResult is what the engine returns to its caller.
type RunResult struct {
	AuditID      uuid.UUID `json:"auditId"`
	SampledCount int       `json:"sampledCount"`
	TasksCreated int       `json:"tasksCreated"`
	Replayed     bool      `json:"replayed"`
}

// PolicyResolver resolves the sampling policy for an activity's scope.
type PolicyResolver interface {
	Resolve(ctx context.Context, scope policyservice.Scope) (policyservice.Policy, error)
}

// CoolingStore is the slice of the cooling store the sampler consults.
type CoolingStore interface {
	ActiveFarmerIDs(ctx context.Context, farmerIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]bool, error)
}

// Materializer creates call tasks for the sampled farmers.
type Materializer interface {
	Materialize(ctx context.Context, activityID uuid.UUID, farmerIDs []uuid.UUID, coolingDays int, now time.Time) (int, error)
}

// Allocator runs one allocation pass over unassigned tasks.
type Allocator interface {
	Run(ctx context.Context) (allocservice.RunResult, error)
}

// ActivitySource is the slice of the activity store the engine reads and the
// lifecycle writes it performs.
type ActivitySource interface {
	GetActivity(ctx context.Context, id uuid.UUID) (activityrepo.Activity, error)
	ListActivities(ctx context.Context, filter activityrepo.ListFilter) ([]activityrepo.Activity, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	FarmerIDs(ctx context.Context, activityID uuid.UUID) ([]uuid.UUID, int, error)
}

// Service is the engine entry point.
type Service struct {
	audits     repository.Repository
	activities ActivitySource
	policies   PolicyResolver
	cooling    CoolingStore
	tasks      Materializer
	allocator  Allocator
	cfg        config.EngineConfig
	bus        events.Bus
	log        *logger.Logger
}

// New creates the sampling engine service.
func New(
	audits repository.Repository,
	activities ActivitySource,
	policies PolicyResolver,
	cooling CoolingStore,
	tasks Materializer,
	allocator Allocator,
	cfg config.EngineConfig,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		audits:     audits,
		activities: activities,
		policies:   policies,
		cooling:    cooling,
		tasks:      tasks,
		allocator:  allocator,
		cfg:        cfg,
		bus:        bus,
		log:        log,
	}
}

// SampleAndCreateTasks runs the engine for one activity. Re-running an
// already-processed activity returns the recorded result without touching
// any data. A failure after materialization writes a partial audit so the
// next attempt can safely re-enter; task-level idempotency guarantees no
// duplicates on that retry.
func (s *Service) SampleAndCreateTasks(ctx context.Context, activityID uuid.UUID) (RunResult, error) {
	if prior, found, err := s.audits.LatestSuccessful(ctx, activityID); err != nil {
		return RunResult{}, err
	} else if found {
		return replay(prior), nil
	}

	activity, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return RunResult{}, err
	}

	farmerIDs, missing, err := s.activities.FarmerIDs(ctx, activityID)
	if err != nil {
		return RunResult{}, err
	}
	if missing > 0 {
		s.log.Warn("activity references missing farmers, skipping them",
			"activityId", activityID, "missing", missing)
	}

	policy, err := s.policies.Resolve(ctx, policyservice.Scope{
		Territory:    activity.Territory,
		Zone:         activity.Zone,
		BusinessUnit: activity.BusinessUnit,
		ActivityType: activity.Type,
	})
	if err != nil {
		return RunResult{}, err
	}

	now := time.Now()
	coolingSet, err := s.cooling.ActiveFarmerIDs(ctx, farmerIDs, now)
	if err != nil {
		return RunResult{}, err
	}

	selection := sampler.Select(activityID, farmerIDs, coolingSet, policy.Percentage)

	audit := repository.Audit{
		ActivityID:           activityID,
		FarmerCount:          len(farmerIDs) + missing,
		PolicyPercentage:     policy.Percentage,
		PolicyAlgorithm:      policy.Algorithm,
		SampledCount:         len(selection.Sampled),
		NotSampledCount:      len(selection.NotSampled),
		ExcludedCoolingCount: len(selection.ExcludedByCooling),
		SkippedMissingCount:  missing,
	}

	if err := s.activities.UpdateStatus(ctx, activityID, string(selection.Lifecycle)); err != nil {
		return RunResult{}, err
	}

	created, err := s.tasks.Materialize(ctx, activityID, selection.Sampled, policy.CoolingDays, now)
	audit.TasksCreated = created
	if err != nil {
		return s.recordPartial(ctx, audit, fmt.Errorf("materialize tasks: %w", err))
	}

	if len(selection.Sampled) > 0 {
		if _, err := s.allocator.Run(ctx); err != nil {
			return s.recordPartial(ctx, audit, fmt.Errorf("allocate tasks: %w", err))
		}
	}

	audit.Outcome = repository.OutcomeSuccess
	auditID, err := s.audits.Insert(ctx, audit)
	if err != nil {
		if errors.Is(err, repository.ErrSuccessExists) {
			// A concurrent run won the success insert. Tasks were not
			// duplicated; return the winner's counts.
			winner, found, lookupErr := s.audits.LatestSuccessful(ctx, activityID)
			if lookupErr != nil {
				return RunResult{}, lookupErr
			}
			if found {
				return replay(winner), nil
			}
		}
		return RunResult{}, err
	}

	s.log.SamplingRun(activityID, audit.Outcome, audit.FarmerCount,
		audit.SampledCount, audit.ExcludedCoolingCount, audit.TasksCreated)

	s.bus.Publish(ctx, events.ActivitySampled{
		BaseEvent:    events.NewBaseEvent(),
		ActivityID:   activityID,
		AuditID:      auditID,
		SampledCount: audit.SampledCount,
		TasksCreated: audit.TasksCreated,
	})

	return RunResult{
		AuditID:      auditID,
		SampledCount: audit.SampledCount,
		TasksCreated: audit.TasksCreated,
	}, nil
}

func (s *Service) recordPartial(ctx context.Context, audit repository.Audit, cause error) (RunResult, error) {
	audit.Outcome = repository.OutcomePartial
	audit.ErrorMessage = cause.Error()

	auditID, insertErr := s.audits.Insert(ctx, audit)
	if insertErr != nil {
		s.log.Error("failed to record partial sampling audit",
			"activityId", audit.ActivityID, "cause", cause, "error", insertErr)
		return RunResult{}, insertErr
	}

	s.log.SamplingRun(audit.ActivityID, audit.Outcome, audit.FarmerCount,
		audit.SampledCount, audit.ExcludedCoolingCount, audit.TasksCreated)

	return RunResult{
		AuditID:      auditID,
		SampledCount: audit.SampledCount,
		TasksCreated: audit.TasksCreated,
	}, apperr.Partial("sampling run completed partially: " + cause.Error())
}

func replay(audit repository.Audit) RunResult {
	return RunResult{
		AuditID:      audit.ID,
		SampledCount: audit.SampledCount,
		TasksCreated: audit.TasksCreated,
		Replayed:     true,
	}
}

// BatchResult summarizes one reprocess sweep.
type BatchResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Partial   int `json:"partial"`
	Failed    int `json:"failed"`
}

// Reprocess runs the engine over every activity still in active status,
// bounded-concurrently. Per-activity failures are counted, not fatal.
func (s *Service) Reprocess(ctx context.Context) (BatchResult, error) {
	pending, err := s.activities.ListActivities(ctx, activityrepo.ListFilter{Status: "active", Limit: 500})
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	result.Processed = len(pending)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.GetReprocessParallelism())

	outcomes := make([]error, len(pending))
	for i, activity := range pending {
		g.Go(func() error {
			_, err := s.SampleAndCreateTasks(gctx, activity.ID)
			outcomes[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for i, err := range outcomes {
		switch {
		case err == nil:
			result.Succeeded++
		case apperr.GetKind(err) == apperr.KindPartial:
			result.Partial++
		default:
			result.Failed++
			s.log.Error("reprocess failed for activity", "activityId", pending[i].ID, "error", err)
		}
	}

	s.log.Info("reprocess sweep finished",
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"partial", result.Partial,
		"failed", result.Failed,
	)
	return result, nil
}

// Audits lists every recorded run for an activity.
func (s *Service) Audits(ctx context.Context, activityID uuid.UUID) ([]repository.Audit, error) {
	return s.audits.ListByActivity(ctx, activityID)
}
