package service

import (
	"context"

	"github.com/google/uuid"

	"callops_backend/internal/activity/repository"
	"callops_backend/internal/activity/transport"
	"callops_backend/internal/events"
	samplingservice "callops_backend/internal/sampling/service"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
	"callops_backend/platform/phone"
)

// Engine is the sampling engine entry point the ingestion flow triggers.
type Engine interface {
	SampleAndCreateTasks(ctx context.Context, activityID uuid.UUID) (samplingservice.RunResult, error)
}

// Service provides business logic for activity ingestion and reads.
type Service struct {
	repo   repository.Repository
	engine Engine
	cfg    config.PhoneConfig
	bus    events.Bus
	log    *logger.Logger
}

// New creates a new activity service.
func New(repo repository.Repository, engine Engine, cfg config.PhoneConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, engine: engine, cfg: cfg, bus: bus, log: log}
}

// Ingest records an activity with its farmer list and runs the engine
// synchronously. Replaying the same externalRef re-enters the engine, which
// returns the recorded result without re-sampling.
func (s *Service) Ingest(ctx context.Context, req transport.IngestActivityRequest) (transport.IngestResult, error) {
	activityID, created, err := s.repo.CreateActivity(ctx, repository.CreateActivityParams{
		ExternalRef:  req.ExternalRef,
		Type:         req.Type,
		ActivityDate: req.ActivityDate,
		Territory:    req.Territory,
		Zone:         req.Zone,
		BusinessUnit: req.BusinessUnit,
		State:        req.State,
		Crop:         req.Crop,
		Product:      req.Product,
	})
	if err != nil {
		return transport.IngestResult{}, err
	}

	region := s.cfg.GetPhoneRegion()
	for _, ref := range req.Farmers {
		farmerID, err := s.repo.UpsertFarmer(ctx, repository.UpsertFarmerParams{
			Name:              ref.Name,
			Phone:             phone.NormalizeE164(ref.Phone, region),
			Village:           ref.Village,
			Territory:         ref.Territory,
			State:             ref.State,
			PreferredLanguage: ref.PreferredLanguage,
		})
		if err != nil {
			return transport.IngestResult{}, err
		}
		if err := s.repo.LinkFarmer(ctx, activityID, farmerID); err != nil {
			return transport.IngestResult{}, err
		}
	}

	if created {
		s.bus.Publish(ctx, events.ActivityIngested{
			BaseEvent:   events.NewBaseEvent(),
			ActivityID:  activityID,
			Type:        req.Type,
			Territory:   req.Territory,
			FarmerCount: len(req.Farmers),
		})
	}

	run, err := s.engine.SampleAndCreateTasks(ctx, activityID)
	if err != nil {
		// Partial runs surface to the caller; the audit trail has the detail.
		return transport.IngestResult{}, err
	}

	activity, err := s.repo.GetActivity(ctx, activityID)
	if err != nil {
		return transport.IngestResult{}, err
	}

	return transport.IngestResult{
		Activity:     toResponse(activity),
		Created:      created,
		SampledCount: run.SampledCount,
		TasksCreated: run.TasksCreated,
	}, nil
}

// Get retrieves one activity.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.ActivityResponse, error) {
	activity, err := s.repo.GetActivity(ctx, id)
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	return toResponse(activity), nil
}

// List retrieves activities matching the filter.
func (s *Service) List(ctx context.Context, filter repository.ListFilter) (transport.ActivityListResponse, error) {
	activities, err := s.repo.ListActivities(ctx, filter)
	if err != nil {
		return transport.ActivityListResponse{}, err
	}

	items := make([]transport.ActivityResponse, len(activities))
	for i, a := range activities {
		items[i] = toResponse(a)
	}
	return transport.ActivityListResponse{Items: items, Total: len(items)}, nil
}

func toResponse(a repository.Activity) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:           a.ID,
		ExternalRef:  a.ExternalRef,
		Type:         a.Type,
		ActivityDate: a.ActivityDate.Format("2006-01-02"),
		Territory:    a.Territory,
		Zone:         a.Zone,
		BusinessUnit: a.BusinessUnit,
		State:        a.State,
		Crop:         a.Crop,
		Product:      a.Product,
		Status:       a.Status,
		FarmerCount:  a.FarmerCount,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
