package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"callops_backend/internal/policy/repository"
	"callops_backend/internal/policy/transport"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// Policy is the resolved, immutable sampling policy for one engine run.
// It is fetched fresh per run; nothing caches or mutates it.
type Policy struct {
	Percentage  int
	Algorithm   string
	CoolingDays int
}

// Scope identifies the activity attributes a policy lookup matches against.
type Scope struct {
	Territory    string
	Zone         string
	BusinessUnit string
	ActivityType string
}

// AlgorithmUniform is the only selection algorithm currently supported.
const AlgorithmUniform = "uniform"

// Service provides policy resolution and admin management of sampling configs.
type Service struct {
	repo repository.Repository
	cfg  config.EngineConfig
	log  *logger.Logger
}

// New creates a new policy service.
func New(repo repository.Repository, cfg config.EngineConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// Resolve looks up the applicable sampling policy for the scope.
// Precedence: territory, then zone, then business unit, then global default.
// Within one scope level a row bound to the activity type wins over a generic
// row. With no config anywhere it returns the built-in default, never an error.
func (s *Service) Resolve(ctx context.Context, scope Scope) (Policy, error) {
	rows, err := s.repo.ListMatching(ctx, repository.ScopeQuery{
		Territory:    scope.Territory,
		Zone:         scope.Zone,
		BusinessUnit: scope.BusinessUnit,
		ActivityType: scope.ActivityType,
	})
	if err != nil {
		return Policy{}, err
	}

	if best, ok := pickBest(rows); ok {
		return Policy{
			Percentage:  best.Percentage,
			Algorithm:   best.Algorithm,
			CoolingDays: best.CoolingDays,
		}, nil
	}

	s.log.Debug("no sampling config matched, using default",
		"territory", scope.Territory, "zone", scope.Zone, "businessUnit", scope.BusinessUnit)

	return s.defaultPolicy(), nil
}

func (s *Service) defaultPolicy() Policy {
	percentage := s.cfg.GetDefaultSamplingPercent()
	if percentage <= 0 || percentage > 100 {
		percentage = 100
	}
	return Policy{
		Percentage:  percentage,
		Algorithm:   AlgorithmUniform,
		CoolingDays: s.cfg.GetDefaultCoolingDays(),
	}
}

// pickBest applies scope precedence to the candidate rows.
func pickBest(rows []repository.SamplingConfig) (repository.SamplingConfig, bool) {
	var best repository.SamplingConfig
	bestRank := -1

	for _, row := range rows {
		rank := scopeRank(row.Scope)
		if rank < 0 {
			continue
		}
		// Type-specific rows outrank generic rows at the same scope level.
		rank = rank * 2
		if row.ActivityType != nil {
			rank++
		}
		if rank > bestRank {
			best = row
			bestRank = rank
		}
	}

	return best, bestRank >= 0
}

func scopeRank(scope string) int {
	switch scope {
	case "global":
		return 0
	case "business_unit":
		return 1
	case "zone":
		return 2
	case "territory":
		return 3
	default:
		return -1
	}
}

// =============================================================================
// Admin CRUD
// =============================================================================

// List retrieves all sampling configs.
func (s *Service) List(ctx context.Context) (transport.SamplingConfigListResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return transport.SamplingConfigListResponse{}, err
	}

	responses := make([]transport.SamplingConfigResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	return transport.SamplingConfigListResponse{Items: responses, Total: len(responses)}, nil
}

// GetByID retrieves a sampling config by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.SamplingConfigResponse, error) {
	cfg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.SamplingConfigResponse{}, err
	}
	return toResponse(cfg), nil
}

// Create creates a new sampling config.
func (s *Service) Create(ctx context.Context, req transport.CreateSamplingConfigRequest) (transport.SamplingConfigResponse, error) {
	algorithm := strings.TrimSpace(req.Algorithm)
	if algorithm == "" {
		algorithm = AlgorithmUniform
	}

	coolingDays := req.CoolingDays
	if coolingDays == 0 {
		coolingDays = s.cfg.GetDefaultCoolingDays()
	}

	scopeValue := req.ScopeValue
	if req.Scope == "global" {
		scopeValue = ""
	}

	cfg, err := s.repo.Create(ctx, repository.CreateParams{
		Scope:        req.Scope,
		ScopeValue:   scopeValue,
		ActivityType: req.ActivityType,
		Percentage:   req.Percentage,
		Algorithm:    algorithm,
		CoolingDays:  coolingDays,
	})
	if err != nil {
		return transport.SamplingConfigResponse{}, err
	}

	s.log.Info("sampling config created", "id", cfg.ID, "scope", cfg.Scope, "scopeValue", cfg.ScopeValue, "percentage", cfg.Percentage)
	return toResponse(cfg), nil
}

// Update updates an existing sampling config.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateSamplingConfigRequest) (transport.SamplingConfigResponse, error) {
	cfg, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:          id,
		Percentage:  req.Percentage,
		Algorithm:   req.Algorithm,
		CoolingDays: req.CoolingDays,
	})
	if err != nil {
		return transport.SamplingConfigResponse{}, err
	}

	s.log.Info("sampling config updated", "id", cfg.ID, "percentage", cfg.Percentage)
	return toResponse(cfg), nil
}

// Delete removes a sampling config.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("sampling config deleted", "id", id)
	return nil
}

// SetActive toggles a config on or off without deleting it.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, isActive bool) error {
	if err := s.repo.SetActive(ctx, id, isActive); err != nil {
		return err
	}
	s.log.Info("sampling config active flag set", "id", id, "isActive", isActive)
	return nil
}

func toResponse(cfg repository.SamplingConfig) transport.SamplingConfigResponse {
	return transport.SamplingConfigResponse{
		ID:           cfg.ID,
		Scope:        cfg.Scope,
		ScopeValue:   cfg.ScopeValue,
		ActivityType: cfg.ActivityType,
		Percentage:   cfg.Percentage,
		Algorithm:    cfg.Algorithm,
		CoolingDays:  cfg.CoolingDays,
		IsActive:     cfg.IsActive,
		CreatedAt:    cfg.CreatedAt,
		UpdatedAt:    cfg.UpdatedAt,
	}
}
