package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"callops_backend/internal/agents/repository"
	"callops_backend/internal/agents/transport"
	"callops_backend/platform/logger"
)

// Service provides business logic for agent administration.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new agents service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List retrieves all agents.
func (s *Service) List(ctx context.Context) (transport.AgentListResponse, error) {
	agents, err := s.repo.List(ctx)
	if err != nil {
		return transport.AgentListResponse{}, err
	}

	items := make([]transport.AgentResponse, len(agents))
	for i, a := range agents {
		items[i] = toResponse(a)
	}
	return transport.AgentListResponse{Items: items, Total: len(items)}, nil
}

// GetByID retrieves one agent.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.AgentResponse, error) {
	agent, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.AgentResponse{}, err
	}
	return toResponse(agent), nil
}

// SetLanguages replaces the agent's language set. Values are lowercased and
// deduplicated before storage so routing comparisons stay exact.
func (s *Service) SetLanguages(ctx context.Context, agentID uuid.UUID, req transport.SetLanguagesRequest) (transport.AgentResponse, error) {
	if _, err := s.repo.GetByID(ctx, agentID); err != nil {
		return transport.AgentResponse{}, err
	}

	if err := s.repo.SetLanguages(ctx, agentID, normalize(req.Languages)); err != nil {
		return transport.AgentResponse{}, err
	}

	s.log.Info("agent languages updated", "agentId", agentID, "count", len(req.Languages))
	return s.GetByID(ctx, agentID)
}

// SetTerritories replaces the agent's territory set.
func (s *Service) SetTerritories(ctx context.Context, agentID uuid.UUID, req transport.SetTerritoriesRequest) (transport.AgentResponse, error) {
	if _, err := s.repo.GetByID(ctx, agentID); err != nil {
		return transport.AgentResponse{}, err
	}

	if err := s.repo.SetTerritories(ctx, agentID, normalize(req.Territories)); err != nil {
		return transport.AgentResponse{}, err
	}

	s.log.Info("agent territories updated", "agentId", agentID, "count", len(req.Territories))
	return s.GetByID(ctx, agentID)
}

func normalize(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}

func toResponse(a repository.Agent) transport.AgentResponse {
	return transport.AgentResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Role:        a.Role,
		TeamLeadID:  a.TeamLeadID,
		IsActive:    a.IsActive,
		Languages:   a.Languages,
		Territories: a.Territories,
	}
}
