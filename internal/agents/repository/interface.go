package repository

import (
	"context"

	"github.com/google/uuid"
)

// Agent is a calling agent with their routing attributes. An agent with no
// territories is territory-unrestricted and eligible everywhere.
type Agent struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Role        string
	TeamLeadID  *uuid.UUID
	IsActive    bool
	Languages   []string
	Territories []string
}

// Repository is the persistence contract for agents.
type Repository interface {
	List(ctx context.Context) ([]Agent, error)
	ListActive(ctx context.Context) ([]Agent, error)
	GetByID(ctx context.Context, id uuid.UUID) (Agent, error)

	// SetLanguages replaces the agent's language set.
	SetLanguages(ctx context.Context, agentID uuid.UUID, languages []string) error

	// SetTerritories replaces the agent's territory set. An empty set makes the
	// agent territory-unrestricted.
	SetTerritories(ctx context.Context, agentID uuid.UUID, territories []string) error
}
