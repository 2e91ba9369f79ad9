// Package transport defines request/response DTOs for the agents module.
package transport

import "github.com/google/uuid"

// AgentResponse is the API shape for one agent.
type AgentResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	TeamLeadID  *uuid.UUID `json:"teamLeadId,omitempty"`
	IsActive    bool       `json:"isActive"`
	Languages   []string   `json:"languages"`
	Territories []string   `json:"territories"`
}

// AgentListResponse wraps a list of agents.
type AgentListResponse struct {
	Items []AgentResponse `json:"items"`
	Total int             `json:"total"`
}

// SetLanguagesRequest replaces an agent's language set.
type SetLanguagesRequest struct {
	Languages []string `json:"languages" binding:"required" validate:"required,min=1,dive,min=2,max=50"`
}

// SetTerritoriesRequest replaces an agent's territory set. An empty list is
// allowed and marks the agent territory-unrestricted.
type SetTerritoriesRequest struct {
	Territories []string `json:"territories" validate:"dive,min=1,max=100"`
}
