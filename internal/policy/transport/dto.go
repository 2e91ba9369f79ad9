// Package transport defines request/response DTOs for the policy module.
package transport

import "github.com/google/uuid"

// CreateSamplingConfigRequest is the admin payload for creating a policy row.
type CreateSamplingConfigRequest struct {
	Scope        string  `json:"scope" binding:"required" validate:"required,oneof=territory zone business_unit global"`
	ScopeValue   string  `json:"scopeValue" validate:"required_unless=Scope global"`
	ActivityType *string `json:"activityType,omitempty"`
	Percentage   int     `json:"percentage" validate:"gte=0,lte=100"`
	Algorithm    string  `json:"algorithm" validate:"omitempty,oneof=uniform"`
	CoolingDays  int     `json:"coolingDays" validate:"gte=0,lte=365"`
}

// UpdateSamplingConfigRequest is the admin payload for updating a policy row.
type UpdateSamplingConfigRequest struct {
	Percentage  *int    `json:"percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	Algorithm   *string `json:"algorithm,omitempty" validate:"omitempty,oneof=uniform"`
	CoolingDays *int    `json:"coolingDays,omitempty" validate:"omitempty,gte=0,lte=365"`
}

// SamplingConfigResponse is the API shape for a sampling config.
type SamplingConfigResponse struct {
	ID           uuid.UUID `json:"id"`
	Scope        string    `json:"scope"`
	ScopeValue   string    `json:"scopeValue"`
	ActivityType *string   `json:"activityType,omitempty"`
	Percentage   int       `json:"percentage"`
	Algorithm    string    `json:"algorithm"`
	CoolingDays  int       `json:"coolingDays"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    string    `json:"createdAt"`
	UpdatedAt    string    `json:"updatedAt"`
}

// SamplingConfigListResponse wraps a list of configs.
type SamplingConfigListResponse struct {
	Items []SamplingConfigResponse `json:"items"`
	Total int                      `json:"total"`
}
