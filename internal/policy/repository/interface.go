package repository

import (
	"context"

	"github.com/google/uuid"
)

// SamplingConfig is one admin-managed sampling policy row, keyed by scope.
type SamplingConfig struct {
	ID           uuid.UUID
	Scope        string // territory | zone | business_unit | global
	ScopeValue   string // empty for global
	ActivityType *string
	Percentage   int
	Algorithm    string
	CoolingDays  int
	IsActive     bool
	CreatedAt    string
	UpdatedAt    string
}

// CreateParams holds the fields for creating a sampling config.
type CreateParams struct {
	Scope        string
	ScopeValue   string
	ActivityType *string
	Percentage   int
	Algorithm    string
	CoolingDays  int
}

// UpdateParams holds the fields for updating a sampling config.
// Nil pointers leave the current value untouched.
type UpdateParams struct {
	ID          uuid.UUID
	Percentage  *int
	Algorithm   *string
	CoolingDays *int
}

// ScopeQuery identifies the activity attributes a policy lookup matches against.
type ScopeQuery struct {
	Territory    string
	Zone         string
	BusinessUnit string
	ActivityType string
}

// Repository is the persistence contract for sampling configs.
type Repository interface {
	// ListMatching returns every active config row that could apply to the
	// given scope: exact territory/zone/business-unit matches plus the global
	// default. Precedence between them is the resolver's concern.
	ListMatching(ctx context.Context, query ScopeQuery) ([]SamplingConfig, error)

	GetByID(ctx context.Context, id uuid.UUID) (SamplingConfig, error)
	List(ctx context.Context) ([]SamplingConfig, error)
	Create(ctx context.Context, params CreateParams) (SamplingConfig, error)
	Update(ctx context.Context, params UpdateParams) (SamplingConfig, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, isActive bool) error
}
