// Package agents wires the agent administration bounded context into the router.
package agents

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/agents/handler"
	"callops_backend/internal/agents/repository"
	"callops_backend/internal/agents/service"
	ihttp "callops_backend/internal/http"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"
)

// Module bundles the agents feature.
type Module struct {
	Service *service.Service
	Repo    repository.Repository
	handler *handler.Handler
}

// New assembles the agents module.
func New(pool *pgxpool.Pool, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		Service: svc,
		Repo:    repo,
		handler: handler.New(svc, validate),
	}
}

// RegisterRoutes mounts the agent admin endpoints.
func (m *Module) RegisterRoutes(rc *ihttp.RouterContext) {
	agents := rc.Admin.Group("/agents")
	{
		agents.GET("", m.handler.List)
		agents.GET("/:id", m.handler.GetByID)
		agents.PUT("/:id/languages", m.handler.SetLanguages)
		agents.PUT("/:id/territories", m.handler.SetTerritories)
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "agents"
}
