// Package allocation wires the agent allocation bounded context into the router.
package allocation

import (
	"github.com/jackc/pgx/v5/pgxpool"

	agentrepo "callops_backend/internal/agents/repository"
	"callops_backend/internal/allocation/handler"
	"callops_backend/internal/allocation/repository"
	"callops_backend/internal/allocation/service"
	"callops_backend/internal/events"
	ihttp "callops_backend/internal/http"
	taskrepo "callops_backend/internal/tasks/repository"
	"callops_backend/platform/logger"
)

// Module bundles the allocation feature.
type Module struct {
	Service *service.Service
	handler *handler.Handler
}

// New assembles the allocation module.
func New(pool *pgxpool.Pool, tasks taskrepo.Repository, agents agentrepo.Repository, bus events.Bus, log *logger.Logger) *Module {
	runs := repository.New(pool)
	svc := service.New(runs, tasks, agents, bus, log)
	return &Module{
		Service: svc,
		handler: handler.New(svc),
	}
}

// RegisterRoutes mounts the allocation admin endpoints.
func (m *Module) RegisterRoutes(rc *ihttp.RouterContext) {
	alloc := rc.Admin.Group("/allocation")
	{
		alloc.POST("/run", m.handler.Run)
		alloc.GET("/runs", m.handler.ListRuns)
		alloc.GET("/runs/:id", m.handler.GetRun)
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "allocation"
}
