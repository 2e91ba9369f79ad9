// Package tasks wires the call task bounded context into the router.
package tasks

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/cooling"
	"callops_backend/internal/events"
	ihttp "callops_backend/internal/http"
	"callops_backend/internal/tasks/handler"
	"callops_backend/internal/tasks/repository"
	"callops_backend/internal/tasks/service"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"
)

// Module bundles the tasks feature.
type Module struct {
	Service *service.Service
	Repo    repository.Repository
	handler *handler.Handler
}

// New assembles the tasks module.
func New(pool *pgxpool.Pool, coolingRepo *cooling.Repo, cfg config.EngineConfig, bus events.Bus, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, coolingRepo, cfg, bus, log)
	return &Module{
		Service: svc,
		Repo:    repo,
		handler: handler.New(svc, validate),
	}
}

// RegisterRoutes mounts the tasks endpoints.
func (m *Module) RegisterRoutes(rc *ihttp.RouterContext) {
	tasks := rc.Protected.Group("/tasks")
	{
		tasks.GET("/queue", m.handler.Queue)
		tasks.GET("/:id", m.handler.Get)
		tasks.POST("/:id/start", m.handler.Start)
		tasks.POST("/:id/outcome", m.handler.RecordOutcome)
	}

	admin := rc.Admin
	{
		admin.POST("/tasks/:id/retry", m.handler.Retry)
		admin.GET("/activities/:id/tasks", m.handler.ListByActivity)
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tasks"
}
