// Package activity wires activity ingestion and reads into the router.
package activity

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/activity/handler"
	"callops_backend/internal/activity/repository"
	"callops_backend/internal/activity/service"
	"callops_backend/internal/events"
	ihttp "callops_backend/internal/http"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"
)

// Module bundles the activity feature.
type Module struct {
	Service *service.Service
	Repo    repository.Repository
	handler *handler.Handler
}

// New assembles the activity module. The engine is injected because the
// sampling module owns it.
func New(pool *pgxpool.Pool, engine service.Engine, cfg config.PhoneConfig, bus events.Bus, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, engine, cfg, bus, log)
	return &Module{
		Service: svc,
		Repo:    repo,
		handler: handler.New(svc, validate),
	}
}

// RegisterRoutes mounts the activity endpoints.
func (m *Module) RegisterRoutes(rc *ihttp.RouterContext) {
	activities := rc.Protected.Group("/activities")
	{
		activities.POST("", m.handler.Ingest)
		activities.GET("", m.handler.List)
		activities.GET("/:id", m.handler.Get)
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "activity"
}
