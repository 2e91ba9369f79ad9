// Package sampling wires the engine bounded context into the router.
package sampling

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/events"
	ihttp "callops_backend/internal/http"
	"callops_backend/internal/sampling/handler"
	"callops_backend/internal/sampling/repository"
	"callops_backend/internal/sampling/service"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// Module bundles the sampling engine.
type Module struct {
	Service *service.Service
	handler *handler.Handler
}

// New assembles the sampling module from its collaborators.
func New(
	pool *pgxpool.Pool,
	activities service.ActivitySource,
	policies service.PolicyResolver,
	cooling service.CoolingStore,
	tasks service.Materializer,
	allocator service.Allocator,
	cfg config.EngineConfig,
	bus events.Bus,
	log *logger.Logger,
) *Module {
	audits := repository.New(pool)
	svc := service.New(audits, activities, policies, cooling, tasks, allocator, cfg, bus, log)
	return &Module{
		Service: svc,
		handler: handler.New(svc),
	}
}

// RegisterRoutes mounts the engine endpoints.
func (m *Module) RegisterRoutes(rc *ihttp.RouterContext) {
	rc.Protected.POST("/activities/:id/sample", m.handler.Sample)
	rc.Protected.GET("/activities/:id/audits", m.handler.Audits)
	rc.Admin.POST("/sampling/reprocess", m.handler.Reprocess)
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "sampling"
}
