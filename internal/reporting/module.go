// Package reporting wires the reporting read models into the router.
package reporting

import (
	"github.com/jackc/pgx/v5/pgxpool"

	ihttp "callops_backend/internal/http"
	"callops_backend/internal/reporting/handler"
	"callops_backend/internal/reporting/repository"
	"callops_backend/internal/reporting/service"
	"callops_backend/platform/logger"
)

// Module bundles the reporting feature.
type Module struct {
	Service *service.Service
	handler *handler.Handler
}

// New assembles the reporting module.
func New(pool *pgxpool.Pool, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{
		Service: svc,
		handler: handler.New(svc),
	}
}

// RegisterRoutes mounts the reporting endpoints.
func (m *Module) RegisterRoutes(rc *ihttp.RouterContext) {
	reports := rc.Protected.Group("/reports")
	{
		reports.GET("/progress", m.handler.Progress)
		reports.GET("/progress/drilldown", m.handler.Drilldown)
		reports.GET("/ems", m.handler.EMS)
		reports.GET("/ems/trend", m.handler.Trend)
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reporting"
}
