// Package policy provides the sampling policy bounded context module.
// It resolves which sampling percentage and cooling window apply to an
// activity's scope, and exposes admin CRUD for the config rows.
package policy

import (
	apphttp "callops_backend/internal/http"
	"callops_backend/internal/policy/handler"
	"callops_backend/internal/policy/repository"
	"callops_backend/internal/policy/service"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
	"callops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the policy bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the policy module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.EngineConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "policy"
}

// Service returns the service layer for external use (the sampling engine).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts sampling config routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	adminGroup := ctx.Admin.Group("/sampling-configs")
	adminGroup.GET("", m.handler.List)
	adminGroup.POST("", m.handler.Create)
	adminGroup.GET("/:id", m.handler.GetByID)
	adminGroup.PUT("/:id", m.handler.Update)
	adminGroup.DELETE("/:id", m.handler.Delete)
	adminGroup.PATCH("/:id/toggle-active", m.handler.ToggleActive)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
