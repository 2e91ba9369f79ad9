// Package handler exposes the reporting endpoints.
package handler

import (
	"github.com/gin-gonic/gin"

	"callops_backend/internal/reporting/service"
	"callops_backend/platform/httpkit"
)

// Handler handles reporting HTTP requests.
type Handler struct {
	svc *service.Service
}

// New creates a new reporting handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Progress returns the overall summary.
// GET /api/v1/reports/progress
func (h *Handler) Progress(c *gin.Context) {
	result, err := h.svc.Progress(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Drilldown returns progress grouped by an activity attribute.
// GET /api/v1/reports/progress/drilldown?groupBy=territory
func (h *Handler) Drilldown(c *gin.Context) {
	groupBy := c.DefaultQuery("groupBy", "territory")

	result, err := h.svc.Drilldown(c.Request.Context(), groupBy)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"groupBy": groupBy, "rows": result})
}

// EMS returns the scored metric rows per group plus a totals row.
// GET /api/v1/reports/ems?groupBy=territory
func (h *Handler) EMS(c *gin.Context) {
	groupBy := c.DefaultQuery("groupBy", "territory")

	result, err := h.svc.EMS(c.Request.Context(), groupBy)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Trend returns the time-bucketed EMS view.
// GET /api/v1/reports/ems/trend?bucket=weekly
func (h *Handler) Trend(c *gin.Context) {
	bucket := c.DefaultQuery("bucket", "daily")

	result, err := h.svc.Trend(c.Request.Context(), bucket)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
