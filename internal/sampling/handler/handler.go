// Package handler exposes the sampling engine HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"callops_backend/internal/sampling/service"
	"callops_backend/internal/sampling/transport"
	"callops_backend/platform/httpkit"
)

// Handler handles sampling engine HTTP requests.
type Handler struct {
	svc *service.Service
}

const msgInvalidActivityID = "invalid activity ID"

// New creates a new sampling handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Sample runs the engine for one activity. Safe to call repeatedly; an
// already-processed activity returns its recorded counts.
// POST /api/v1/activities/:id/sample
func (h *Handler) Sample(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidActivityID, nil)
		return
	}

	result, err := h.svc.SampleAndCreateTasks(c.Request.Context(), activityID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Reprocess sweeps all still-active activities through the engine.
// POST /api/v1/admin/sampling/reprocess
func (h *Handler) Reprocess(c *gin.Context) {
	result, err := h.svc.Reprocess(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Audits returns the full run history for one activity.
// GET /api/v1/activities/:id/audits
func (h *Handler) Audits(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidActivityID, nil)
		return
	}

	audits, err := h.svc.Audits(c.Request.Context(), activityID)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.AuditResponse, len(audits))
	for i, a := range audits {
		items[i] = transport.AuditResponse{
			ID:                   a.ID,
			ActivityID:           a.ActivityID,
			Outcome:              a.Outcome,
			FarmerCount:          a.FarmerCount,
			PolicyPercentage:     a.PolicyPercentage,
			PolicyAlgorithm:      a.PolicyAlgorithm,
			SampledCount:         a.SampledCount,
			NotSampledCount:      a.NotSampledCount,
			ExcludedCoolingCount: a.ExcludedCoolingCount,
			SkippedMissingCount:  a.SkippedMissingCount,
			TasksCreated:         a.TasksCreated,
			ErrorMessage:         a.ErrorMessage,
			CreatedAt:            a.CreatedAt,
		}
	}
	httpkit.OK(c, transport.AuditListResponse{Items: items, Total: len(items)})
}
