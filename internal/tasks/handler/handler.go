// Package handler exposes the call task HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"callops_backend/internal/tasks/service"
	"callops_backend/internal/tasks/transport"
	"callops_backend/platform/httpkit"
	"callops_backend/platform/validator"
)

// Handler handles call task HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidTaskID    = "invalid task ID"
	msgMissingIdentity  = "missing agent identity"
)

// New creates a new tasks handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Queue returns the calling agent's open tasks.
// GET /api/v1/tasks/queue
func (h *Handler) Queue(c *gin.Context) {
	agentID, ok := httpkit.GetAgentID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, msgMissingIdentity, nil)
		return
	}

	result, err := h.svc.Queue(c.Request.Context(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves one task by ID.
// GET /api/v1/tasks/:id
func (h *Handler) Get(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTaskID, nil)
		return
	}

	result, err := h.svc.Get(c.Request.Context(), taskID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Start moves a queued task into in_progress.
// POST /api/v1/tasks/:id/start
func (h *Handler) Start(c *gin.Context) {
	agentID, ok := httpkit.GetAgentID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, msgMissingIdentity, nil)
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTaskID, nil)
		return
	}

	result, err := h.svc.Start(c.Request.Context(), taskID, agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RecordOutcome logs the result of a call.
// POST /api/v1/tasks/:id/outcome
func (h *Handler) RecordOutcome(c *gin.Context) {
	agentID, ok := httpkit.GetAgentID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, msgMissingIdentity, nil)
		return
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTaskID, nil)
		return
	}

	var req transport.RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.RecordOutcome(c.Request.Context(), taskID, agentID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Retry requeues one not_reachable task.
// POST /api/v1/admin/tasks/:id/retry
func (h *Handler) Retry(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTaskID, nil)
		return
	}

	result, err := h.svc.Retry(c.Request.Context(), taskID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListByActivity returns every task materialized for an activity.
// GET /api/v1/admin/activities/:id/tasks
func (h *Handler) ListByActivity(c *gin.Context) {
	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid activity ID", nil)
		return
	}

	result, err := h.svc.ListByActivity(c.Request.Context(), activityID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
