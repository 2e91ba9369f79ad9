// Package handler exposes the allocation admin endpoints.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"callops_backend/internal/allocation/repository"
	"callops_backend/internal/allocation/service"
	"callops_backend/internal/allocation/transport"
	"callops_backend/platform/httpkit"
)

// Handler handles allocation HTTP requests.
type Handler struct {
	svc *service.Service
}

// New creates a new allocation handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Run triggers an allocation pass over all unassigned tasks.
// POST /api/v1/admin/allocation/run
func (h *Handler) Run(c *gin.Context) {
	result, err := h.svc.Run(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListRuns retrieves recent allocation runs.
// GET /api/v1/admin/allocation/runs
func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.svc.ListRuns(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.RunResponse, len(runs))
	for i, run := range runs {
		items[i] = toRunResponse(run)
	}
	httpkit.OK(c, transport.RunListResponse{Items: items, Total: len(items)})
}

// GetRun retrieves one run with its decisions.
// GET /api/v1/admin/allocation/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid run ID", nil)
		return
	}

	run, decisions, err := h.svc.GetRun(c.Request.Context(), runID)
	if httpkit.HandleError(c, err) {
		return
	}

	detail := transport.RunDetailResponse{
		Run:       toRunResponse(run),
		Decisions: make([]transport.DecisionResponse, len(decisions)),
	}
	for i, d := range decisions {
		detail.Decisions[i] = transport.DecisionResponse{
			TaskID:  d.TaskID,
			AgentID: d.AgentID,
			Outcome: d.Outcome,
			Reason:  d.Reason,
		}
	}
	httpkit.OK(c, detail)
}

func toRunResponse(run repository.Run) transport.RunResponse {
	return transport.RunResponse{
		ID:                 run.ID,
		StartedAt:          run.StartedAt,
		FinishedAt:         run.FinishedAt,
		AssignedCount:      run.AssignedCount,
		UnallocatableCount: run.UnallocatableCount,
	}
}
