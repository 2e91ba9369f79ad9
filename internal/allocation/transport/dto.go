// Package transport defines response DTOs for the allocation module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// RunResponse is the API shape for one allocation run.
type RunResponse struct {
	ID                 uuid.UUID  `json:"id"`
	StartedAt          time.Time  `json:"startedAt"`
	FinishedAt         *time.Time `json:"finishedAt,omitempty"`
	AssignedCount      int        `json:"assignedCount"`
	UnallocatableCount int        `json:"unallocatableCount"`
}

// DecisionResponse is one per-task decision within a run.
type DecisionResponse struct {
	TaskID  uuid.UUID  `json:"taskId"`
	AgentID *uuid.UUID `json:"agentId,omitempty"`
	Outcome string     `json:"outcome"`
	Reason  string     `json:"reason,omitempty"`
}

// RunDetailResponse is a run with its decisions.
type RunDetailResponse struct {
	Run       RunResponse        `json:"run"`
	Decisions []DecisionResponse `json:"decisions"`
}

// RunListResponse wraps a list of runs.
type RunListResponse struct {
	Items []RunResponse `json:"items"`
	Total int           `json:"total"`
}
