// Package transport defines request/response DTOs for the tasks module.
package transport

import "github.com/google/uuid"

// TaskResponse is the API shape for one call task.
type TaskResponse struct {
	ID              uuid.UUID  `json:"id"`
	ActivityID      uuid.UUID  `json:"activityId"`
	FarmerID        uuid.UUID  `json:"farmerId"`
	FarmerName      string     `json:"farmerName"`
	FarmerPhone     string     `json:"farmerPhone"`
	FarmerLanguage  string     `json:"farmerLanguage"`
	FarmerTerritory string     `json:"farmerTerritory"`
	AssignedAgentID *uuid.UUID `json:"assignedAgentId,omitempty"`
	Status          string     `json:"status"`
	RetryCount      int        `json:"retryCount"`
	ScheduledDate   string     `json:"scheduledDate"`
	CreatedAt       string     `json:"createdAt"`
	UpdatedAt       string     `json:"updatedAt"`
}

// TaskListResponse wraps a list of tasks.
type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
	Total int            `json:"total"`
}

// RecordOutcomeRequest is the agent payload for logging a call result.
// Status drives the task's terminal (or retryable) state; the outcome detail
// fields are only meaningful when the call completed.
type RecordOutcomeRequest struct {
	Status          string `json:"status" binding:"required" validate:"required,oneof=completed not_reachable invalid_number"`
	Connected       bool   `json:"connected"`
	IdentityWrong   bool   `json:"identityWrong"`
	NotAFarmer      bool   `json:"notAFarmer"`
	AttendedMeeting bool   `json:"attendedMeeting"`
	Purchased       bool   `json:"purchased"`
	Willingness     string `json:"willingness" validate:"omitempty,oneof=yes no maybe"`
	ActivityQuality *int   `json:"activityQuality,omitempty" validate:"omitempty,gte=1,lte=5"`
	Remarks         string `json:"remarks" validate:"max=2000"`
}

// OutcomeResponse reports the task state after an outcome was recorded.
type OutcomeResponse struct {
	TaskID     uuid.UUID `json:"taskId"`
	Status     string    `json:"status"`
	RetryCount int       `json:"retryCount"`
}
