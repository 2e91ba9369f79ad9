// Package transport defines response DTOs for the sampling engine.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// AuditResponse is the API shape for one sampling audit record.
type AuditResponse struct {
	ID                   uuid.UUID `json:"id"`
	ActivityID           uuid.UUID `json:"activityId"`
	Outcome              string    `json:"outcome"`
	FarmerCount          int       `json:"farmerCount"`
	PolicyPercentage     int       `json:"policyPercentage"`
	PolicyAlgorithm      string    `json:"policyAlgorithm"`
	SampledCount         int       `json:"sampledCount"`
	NotSampledCount      int       `json:"notSampledCount"`
	ExcludedCoolingCount int       `json:"excludedCoolingCount"`
	SkippedMissingCount  int       `json:"skippedMissingCount"`
	TasksCreated         int       `json:"tasksCreated"`
	ErrorMessage         string    `json:"errorMessage,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// AuditListResponse wraps an activity's audit history.
type AuditListResponse struct {
	Items []AuditResponse `json:"items"`
	Total int             `json:"total"`
}
