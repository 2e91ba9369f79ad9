// Package transport defines request/response DTOs for the activity module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// FarmerRef is one farmer reference inside an ingestion payload.
type FarmerRef struct {
	Name              string `json:"name" binding:"required" validate:"required,min=1,max=200"`
	Phone             string `json:"phone" binding:"required" validate:"required,min=6,max=20"`
	Village           string `json:"village" validate:"max=200"`
	Territory         string `json:"territory" binding:"required" validate:"required,min=1,max=100"`
	State             string `json:"state" validate:"max=100"`
	PreferredLanguage string `json:"preferredLanguage" binding:"required" validate:"required,min=2,max=50"`
}

// IngestActivityRequest is the payload for logging a field activity.
type IngestActivityRequest struct {
	ExternalRef  string      `json:"externalRef" binding:"required" validate:"required,min=1,max=100"`
	Type         string      `json:"type" binding:"required" validate:"required,min=1,max=100"`
	ActivityDate time.Time   `json:"activityDate" binding:"required" validate:"required"`
	Territory    string      `json:"territory" binding:"required" validate:"required,min=1,max=100"`
	Zone         string      `json:"zone" validate:"max=100"`
	BusinessUnit string      `json:"businessUnit" validate:"max=100"`
	State        string      `json:"state" validate:"max=100"`
	Crop         string      `json:"crop" validate:"max=100"`
	Product      string      `json:"product" validate:"max=100"`
	Farmers      []FarmerRef `json:"farmers" binding:"required" validate:"required,min=1,dive"`
}

// ActivityResponse is the API shape for one activity.
type ActivityResponse struct {
	ID           uuid.UUID `json:"id"`
	ExternalRef  string    `json:"externalRef"`
	Type         string    `json:"type"`
	ActivityDate string    `json:"activityDate"`
	Territory    string    `json:"territory"`
	Zone         string    `json:"zone,omitempty"`
	BusinessUnit string    `json:"businessUnit,omitempty"`
	State        string    `json:"state,omitempty"`
	Crop         string    `json:"crop,omitempty"`
	Product      string    `json:"product,omitempty"`
	Status       string    `json:"status"`
	FarmerCount  int       `json:"farmerCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ActivityListResponse wraps a list of activities.
type ActivityListResponse struct {
	Items []ActivityResponse `json:"items"`
	Total int                `json:"total"`
}

// IngestResult reports what ingestion plus the synchronous engine run did.
type IngestResult struct {
	Activity     ActivityResponse `json:"activity"`
	Created      bool             `json:"created"`
	SampledCount int              `json:"sampledCount"`
	TasksCreated int              `json:"tasksCreated"`
}
