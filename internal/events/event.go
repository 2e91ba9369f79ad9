// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"callops_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Activity Domain Events
// =============================================================================

// ActivityIngested is published when a field activity and its farmer list
// have been recorded and the activity is ready for sampling.
type ActivityIngested struct {
	BaseEvent
	ActivityID  uuid.UUID `json:"activityId"`
	Type        string    `json:"type"`
	Territory   string    `json:"territory"`
	FarmerCount int       `json:"farmerCount"`
}

func (e ActivityIngested) EventName() string { return "activity.ingested" }

// =============================================================================
// Sampling Domain Events
// =============================================================================

// ActivitySampled is published after a successful engine run for an activity.
type ActivitySampled struct {
	BaseEvent
	ActivityID   uuid.UUID `json:"activityId"`
	AuditID      uuid.UUID `json:"auditId"`
	SampledCount int       `json:"sampledCount"`
	TasksCreated int       `json:"tasksCreated"`
}

func (e ActivitySampled) EventName() string { return "sampling.activity.sampled" }

// =============================================================================
// Allocation Domain Events
// =============================================================================

// TasksUnallocatable is published when an allocation pass leaves tasks without
// an eligible agent. This is a coverage gap, not an error; subscribers surface
// it to operations.
type TasksUnallocatable struct {
	BaseEvent
	RunID         uuid.UUID `json:"runId"`
	Unallocatable int       `json:"unallocatable"`
	Territories   []string  `json:"territories"`
	Languages     []string  `json:"languages"`
}

func (e TasksUnallocatable) EventName() string { return "allocation.tasks.unallocatable" }

// =============================================================================
// Task Domain Events
// =============================================================================

// CallOutcomeRecorded is published when an agent logs the result of a call.
type CallOutcomeRecorded struct {
	BaseEvent
	TaskID     uuid.UUID `json:"taskId"`
	ActivityID uuid.UUID `json:"activityId"`
	FarmerID   uuid.UUID `json:"farmerId"`
	AgentID    uuid.UUID `json:"agentId"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recordedAt"`
}

func (e CallOutcomeRecorded) EventName() string { return "tasks.outcome.recorded" }
