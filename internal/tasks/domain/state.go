// Package domain holds the call task state machine.
package domain

// Status is the lifecycle state of a call task.
type Status string

const (
	// StatusUnassigned is the initial state of a freshly materialized task.
	StatusUnassigned Status = "unassigned"
	// StatusSampledInQueue means the task has an agent and waits in their queue.
	StatusSampledInQueue Status = "sampled_in_queue"
	// StatusInProgress means the agent has started the call.
	StatusInProgress Status = "in_progress"
	// StatusCompleted is terminal: the call finished and an outcome was logged.
	StatusCompleted Status = "completed"
	// StatusNotReachable means the farmer did not pick up; retryable up to a cap.
	StatusNotReachable Status = "not_reachable"
	// StatusInvalidNumber is terminal: the phone number does not work.
	StatusInvalidNumber Status = "invalid_number"
)

// Valid reports whether s is a known task status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnassigned, StatusSampledInQueue, StatusInProgress,
		StatusCompleted, StatusNotReachable, StatusInvalidNumber:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s,
// given the task's retry count and the configured retry cap.
func (s Status) Terminal(retryCount, retryCap int) bool {
	switch s {
	case StatusCompleted, StatusInvalidNumber:
		return true
	case StatusNotReachable:
		return retryCount >= retryCap
	}
	return false
}

// CanTransition reports whether a task may move from one status to another.
// Only the allocator moves a task out of unassigned; only call handling moves
// it past sampled_in_queue. A not_reachable task may requeue while its retry
// count is under the cap.
func CanTransition(from, to Status, retryCount, retryCap int) bool {
	switch from {
	case StatusUnassigned:
		return to == StatusSampledInQueue
	case StatusSampledInQueue:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusCompleted || to == StatusNotReachable || to == StatusInvalidNumber
	case StatusNotReachable:
		return to == StatusSampledInQueue && retryCount < retryCap
	}
	return false
}
