package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAllocationRun = "allocation.run"

const TaskRetryRequeue = "tasks.retry_requeue"

// AllocationRunPayload carries why a pass was requested, for log correlation.
type AllocationRunPayload struct {
	Reason string `json:"reason"`
}

// RetryRequeuePayload is currently empty; the cap comes from config.
type RetryRequeuePayload struct{}

func NewAllocationRunTask(payload AllocationRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAllocationRun, data), nil
}

func ParseAllocationRunPayload(task *asynq.Task) (AllocationRunPayload, error) {
	var payload AllocationRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AllocationRunPayload{}, err
	}
	return payload, nil
}

func NewRetryRequeueTask() (*asynq.Task, error) {
	data, err := json.Marshal(RetryRequeuePayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetryRequeue, data), nil
}
