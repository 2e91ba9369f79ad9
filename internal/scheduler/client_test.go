package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type fakeSchedulerConfig struct {
	redisURL string
	queue    string
}

func (f fakeSchedulerConfig) GetRedisURL() string       { return f.redisURL }
func (f fakeSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (f fakeSchedulerConfig) GetAsynqQueueName() string { return f.queue }
func (f fakeSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClient_RequiresRedisURL(t *testing.T) {
	if _, err := NewClient(fakeSchedulerConfig{}); err == nil {
		t.Fatal("NewClient() with empty redis url must fail")
	}
}

func TestEnqueueAllocationRun(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(fakeSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "engine"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if err := client.EnqueueAllocationRun(context.Background(), "manual"); err != nil {
		t.Fatalf("EnqueueAllocationRun() error = %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("engine")
	if err != nil {
		t.Fatalf("ListPendingTasks() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Type != TaskAllocationRun {
		t.Fatalf("task type = %s, want %s", pending[0].Type, TaskAllocationRun)
	}

	var payload AllocationRunPayload
	if err := json.Unmarshal(pending[0].Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal error = %v", err)
	}
	if payload.Reason != "manual" {
		t.Fatalf("reason = %s, want manual", payload.Reason)
	}
}

func TestEnqueueRetryRequeue(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(fakeSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "engine"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if err := client.EnqueueRetryRequeue(context.Background()); err != nil {
		t.Fatalf("EnqueueRetryRequeue() error = %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("engine")
	if err != nil {
		t.Fatalf("ListPendingTasks() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Type != TaskRetryRequeue {
		t.Fatalf("expected one %s task, got %d", TaskRetryRequeue, len(pending))
	}
}

func TestRedisClientOpt_RejectsBadURL(t *testing.T) {
	if _, err := redisClientOpt("not-a-url", false); err == nil {
		t.Fatal("redisClientOpt() must reject malformed url")
	}
}
