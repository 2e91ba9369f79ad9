package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	allocservice "callops_backend/internal/allocation/service"
	taskservice "callops_backend/internal/tasks/service"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	client     *Client
	allocation *allocservice.Service
	tasks      *taskservice.Service
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, allocation *allocservice.Service, tasks *taskservice.Service, client *Client, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		client:     client,
		allocation: allocation,
		tasks:      tasks,
		log:        log,
	}

	mux.HandleFunc(TaskAllocationRun, w.handleAllocationRun)
	mux.HandleFunc(TaskRetryRequeue, w.handleRetryRequeue)

	return w, nil
}

func (w *Worker) handleAllocationRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAllocationRunPayload(task)
	if err != nil {
		return err
	}

	result, err := w.allocation.Run(ctx)
	if err != nil {
		w.log.Error("allocation pass failed", "reason", payload.Reason, "error", err)
		return err
	}

	if result.Considered > 0 {
		w.log.Info("allocation pass finished",
			"reason", payload.Reason,
			"runId", result.RunID,
			"considered", result.Considered,
			"assigned", result.Assigned,
			"unallocatable", result.Unallocatable,
		)
	}
	return nil
}

// handleRetryRequeue moves retryable tasks back into the queue, then
// triggers an allocation pass so they get picked up immediately.
func (w *Worker) handleRetryRequeue(ctx context.Context, _ *asynq.Task) error {
	requeued, err := w.tasks.RequeueRetryable(ctx)
	if err != nil {
		w.log.Error("retry requeue failed", "error", err)
		return err
	}
	if requeued == 0 {
		return nil
	}

	if w.client != nil {
		if err := w.client.EnqueueAllocationRun(ctx, "retry_requeue"); err != nil {
			w.log.Warn("failed to enqueue allocation pass after requeue", "error", err)
		}
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
