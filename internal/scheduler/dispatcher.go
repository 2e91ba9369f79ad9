package scheduler

import (
	"context"
	"time"

	"callops_backend/platform/logger"
)

// PeriodicDispatcher enqueues the recurring engine jobs: allocation
// passes and retry-requeue sweeps.
type PeriodicDispatcher struct {
	client       *Client
	allocEvery   time.Duration
	requeueEvery time.Duration
	log          *logger.Logger
}

func NewPeriodicDispatcher(client *Client, allocEvery, requeueEvery time.Duration, log *logger.Logger) *PeriodicDispatcher {
	if allocEvery <= 0 {
		allocEvery = 5 * time.Minute
	}
	if requeueEvery <= 0 {
		requeueEvery = time.Hour
	}
	return &PeriodicDispatcher{
		client:       client,
		allocEvery:   allocEvery,
		requeueEvery: requeueEvery,
		log:          log,
	}
}

func (d *PeriodicDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	allocTicker := time.NewTicker(d.allocEvery)
	defer allocTicker.Stop()
	requeueTicker := time.NewTicker(d.requeueEvery)
	defer requeueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-allocTicker.C:
			if err := d.client.EnqueueAllocationRun(ctx, "periodic"); err != nil {
				d.log.Warn("failed to enqueue allocation pass", "error", err)
			}
		case <-requeueTicker.C:
			if err := d.client.EnqueueRetryRequeue(ctx); err != nil {
				d.log.Warn("failed to enqueue retry requeue", "error", err)
			}
		}
	}
}
