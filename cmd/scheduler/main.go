package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	agentrepo "callops_backend/internal/agents/repository"
	allocrepo "callops_backend/internal/allocation/repository"
	allocservice "callops_backend/internal/allocation/service"
	"callops_backend/internal/cooling"
	"callops_backend/internal/events"
	"callops_backend/internal/notification"
	"callops_backend/internal/scheduler"
	taskrepo "callops_backend/internal/tasks/repository"
	taskservice "callops_backend/internal/tasks/service"
	"callops_backend/platform/config"
	"callops_backend/platform/db"
	"callops_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	// Gap alerts fire from worker-side allocation passes too.
	notification.New(cfg, eventBus, log)

	// Worker-side engine wiring (no HTTP handlers required).
	coolingRepo := cooling.New(pool)
	taskRepo := taskrepo.New(pool)
	taskSvc := taskservice.New(taskRepo, coolingRepo, cfg, eventBus, log)
	allocSvc := allocservice.New(allocrepo.New(pool), taskRepo, agentrepo.New(pool), eventBus, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	allocEvery := getDurationEnv("ALLOCATION_RUN_INTERVAL", 5*time.Minute)
	requeueEvery := getDurationEnv("RETRY_REQUEUE_INTERVAL", time.Hour)
	dispatcher := scheduler.NewPeriodicDispatcher(client, allocEvery, requeueEvery, log)
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, allocSvc, taskSvc, client, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
