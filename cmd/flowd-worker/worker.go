// Package main provides the Flowd worker: an event-bus driven engine
// process with optional Redis queue and cron schedule inputs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowd-io/flowd/pkg/eventbus"
	"github.com/flowd-io/flowd/pkg/events"
	"github.com/flowd-io/flowd/pkg/execution"
	"github.com/flowd-io/flowd/pkg/notify"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/flowd-io/flowd/pkg/queue"
	"github.com/flowd-io/flowd/pkg/registry"
	"github.com/flowd-io/flowd/pkg/scheduler"
	"github.com/flowd-io/flowd/pkg/services"
)

type WorkerConfig struct {
	RedisURL      string
	SchedulesFile string
	Engine        execution.Config
}

type Worker struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	registry    *registry.Registry
	config      WorkerConfig

	controller *execution.Controller
}

func NewWorker(
	id string,
	persist persistence.Persistence,
	eventBus eventbus.EventBus,
	reg *registry.Registry,
	logger *slog.Logger,
	config WorkerConfig,
) *Worker {
	notifier := notify.NewEventBusNotifier(eventBus, logger)

	return &Worker{
		id:          id,
		logger:      logger,
		persistence: persist,
		eventBus:    eventBus,
		registry:    reg,
		config:      config,
		controller:  execution.NewController(persist, reg, eventBus, notifier, logger, config.Engine),
	}
}

// Run wires the event bus handler, the optional queue consumer and the
// optional scheduler, then blocks until SIGINT/SIGTERM.
func (w *Worker) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.eventBus.Handle(events.ExecutionStartRequestedEvent, w.handleStartRequested); err != nil {
		return fmt.Errorf("failed to register start handler: %w", err)
	}

	if err := w.eventBus.Subscribe(runCtx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	if w.config.RedisURL != "" {
		consumer, err := queue.NewConsumer(runCtx, w.config.RedisURL, "", w.controller, w.logger)
		if err != nil {
			return fmt.Errorf("failed to create queue consumer: %w", err)
		}

		consumer.Start(runCtx)

		defer func() {
			if err := consumer.Stop(); err != nil {
				w.logger.Error("Failed to stop queue consumer", "error", err)
			}
		}()
	}

	if w.config.SchedulesFile != "" {
		sched, err := w.buildScheduler()
		if err != nil {
			return err
		}

		sched.Start(runCtx)
		defer sched.Stop()
	}

	w.logger.InfoContext(runCtx, "Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-runCtx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker")

	return nil
}

func (w *Worker) handleStartRequested(ctx context.Context, event any) error {
	request, ok := event.(*events.ExecutionStartRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ExecutionStartRequested")

		return nil
	}

	logger := w.logger.With("execution_id", request.ExecutionID, "event_id", request.ID)
	logger.InfoContext(ctx, "Processing start request")

	result, err := w.controller.Start(ctx, request.ExecutionID)
	if err != nil {
		if errors.Is(err, execution.ErrAlreadyInFlight) || execution.IsInvalidTransition(err) {
			logger.WarnContext(ctx, "Start request dropped", "error", err)

			return nil
		}

		logger.ErrorContext(ctx, "Failed to start execution", "error", err)

		return err
	}

	if result.Queued {
		logger.InfoContext(ctx, "Execution queued, engine at capacity")
	}

	return nil
}

func (w *Worker) buildScheduler() (*scheduler.Scheduler, error) {
	data, err := os.ReadFile(w.config.SchedulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules file: %w", err)
	}

	var schedules []scheduler.Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("failed to parse schedules file: %w", err)
	}

	creator := services.NewExecution(w.persistence)
	sched := scheduler.NewScheduler(creator, w.controller, w.logger)

	for _, schedule := range schedules {
		if err := sched.Add(schedule); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
