package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/flowd-io/flowd/pkg/cmd"
	"github.com/flowd-io/flowd/pkg/execution"
	"github.com/flowd-io/flowd/pkg/log"
	"github.com/flowd-io/flowd/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "flowd-worker",
		Usage:                 "Run the execution engine off the event bus",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the queued start consumer (disabled when empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "schedules-file",
				Usage:   "JSON file with cron schedules to launch executions from",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULES_FILE"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-executions",
				Usage:   "Upper bound on in-flight executions",
				Value:   execution.DefaultMaxConcurrent,
				Sources: cli.EnvVars("MAX_CONCURRENT_EXECUTIONS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("flowd-worker").With("worker_id", workerID)
			logger.InfoContext(ctx, "Initializing Flowd Worker")

			tracerProvider, err := otelhelper.NewTracerProvider(ctx, "flowd-worker")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "flowd-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persist := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persist.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			reg := cmd.NewRegistry(eventBus, logger)

			worker := NewWorker(workerID, persist, eventBus, reg, logger, WorkerConfig{
				RedisURL:      command.String("redis-url"),
				SchedulesFile: command.String("schedules-file"),
				Engine: execution.Config{
					MaxConcurrent: command.Int("max-concurrent-executions"),
				},
			})

			return worker.Run(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("flowd-worker").Error("Failed to run flowd-worker", "error", err)
		os.Exit(1)
	}
}
