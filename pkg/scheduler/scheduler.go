// Package scheduler starts executions on cron schedules. Each schedule
// binds a template id and a fixed set of inputs; a tick creates a fresh
// execution and starts it.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/flowd-io/flowd/pkg/execution"
	"github.com/flowd-io/flowd/pkg/models"
)

// Schedule is one recurring launch definition.
type Schedule struct {
	Name       string         `json:"name"       validate:"required"`
	TemplateID string         `json:"template_id" validate:"required"`
	CronExpr   string         `json:"cron"       validate:"required"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	Enabled    bool           `json:"enabled"`
}

// ExecutionCreator creates a pending execution from a template; the
// services layer provides it.
type ExecutionCreator interface {
	CreateExecution(ctx context.Context, templateID string, inputs map[string]any) (*models.WorkflowExecution, error)
}

// Starter moves a pending execution to running.
type Starter interface {
	Start(ctx context.Context, executionID string) (*execution.StartResult, error)
}

// Scheduler drives cron-based execution launches.
type Scheduler struct {
	creator ExecutionCreator
	starter Starter
	logger  *slog.Logger

	cron   *cron.Cron
	mu     sync.Mutex
	jobs   map[string]cron.EntryID
	runCtx context.Context
}

func NewScheduler(creator ExecutionCreator, starter Starter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		creator: creator,
		starter: starter,
		logger:  logger.With("module", "scheduler"),
		cron:    cron.New(),
		jobs:    make(map[string]cron.EntryID),
	}
}

// Add registers a schedule. The cron expression is validated before the
// job is armed; disabled schedules are accepted but not armed.
func (s *Scheduler) Add(schedule Schedule) error {
	if schedule.Name == "" {
		return fmt.Errorf("schedule name is required")
	}

	if _, err := cron.ParseStandard(schedule.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q for schedule %s: %w", schedule.CronExpr, schedule.Name, err)
	}

	if !schedule.Enabled {
		s.logger.Info("Schedule disabled, skipping", "schedule", schedule.Name)

		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[schedule.Name]; ok {
		s.cron.Remove(existing)
	}

	entryID, err := s.cron.AddFunc(schedule.CronExpr, func() {
		s.fire(schedule)
	})
	if err != nil {
		return fmt.Errorf("failed to register schedule %s: %w", schedule.Name, err)
	}

	s.jobs[schedule.Name] = entryID
	s.logger.Info("Schedule registered",
		"schedule", schedule.Name, "template_id", schedule.TemplateID, "cron", schedule.CronExpr)

	return nil
}

// Remove unregisters a schedule by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
	}
}

// Start arms the cron loop. ctx bounds the work done by ticks.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "schedules", len(s.jobs))
}

// Stop halts the cron loop and waits for running ticks.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) fire(schedule Schedule) {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	exec, err := s.creator.CreateExecution(ctx, schedule.TemplateID, schedule.Inputs)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create scheduled execution",
			"schedule", schedule.Name, "template_id", schedule.TemplateID, "error", err)

		return
	}

	result, err := s.starter.Start(ctx, exec.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to start scheduled execution",
			"schedule", schedule.Name, "execution_id", exec.ID, "error", err)

		return
	}

	s.logger.InfoContext(ctx, "Scheduled execution launched",
		"schedule", schedule.Name, "execution_id", exec.ID, "queued", result.Queued)
}
