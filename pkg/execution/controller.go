// Package execution contains the engine core: the execution controller
// that owns run lifecycle transitions and the graph walker that drives
// node handlers through a template.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowd-io/flowd/pkg/eventbus"
	"github.com/flowd-io/flowd/pkg/events"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/flowd-io/flowd/pkg/registry"
)

// DefaultBackoff is the fixed retry schedule applied to failing node
// handlers. The schedule length is also the retry limit.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

const DefaultMaxConcurrent = 100

// Config tunes the controller. Zero values fall back to the defaults.
type Config struct {
	// MaxConcurrent bounds the number of in-flight executions. Starts
	// beyond the bound are reported as queued, not rejected.
	MaxConcurrent int

	// Backoff overrides the retry schedule; its length is the retry limit.
	Backoff []time.Duration
}

// StartResult reports how a start request was handled.
type StartResult struct {
	ExecutionID string                 `json:"execution_id"`
	Status      models.ExecutionStatus `json:"status"`

	// Queued is set when the engine was at capacity. The execution stays
	// pending; a later start request picks it up.
	Queued bool `json:"queued,omitempty"`
}

// Controller owns execution lifecycle transitions and drives the graph
// walker. All state transitions go through it; handlers never touch the
// execution record directly.
type Controller struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	bus         eventbus.EventPublisher
	notifier    protocol.Notifier
	tracer      trace.Tracer

	inflight *inflightRegistry
	backoff  []time.Duration
}

// NewController wires the engine core. bus and notifier may be nil;
// publishing and failure notifications are then skipped.
func NewController(
	persist persistence.Persistence,
	reg *registry.Registry,
	bus eventbus.EventPublisher,
	notifier protocol.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	backoff := cfg.Backoff
	if len(backoff) == 0 {
		backoff = DefaultBackoff
	}

	return &Controller{
		logger:      logger.With("module", "execution"),
		persistence: persist,
		registry:    reg,
		bus:         bus,
		notifier:    notifier,
		tracer:      otel.Tracer("github.com/flowd-io/flowd/pkg/execution"),
		inflight:    newInflightRegistry(maxConcurrent),
		backoff:     backoff,
	}
}

// Start moves a pending execution to running and walks the graph from the
// start node. Starting a paused execution resumes it. At capacity the
// execution stays pending and the result is marked queued.
func (c *Controller) Start(ctx context.Context, executionID string) (*StartResult, error) {
	if r, ok := c.inflight.get(executionID); ok {
		r.mu.Lock()
		status := r.execution.Status
		r.mu.Unlock()

		if status == models.ExecutionStatusPaused {
			return c.Resume(ctx, executionID)
		}

		return nil, ErrAlreadyInFlight
	}

	execution, err := c.persistence.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	switch execution.Status {
	case models.ExecutionStatusPending:
	case models.ExecutionStatusPaused:
		return c.Resume(ctx, executionID)
	default:
		return nil, &InvalidTransitionError{
			ExecutionID: executionID,
			From:        execution.Status,
			To:          models.ExecutionStatusRunning,
		}
	}

	template, err := c.persistence.TemplateRepository().TemplateByID(ctx, execution.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", execution.TemplateID, err)
	}

	startNode := template.StartNode()
	if startNode == nil {
		return nil, models.ErrNoStartNode
	}

	r := newRun(execution, template)

	added, err := c.inflight.add(executionID, r)
	if err != nil {
		r.cancel()

		return nil, err
	}

	if !added {
		r.cancel()
		c.logger.InfoContext(ctx, "Engine at capacity, execution queued",
			"execution_id", executionID, "in_flight", c.inflight.count())
		c.publish(ctx, events.ExecutionQueued{
			BaseEvent: events.NewBaseEvent(events.ExecutionQueuedEvent, executionID, execution.TemplateID),
		})

		return &StartResult{ExecutionID: executionID, Status: execution.Status, Queued: true}, nil
	}

	now := time.Now().UTC()

	r.mu.Lock()
	execution.Status = models.ExecutionStatusRunning
	execution.StartedAt = &now
	execution.CurrentStep = startNode.ID
	execution.AppendLog("info", "", "Execution started")
	c.saveLocked(ctx, execution)
	r.mu.Unlock()

	c.logger.InfoContext(ctx, "Execution started",
		"execution_id", executionID, "template_id", execution.TemplateID)
	c.publish(ctx, events.ExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent, executionID, execution.TemplateID),
		Variables: execution.Variables,
	})

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		c.processNode(r, startNode.ID)
	}()

	return &StartResult{ExecutionID: executionID, Status: models.ExecutionStatusRunning}, nil
}

// Pause moves a running execution to paused. In-flight handlers finish
// their current node; no new nodes start and pending retry timers are
// cancelled.
func (c *Controller) Pause(ctx context.Context, executionID string) error {
	r, ok := c.inflight.get(executionID)
	if !ok {
		execution, err := c.persistence.ExecutionRepository().ExecutionByID(ctx, executionID)
		if err != nil {
			return fmt.Errorf("failed to load execution %s: %w", executionID, err)
		}

		return &InvalidTransitionError{
			ExecutionID: executionID,
			From:        execution.Status,
			To:          models.ExecutionStatusPaused,
		}
	}

	r.mu.Lock()

	execution := r.execution
	if execution.Status != models.ExecutionStatusRunning {
		from := execution.Status
		r.mu.Unlock()

		return &InvalidTransitionError{
			ExecutionID: executionID,
			From:        from,
			To:          models.ExecutionStatusPaused,
		}
	}

	execution.Status = models.ExecutionStatusPaused
	execution.AppendLog("info", "", "Execution paused at %s", execution.CurrentStep)
	r.cancelRetriesLocked()
	c.saveLocked(ctx, execution)
	currentStep := execution.CurrentStep
	r.mu.Unlock()

	c.logger.InfoContext(ctx, "Execution paused",
		"execution_id", executionID, "current_step", currentStep)
	c.publish(ctx, events.ExecutionPaused{
		BaseEvent:   events.NewBaseEvent(events.ExecutionPausedEvent, executionID, execution.TemplateID),
		CurrentStep: currentStep,
	})

	return nil
}

// Resume moves a paused execution back to running and re-enters the graph
// at currentStep. A step completed during the pause (an answered approval)
// is not re-run; the walk continues from its outgoing edges. A paused
// execution that left the in-flight registry (process restart) is reloaded
// from the store, subject to capacity.
func (c *Controller) Resume(ctx context.Context, executionID string) (*StartResult, error) {
	r, ok := c.inflight.get(executionID)
	if !ok {
		execution, err := c.persistence.ExecutionRepository().ExecutionByID(ctx, executionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution %s: %w", executionID, err)
		}

		if execution.Status != models.ExecutionStatusPaused {
			return nil, &InvalidTransitionError{
				ExecutionID: executionID,
				From:        execution.Status,
				To:          models.ExecutionStatusRunning,
			}
		}

		template, err := c.persistence.TemplateRepository().TemplateByID(ctx, execution.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", execution.TemplateID, err)
		}

		r = newRun(execution, template)

		added, err := c.inflight.add(executionID, r)
		if err != nil {
			r.cancel()

			return nil, err
		}

		if !added {
			r.cancel()
			c.publish(ctx, events.ExecutionQueued{
				BaseEvent: events.NewBaseEvent(events.ExecutionQueuedEvent, executionID, execution.TemplateID),
			})

			return &StartResult{ExecutionID: executionID, Status: execution.Status, Queued: true}, nil
		}
	}

	r.mu.Lock()

	execution := r.execution
	if execution.Status != models.ExecutionStatusPaused {
		from := execution.Status
		r.mu.Unlock()

		return nil, &InvalidTransitionError{
			ExecutionID: executionID,
			From:        from,
			To:          models.ExecutionStatusRunning,
		}
	}

	execution.Status = models.ExecutionStatusRunning
	execution.AppendLog("info", "", "Execution resumed at %s", execution.CurrentStep)
	c.saveLocked(ctx, execution)
	currentStep := execution.CurrentStep

	// An approval answered during the pause already completed the step and
	// deferred the walk. Continue past the node instead of re-running its
	// handler, which would reopen the finished step.
	var continueFrom *models.Node
	if step := execution.StepByNode(currentStep); step != nil && step.Status == models.StepStatusCompleted {
		continueFrom = r.template.NodeByID(currentStep)
	}
	r.mu.Unlock()

	c.logger.InfoContext(ctx, "Execution resumed",
		"execution_id", executionID, "current_step", currentStep)
	c.publish(ctx, events.ExecutionResumed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionResumedEvent, executionID, execution.TemplateID),
		CurrentStep: currentStep,
	})

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		if continueFrom != nil {
			c.processNextNodes(r, continueFrom)

			return
		}

		c.processNode(r, currentStep)
	}()

	return &StartResult{ExecutionID: executionID, Status: models.ExecutionStatusRunning}, nil
}

// Cancel moves any non-terminal execution to cancelled. Cancellation is
// cooperative: running handlers observe their context and step
// transitions arriving afterwards are dropped.
func (c *Controller) Cancel(ctx context.Context, executionID string) error {
	if r, ok := c.inflight.get(executionID); ok {
		r.mu.Lock()

		execution := r.execution
		if execution.Status.IsTerminal() {
			from := execution.Status
			r.mu.Unlock()

			return &InvalidTransitionError{
				ExecutionID: executionID,
				From:        from,
				To:          models.ExecutionStatusCancelled,
			}
		}

		now := time.Now().UTC()
		execution.Status = models.ExecutionStatusCancelled
		execution.CompletedAt = &now
		execution.AppendLog("info", "", "Execution cancelled")
		r.cancelRetriesLocked()
		c.saveLocked(ctx, execution)
		r.mu.Unlock()

		r.cancel()
		c.inflight.remove(executionID)
		c.logger.InfoContext(ctx, "Execution cancelled", "execution_id", executionID)
		c.publish(ctx, events.ExecutionCancelled{
			BaseEvent: events.NewBaseEvent(events.ExecutionCancelledEvent, executionID, execution.TemplateID),
		})

		return nil
	}

	execution, err := c.persistence.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	if execution.Status.IsTerminal() {
		return &InvalidTransitionError{
			ExecutionID: executionID,
			From:        execution.Status,
			To:          models.ExecutionStatusCancelled,
		}
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCancelled
	execution.CompletedAt = &now
	execution.AppendLog("info", "", "Execution cancelled")
	c.saveLocked(ctx, execution)
	c.publish(ctx, events.ExecutionCancelled{
		BaseEvent: events.NewBaseEvent(events.ExecutionCancelledEvent, executionID, execution.TemplateID),
	})

	return nil
}

// Status returns a point-in-time copy of the execution, preferring the
// in-flight state over the store.
func (c *Controller) Status(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	if r, ok := c.inflight.get(executionID); ok {
		r.mu.Lock()
		clone := r.execution.Clone()
		r.mu.Unlock()

		return clone, nil
	}

	execution, err := c.persistence.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", executionID, err)
	}

	return execution, nil
}

// RespondApproval records an approval decision for a parked step and
// continues the walk past it. The decision lands in the execution context
// as "<nodeID>_approved" so downstream edge conditions can branch on it.
func (c *Controller) RespondApproval(ctx context.Context, executionID, nodeID string, approved bool, comment string) error {
	r, ok := c.inflight.get(executionID)
	if !ok {
		// The run left memory (restart) while the step stayed parked.
		// Reattach outside the capacity gate so it can always finish.
		execution, err := c.persistence.ExecutionRepository().ExecutionByID(ctx, executionID)
		if err != nil {
			return fmt.Errorf("failed to load execution %s: %w", executionID, err)
		}

		template, err := c.persistence.TemplateRepository().TemplateByID(ctx, execution.TemplateID)
		if err != nil {
			return fmt.Errorf("failed to load template %s: %w", execution.TemplateID, err)
		}

		r = newRun(execution, template)
		if err := c.inflight.attach(executionID, r); err != nil {
			r.cancel()
			// Lost the race to a concurrent attach; use the winner.
			r, ok = c.inflight.get(executionID)
			if !ok {
				return err
			}
		}
	}

	r.mu.Lock()

	execution := r.execution
	if execution.Status.IsTerminal() {
		from := execution.Status
		r.mu.Unlock()

		return &InvalidTransitionError{
			ExecutionID: executionID,
			From:        from,
			To:          models.ExecutionStatusRunning,
		}
	}

	step := execution.StepByNode(nodeID)
	if step == nil || step.Status != models.StepStatusWaitingApproval {
		r.mu.Unlock()

		return fmt.Errorf("execution %s node %s: %w", executionID, nodeID, ErrNotWaitingApproval)
	}

	now := time.Now().UTC()
	step.Status = models.StepStatusCompleted
	step.CompletedAt = &now

	if step.Output == nil {
		step.Output = make(map[string]any)
	}

	step.Output["approved"] = approved
	execution.Context[nodeID+"_approved"] = approved

	if comment != "" {
		step.Output["comment"] = comment
		execution.Context[nodeID+"_comment"] = comment
	}

	decision := "rejected"
	if approved {
		decision = "approved"
	}

	execution.AppendLog("info", nodeID, "Approval %s", decision)
	execution.RecomputeProgress()
	c.saveLocked(ctx, execution)
	proceed := execution.Status == models.ExecutionStatusRunning
	r.mu.Unlock()

	c.logger.InfoContext(ctx, "Approval recorded",
		"execution_id", executionID, "node_id", nodeID, "approved", approved)
	c.publish(ctx, events.ApprovalResponded{
		BaseEvent: events.NewBaseEvent(events.ApprovalRespondedEvent, executionID, execution.TemplateID),
		NodeID:    nodeID,
		Approved:  approved,
		Comment:   comment,
	})

	if !proceed {
		return nil
	}

	node := r.template.NodeByID(nodeID)
	if node == nil {
		return fmt.Errorf("node %s not found in template %s", nodeID, execution.TemplateID)
	}

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		c.processNextNodes(r, node)
	}()

	return nil
}

// InFlight returns the number of currently registered runs.
func (c *Controller) InFlight() int {
	return c.inflight.count()
}

// Wait blocks until every branch goroutine of the execution has returned.
// Intended for tests and graceful shutdown.
func (c *Controller) Wait(executionID string) {
	if r, ok := c.inflight.get(executionID); ok {
		r.wg.Wait()
	}
}

// saveLocked persists the execution under the run mutex. Persistence
// failures are logged, not propagated: the in-memory state is
// authoritative for the rest of the run.
func (c *Controller) saveLocked(ctx context.Context, execution *models.WorkflowExecution) {
	if err := c.persistence.ExecutionRepository().UpdateExecution(context.WithoutCancel(ctx), execution); err != nil {
		c.logger.ErrorContext(ctx, "Failed to persist execution",
			"execution_id", execution.ID, "error", err)
	}
}

func (c *Controller) publish(ctx context.Context, event eventbus.Event) {
	if c.bus == nil {
		return
	}

	if err := c.bus.Publish(context.WithoutCancel(ctx), "", event); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
