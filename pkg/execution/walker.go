package execution

import (
	"maps"
	"time"

	"github.com/flowd-io/flowd/pkg/events"
	"github.com/flowd-io/flowd/pkg/expression"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/otelhelper"
	"github.com/flowd-io/flowd/pkg/protocol"
)

// processNode runs one node: mark the step running, dispatch its handler,
// record the outcome and walk the outgoing edges. Handler failures go to
// the retry path instead of propagating up the branch.
func (c *Controller) processNode(r *run, nodeID string) {
	if r.ctx.Err() != nil {
		return
	}

	node := r.template.NodeByID(nodeID)
	if node == nil {
		c.logger.Error("Node not found in template, branch dropped",
			"execution_id", r.execution.ID, "node_id", nodeID)

		return
	}

	ctx, span := otelhelper.StartSpan(r.ctx, c.tracer, "node.execute",
		otelhelper.ExecutionIDKey.String(r.execution.ID),
		otelhelper.NodeIDKey.String(nodeID),
		otelhelper.NodeTypeKey.String(string(node.Type)),
	)
	defer span.End()

	r.mu.Lock()

	execution := r.execution
	if execution.Status != models.ExecutionStatusRunning {
		r.mu.Unlock()

		return
	}

	step := execution.StepByNode(nodeID)
	if step == nil {
		r.mu.Unlock()
		c.logger.Error("Step missing for node", "execution_id", execution.ID, "node_id", nodeID)

		return
	}

	now := time.Now().UTC()
	step.Status = models.StepStatusRunning

	if step.StartedAt == nil {
		step.StartedAt = &now
	}

	step.Input, _ = expression.SubstituteValue(node.Config, execution.Variables, execution.Context).(map[string]any)
	execution.CurrentStep = nodeID
	execution.AppendLog("info", nodeID, "Executing %s node", node.Type)
	snapshot := snapshotLocked(execution)
	c.saveLocked(ctx, execution)
	r.mu.Unlock()

	handler, err := c.registry.CreateHandler(node)
	if err != nil {
		otelhelper.SetError(span, err, otelhelper.NodeIDKey.String(nodeID))
		c.handleFailure(r, node, err)

		return
	}

	result, err := handler.Execute(ctx, snapshot)
	if err != nil {
		if r.ctx.Err() != nil {
			return
		}

		otelhelper.SetError(span, err, otelhelper.NodeIDKey.String(nodeID))
		c.handleFailure(r, node, err)

		return
	}

	r.mu.Lock()

	if execution.Status.IsTerminal() {
		r.mu.Unlock()

		return
	}

	if result.Waiting {
		step.Status = models.StepStatusWaitingApproval
		step.Output = result.Output
		maps.Copy(execution.Context, result.Context)
		execution.AppendLog("info", nodeID, "Waiting for approval")
		c.saveLocked(ctx, execution)
		r.mu.Unlock()

		approver, _ := result.Output["approver"].(string)
		c.publish(ctx, events.ApprovalRequested{
			BaseEvent: events.NewBaseEvent(events.ApprovalRequestedEvent, execution.ID, execution.TemplateID),
			NodeID:    nodeID,
			Approver:  approver,
		})

		return
	}

	completedAt := time.Now().UTC()
	step.Status = models.StepStatusCompleted
	step.CompletedAt = &completedAt
	step.Output = result.Output
	step.Error = ""
	maps.Copy(execution.Context, result.Context)
	execution.RecomputeProgress()
	execution.AppendLog("info", nodeID, "Step completed")
	proceed := execution.Status == models.ExecutionStatusRunning
	c.saveLocked(ctx, execution)

	var durationMs int64
	if step.StartedAt != nil {
		durationMs = completedAt.Sub(*step.StartedAt).Milliseconds()
	}

	r.mu.Unlock()

	c.publish(ctx, events.StepCompleted{
		BaseEvent:  events.NewBaseEvent(events.StepCompletedEvent, execution.ID, execution.TemplateID),
		NodeID:     nodeID,
		Output:     result.Output,
		DurationMs: durationMs,
	})

	if node.Type == models.NodeTypeEnd {
		c.completeRun(r)

		return
	}

	// A pause that landed while the handler ran lets the step finish but
	// stops the walk here; resume re-enters at currentStep.
	if proceed {
		c.processNextNodes(r, node)
	}
}

// processNextNodes evaluates the outgoing edge conditions and walks every
// matching target. Edges are not mutually exclusive: multiple true
// conditions fan the branch out into concurrent goroutines.
func (c *Controller) processNextNodes(r *run, node *models.Node) {
	r.mu.Lock()
	variables := maps.Clone(r.execution.Variables)
	contextMap := maps.Clone(r.execution.Context)
	r.mu.Unlock()

	var targets []string

	for _, conn := range r.template.OutgoingConnections(node.ID) {
		if conn.Condition != "" && !expression.Evaluate(conn.Condition, variables, contextMap) {
			continue
		}

		targets = append(targets, conn.Target)
	}

	if len(targets) == 0 {
		return
	}

	for _, target := range targets[1:] {
		r.wg.Add(1)

		go func(id string) {
			defer r.wg.Done()
			c.processNode(r, id)
		}(target)
	}

	c.processNode(r, targets[0])
}

// handleFailure routes a handler error to a deferred retry while schedule
// slots remain, and fails the step and the run once they are exhausted.
func (c *Controller) handleFailure(r *run, node *models.Node, cause error) {
	nodeErr := &NodeError{NodeID: node.ID, NodeType: node.Type, Err: cause}

	r.mu.Lock()

	execution := r.execution
	step := execution.StepByNode(node.ID)

	if execution.Status != models.ExecutionStatusRunning || step == nil {
		r.mu.Unlock()

		return
	}

	if step.RetryCount < len(c.backoff) {
		delay := c.backoff[step.RetryCount]
		step.RetryCount++
		step.Status = models.StepStatusPending
		step.Error = nodeErr.Error()
		execution.AppendError(node.ID, nodeErr.Error())
		execution.AppendLog("warn", node.ID, "Step failed (attempt %d/%d), retrying in %s",
			step.RetryCount, len(c.backoff), delay)
		c.saveLocked(r.ctx, execution)
		r.scheduleRetryLocked(node.ID, delay, func() {
			c.retryNode(r, node.ID)
		})
		r.mu.Unlock()

		c.logger.Warn("Node failed, retry scheduled",
			"execution_id", execution.ID, "node_id", node.ID,
			"attempt", step.RetryCount, "delay", delay, "error", cause)

		return
	}

	now := time.Now().UTC()
	step.Status = models.StepStatusFailed
	step.CompletedAt = &now
	step.Error = nodeErr.Error()
	execution.AppendError(node.ID, nodeErr.Error())
	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &now
	execution.RecomputeProgress()
	execution.AppendLog("error", node.ID, "Step failed permanently after %d retries", step.RetryCount)
	r.cancelRetriesLocked()
	c.saveLocked(r.ctx, execution)
	r.mu.Unlock()

	c.logger.Error("Execution failed",
		"execution_id", execution.ID, "node_id", node.ID, "error", cause)
	c.publish(r.ctx, events.ExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, execution.ID, execution.TemplateID),
		NodeID:    node.ID,
		Error:     nodeErr.Error(),
	})
	c.notifyFailure(r, node, nodeErr)
	c.inflight.remove(execution.ID)
	r.cancel()
}

// retryNode is the deferred re-entry armed by handleFailure.
func (c *Controller) retryNode(r *run, nodeID string) {
	r.clearRetry(nodeID)

	if r.ctx.Err() != nil {
		return
	}

	r.wg.Add(1)
	defer r.wg.Done()

	c.processNode(r, nodeID)
}

// completeRun is the single path to the completed status, reached only
// through an end node's handler.
func (c *Controller) completeRun(r *run) {
	r.mu.Lock()

	execution := r.execution
	if execution.Status.IsTerminal() {
		r.mu.Unlock()

		return
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	execution.RecomputeProgress()
	execution.AppendLog("info", "", "Execution completed in %s", execution.Duration())
	r.cancelRetriesLocked()
	c.saveLocked(r.ctx, execution)
	completedSteps := execution.Progress.CompletedSteps
	r.mu.Unlock()

	c.logger.Info("Execution completed",
		"execution_id", execution.ID, "duration", execution.Duration())
	c.publish(r.ctx, events.ExecutionCompleted{
		BaseEvent:      events.NewBaseEvent(events.ExecutionCompletedEvent, execution.ID, execution.TemplateID),
		DurationMs:     execution.Duration().Milliseconds(),
		CompletedSteps: completedSteps,
	})
	c.inflight.remove(execution.ID)
	r.cancel()
}

func (c *Controller) notifyFailure(r *run, node *models.Node, nodeErr *NodeError) {
	if c.notifier == nil {
		return
	}

	notification := protocol.Notification{
		Type:     "execution_failed",
		Title:    "Workflow execution failed",
		Message:  nodeErr.Error(),
		Priority: "high",
		Data: map[string]any{
			"execution_id": r.execution.ID,
			"template_id":  r.execution.TemplateID,
			"node_id":      node.ID,
		},
	}

	if err := c.notifier.Send(r.ctx, notification); err != nil {
		c.logger.Warn("Failed to send failure notification",
			"execution_id", r.execution.ID, "error", err)
	}
}
