// Package end implements the terminal node that finalizes a run.
package end

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Node struct {
	id       string
	notify   string
	notifier protocol.Notifier
	logger   *slog.Logger
}

// NewNode creates an end node handler. The optional notify config names
// the recipient of the completion notification.
func NewNode(node *models.Node, notifier protocol.Notifier, logger *slog.Logger) (*Node, error) {
	notify, _ := node.Config["notify"].(string)

	return &Node{
		id:       node.ID,
		notify:   notify,
		notifier: notifier,
		logger:   logger,
	}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeEnd
}

// Execute stamps the run duration and sends a best-effort completion
// notification. The graph walker marks the execution completed when an end
// node's step finishes; this is the only completion path.
func (n *Node) Execute(ctx context.Context, ec protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	duration := time.Since(ec.StartedAt)

	if n.notify != "" {
		err := n.notifier.Send(ctx, protocol.Notification{
			Recipient: n.notify,
			Type:      "workflow_completed",
			Title:     "Workflow completed",
			Message:   fmt.Sprintf("Execution %s finished in %s", ec.ExecutionID, duration.Round(time.Millisecond)),
			Priority:  "normal",
			Data: map[string]any{
				"execution_id": ec.ExecutionID,
				"duration_ms":  duration.Milliseconds(),
			},
		})
		if err != nil {
			n.logger.WarnContext(ctx, "Completion notification failed",
				"node_id", n.id, "recipient", n.notify, "error", err)
		}
	}

	return &protocol.HandlerResult{
		Output: map[string]any{
			"duration_ms": duration.Milliseconds(),
		},
	}, nil
}
