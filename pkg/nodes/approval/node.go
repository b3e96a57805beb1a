// Package approval implements the node that parks its branch until an
// external approval response arrives.
package approval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowd-io/flowd/pkg/expression"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Node struct {
	id       string
	approver string
	message  string
	notifier protocol.Notifier
	logger   *slog.Logger
}

// NewNode creates an approval node handler.
func NewNode(node *models.Node, notifier protocol.Notifier, logger *slog.Logger) (*Node, error) {
	approver, ok := node.Config["approver"].(string)
	if !ok || approver == "" {
		return nil, errors.New("missing required field 'approver'")
	}

	message, _ := node.Config["message"].(string)

	return &Node{
		id:       node.ID,
		approver: approver,
		message:  message,
		notifier: notifier,
		logger:   logger,
	}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeApproval
}

// Execute assigns the approver, requests the approval and returns a
// waiting result. The branch resumes only when an approval response event
// re-enters the graph walker; there is no built-in timeout, so the wait is
// indefinite unless the surrounding system enforces one.
func (n *Node) Execute(ctx context.Context, ec protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	approver := expression.Substitute(n.approver, ec.Variables, ec.Context)
	message := expression.Substitute(n.message, ec.Variables, ec.Context)

	err := n.notifier.Send(ctx, protocol.Notification{
		Recipient: approver,
		Type:      "approval_request",
		Title:     "Approval required",
		Message:   message,
		Priority:  "high",
		Data: map[string]any{
			"execution_id": ec.ExecutionID,
			"node_id":      n.id,
		},
	})
	if err != nil {
		n.logger.WarnContext(ctx, "Approval notification failed",
			"node_id", n.id, "approver", approver, "error", err)
	}

	return &protocol.HandlerResult{
		Output: map[string]any{
			"approver": approver,
		},
		Context: map[string]any{
			n.id + "_approver": approver,
		},
		Waiting: true,
	}, nil
}
