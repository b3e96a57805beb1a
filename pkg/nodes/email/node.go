// Package email implements the node that sends a notification with a
// substituted subject and body.
package email

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowd-io/flowd/pkg/expression"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Config struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Priority  string `json:"priority"`
}

type Node struct {
	id       string
	nodeType models.NodeType
	config   Config
	notifier protocol.Notifier
	logger   *slog.Logger
}

// NewNode creates an email node handler. nodeType is either email or its
// notify alias.
func NewNode(node *models.Node, nodeType models.NodeType, notifier protocol.Notifier, logger *slog.Logger) (*Node, error) {
	cfg := Config{Priority: "normal"}

	recipient, ok := node.Config["recipient"].(string)
	if !ok || recipient == "" {
		return nil, errors.New("missing required field 'recipient'")
	}

	cfg.Recipient = recipient

	if v, ok := node.Config["subject"].(string); ok {
		cfg.Subject = v
	}

	if v, ok := node.Config["body"].(string); ok {
		cfg.Body = v
	}

	if v, ok := node.Config["priority"].(string); ok && v != "" {
		cfg.Priority = v
	}

	return &Node{
		id:       node.ID,
		nodeType: nodeType,
		config:   cfg,
		notifier: notifier,
		logger:   logger,
	}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return n.nodeType
}

// Execute sends the notification. Delivery failures are logged and
// swallowed; a failed send never fails the execution.
func (n *Node) Execute(ctx context.Context, ec protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	recipient := expression.Substitute(n.config.Recipient, ec.Variables, ec.Context)
	subject := expression.Substitute(n.config.Subject, ec.Variables, ec.Context)
	body := expression.Substitute(n.config.Body, ec.Variables, ec.Context)

	err := n.notifier.Send(ctx, protocol.Notification{
		Recipient: recipient,
		Type:      "email",
		Title:     subject,
		Message:   body,
		Priority:  n.config.Priority,
		Data: map[string]any{
			"execution_id": ec.ExecutionID,
			"node_id":      n.id,
		},
	})

	delivered := err == nil
	if err != nil {
		n.logger.WarnContext(ctx, "Notification delivery failed",
			"node_id", n.id, "recipient", recipient, "error", err)
	}

	return &protocol.HandlerResult{
		Output: map[string]any{
			"recipient": recipient,
			"subject":   subject,
			"delivered": delivered,
		},
	}, nil
}
