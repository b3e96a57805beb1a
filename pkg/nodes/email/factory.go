package email

import (
	"log/slog"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Factory struct {
	nodeType models.NodeType
	notifier protocol.Notifier
	logger   *slog.Logger
}

// NewFactory creates the email node factory.
func NewFactory(notifier protocol.Notifier, logger *slog.Logger) protocol.HandlerFactory {
	return &Factory{nodeType: models.NodeTypeEmail, notifier: notifier, logger: logger}
}

// NewNotifyFactory creates the same handler registered under the notify
// alias used by older template definitions.
func NewNotifyFactory(notifier protocol.Notifier, logger *slog.Logger) protocol.HandlerFactory {
	return &Factory{nodeType: models.NodeTypeNotify, notifier: notifier, logger: logger}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node, f.nodeType, f.notifier, f.logger)
}

func (f *Factory) Type() models.NodeType {
	return f.nodeType
}

func (f *Factory) Name() string {
	return "Send Email"
}

func (f *Factory) Description() string {
	return "Sends a notification with substituted subject and body. Delivery is best-effort."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{"type": "string", "minLength": 1},
			"subject":   map[string]any{"type": "string"},
			"body":      map[string]any{"type": "string"},
			"priority":  map[string]any{"type": "string", "enum": []string{"low", "normal", "high"}},
		},
		"required": []string{"recipient"},
	}
}
