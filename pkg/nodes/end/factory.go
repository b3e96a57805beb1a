package end

import (
	"log/slog"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Factory struct {
	notifier protocol.Notifier
	logger   *slog.Logger
}

// NewFactory creates the end node factory.
func NewFactory(notifier protocol.Notifier, logger *slog.Logger) protocol.HandlerFactory {
	return &Factory{notifier: notifier, logger: logger}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node, f.notifier, f.logger)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeEnd
}

func (f *Factory) Name() string {
	return "End"
}

func (f *Factory) Description() string {
	return "Finalizes the run, stamps the duration and sends a completion notification."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"notify": map[string]any{"type": "string"},
		},
	}
}
