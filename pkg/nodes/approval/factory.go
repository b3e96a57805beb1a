package approval

import (
	"log/slog"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Factory struct {
	notifier protocol.Notifier
	logger   *slog.Logger
}

// NewFactory creates the approval node factory.
func NewFactory(notifier protocol.Notifier, logger *slog.Logger) protocol.HandlerFactory {
	return &Factory{notifier: notifier, logger: logger}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node, f.notifier, f.logger)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeApproval
}

func (f *Factory) Name() string {
	return "Approval"
}

func (f *Factory) Description() string {
	return "Parks the branch in waiting_approval until an approval response event resumes it."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"approver": map[string]any{"type": "string", "minLength": 1},
			"message":  map[string]any{"type": "string"},
		},
		"required": []string{"approver"},
	}
}
