package start

import (
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Factory struct{}

// NewFactory creates the start node factory.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeStart
}

func (f *Factory) Name() string {
	return "Start"
}

func (f *Factory) Description() string {
	return "Entry point of a workflow. Records the initial variables and context."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
	}
}
