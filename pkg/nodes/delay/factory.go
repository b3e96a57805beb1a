package delay

import (
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Factory struct{}

// NewFactory creates the delay node factory.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeDelay
}

func (f *Factory) Name() string {
	return "Delay"
}

func (f *Factory) Description() string {
	return "Suspends the current branch for a configured duration without polling."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"description": "Seconds (number) or a duration string such as \"90s\" or \"5m\".",
				"oneOf": []map[string]any{
					{"type": "number", "exclusiveMinimum": 0},
					{"type": "string", "minLength": 2},
				},
			},
		},
		"required": []string{"duration"},
	}
}
