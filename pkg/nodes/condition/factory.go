package condition

import (
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Factory struct{}

// NewFactory creates the condition node factory.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeCondition
}

func (f *Factory) Name() string {
	return "Condition"
}

func (f *Factory) Description() string {
	return "Evaluates a binary expression and records the boolean result in the execution context."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Binary condition using one of ==, !=, >, <. Supports {{variable}} substitution.",
				"examples": []string{
					"{{status}} == approved",
					"{{count}} > 10",
				},
			},
		},
		"required": []string{"expression"},
	}
}
