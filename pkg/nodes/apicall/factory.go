package apicall

import (
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Factory struct {
	caller protocol.HTTPCaller
}

// NewFactory creates the api_call node factory.
func NewFactory(caller protocol.HTTPCaller) protocol.HandlerFactory {
	return &Factory{caller: caller}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node, f.caller)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeAPICall
}

func (f *Factory) Name() string {
	return "API Call"
}

func (f *Factory) Description() string {
	return "Performs an outbound HTTP call with substituted URL, headers and body."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":    map[string]any{"type": "string", "minLength": 1},
			"method": map[string]any{"type": "string", "enum": []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"}},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body":    map[string]any{"type": "string"},
			"timeout": map[string]any{"type": "number", "exclusiveMinimum": 0},
		},
		"required": []string{"url"},
	}
}
