// Package registry provides the lookup table of node handler factories,
// keyed by node type.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry maps node types to their handler factories.
type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeType]protocol.HandlerFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.NodeType]protocol.HandlerFactory),
	}
}

// RegisterHandler adds a factory, replacing any previous registration for
// the same type.
func (r *Registry) RegisterHandler(factory protocol.HandlerFactory) {
	r.factories[factory.Type()] = factory
}

// CreateHandler builds a handler for the node, parsing its config.
func (r *Registry) CreateHandler(node *models.Node) (protocol.NodeHandler, error) {
	factory, ok := r.factories[node.Type]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", node.Type)
	}

	return factory.Create(node)
}

// HandlerTypes returns the registered node types.
func (r *Registry) HandlerTypes() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}

	return types
}

// Schema returns the config schema for a node type.
func (r *Registry) Schema(nodeType models.NodeType) (map[string]any, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	return factory.Schema(), nil
}

// ValidateNodeConfig checks a node's config against its type's JSON schema.
// Used at template-save time; the executor assumes validated templates.
func (r *Registry) ValidateNodeConfig(node *models.Node) error {
	factory, ok := r.factories[node.Type]
	if !ok {
		return fmt.Errorf("node type %q not registered", node.Type)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for node %q: %w", node.ID, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}

		return fmt.Errorf("invalid config for node %q: %s", node.ID, strings.Join(details, "; "))
	}

	return nil
}

// ValidateTemplate runs config validation over every node of a template.
func (r *Registry) ValidateTemplate(template *models.WorkflowTemplate) error {
	for _, node := range template.Nodes {
		if err := r.ValidateNodeConfig(node); err != nil {
			return err
		}
	}

	return nil
}
