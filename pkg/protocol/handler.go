// Package protocol defines the interfaces and contracts for pluggable node
// handlers and the engine's external collaborators.
package protocol

import (
	"context"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
)

// ExecutionContext is the read snapshot a handler receives. Handlers must
// not mutate Variables or Context directly; updates flow back through the
// HandlerResult and are merged by the graph walker.
type ExecutionContext struct {
	ExecutionID string
	TemplateID  string
	StartedAt   time.Time
	Variables   map[string]any
	Context     map[string]any
}

// HandlerResult is what a node handler returns on success. Output is
// merged into the step's output, Context into the execution's context map.
// Waiting marks the step as parked (approval nodes) instead of completed.
type HandlerResult struct {
	Output  map[string]any
	Context map[string]any
	Waiting bool
}

// NodeHandler executes one node of a template. Implementations are created
// per node by their factory, with the node's config already parsed.
type NodeHandler interface {
	// NodeID returns the template node id this handler is bound to.
	NodeID() string

	// Type returns the node type the handler implements.
	Type() models.NodeType

	// Execute runs the node. Blocking handlers (delay) must honor ctx
	// cancellation.
	Execute(ctx context.Context, ec ExecutionContext) (*HandlerResult, error)
}

// HandlerFactory creates handler instances for one node type and exposes
// the type's config schema for save-time validation.
type HandlerFactory interface {
	// Create builds a handler for the given node, parsing node.Config.
	Create(node *models.Node) (NodeHandler, error)

	// Type returns the node type this factory serves.
	Type() models.NodeType

	// Name returns the human-readable name for the node type.
	Name() string

	// Description returns what nodes of this type do.
	Description() string

	// Schema returns the JSON schema for the node type's config block.
	Schema() map[string]any
}
