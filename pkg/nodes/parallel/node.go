// Package parallel implements the structural fan-out node. The actual
// concurrency happens at the edge level, where every satisfied outgoing
// connection starts its own branch; the node itself is a pass-through.
package parallel

import (
	"context"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Node struct {
	id string
}

// NewNode creates a parallel node handler.
func NewNode(node *models.Node) (*Node, error) {
	return &Node{id: node.ID}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeParallel
}

func (n *Node) Execute(_ context.Context, _ protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	return &protocol.HandlerResult{Output: map[string]any{}}, nil
}

type Factory struct{}

// NewFactory creates the parallel node factory.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeParallel
}

func (f *Factory) Name() string {
	return "Parallel"
}

func (f *Factory) Description() string {
	return "Structural fan-out marker. Every satisfied outgoing edge runs as its own branch."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
