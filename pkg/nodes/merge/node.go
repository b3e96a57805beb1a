// Package merge implements the structural fan-in node. Branches arriving
// at a merge node continue independently; the node records each arrival
// and passes through.
package merge

import (
	"context"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Node struct {
	id string
}

// NewNode creates a merge node handler.
func NewNode(node *models.Node) (*Node, error) {
	return &Node{id: node.ID}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeMerge
}

func (n *Node) Execute(_ context.Context, _ protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	return &protocol.HandlerResult{Output: map[string]any{}}, nil
}

type Factory struct{}

// NewFactory creates the merge node factory.
func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeMerge
}

func (f *Factory) Name() string {
	return "Merge"
}

func (f *Factory) Description() string {
	return "Structural fan-in marker where parallel branches reconverge."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
