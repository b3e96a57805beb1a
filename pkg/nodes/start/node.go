// Package start implements the entry node of a workflow graph.
package start

import (
	"context"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

// Node returns the execution's initial variables and context so the first
// step's output records what the run started with.
type Node struct {
	id string
}

// NewNode creates a start node handler. Start nodes carry no config.
func NewNode(node *models.Node) (*Node, error) {
	return &Node{id: node.ID}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeStart
}

func (n *Node) Execute(_ context.Context, ec protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	return &protocol.HandlerResult{
		Output: map[string]any{
			"variables": ec.Variables,
			"context":   ec.Context,
		},
	}, nil
}
