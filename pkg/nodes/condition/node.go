// Package condition implements the node that records a boolean expression
// result. Branch selection itself happens at the edge level.
package condition

import (
	"context"
	"errors"

	"github.com/flowd-io/flowd/pkg/expression"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Node struct {
	id   string
	expr string
}

// NewNode creates a condition node handler.
func NewNode(node *models.Node) (*Node, error) {
	expr, ok := node.Config["expression"].(string)
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	return &Node{id: node.ID, expr: expr}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeCondition
}

func (n *Node) Execute(_ context.Context, ec protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	result := expression.Evaluate(n.expr, ec.Variables, ec.Context)

	return &protocol.HandlerResult{
		Output: map[string]any{
			"expression": n.expr,
			"result":     result,
		},
		Context: map[string]any{
			n.id + "_result": result,
		},
	}, nil
}
