// Package delay implements the node that suspends its branch for a
// configured duration.
package delay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Node struct {
	id       string
	duration time.Duration
}

// NewNode creates a delay node handler. The duration config accepts either
// a number of seconds or a Go duration string ("90s", "5m").
func NewNode(node *models.Node) (*Node, error) {
	duration, err := parseDuration(node.Config["duration"])
	if err != nil {
		return nil, err
	}

	return &Node{id: node.ID, duration: duration}, nil
}

func parseDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case int:
		return time.Duration(v) * time.Second, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", v, err)
		}

		return d, nil
	case nil:
		return 0, errors.New("missing required field 'duration'")
	default:
		return 0, fmt.Errorf("duration must be seconds or a duration string, got %T", raw)
	}
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeDelay
}

// Execute blocks only this node's branch. Cancelling the run releases the
// timer immediately.
func (n *Node) Execute(ctx context.Context, _ protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	if n.duration > 0 {
		timer := time.NewTimer(n.duration)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &protocol.HandlerResult{
		Output: map[string]any{
			"delayed_for": n.duration.String(),
		},
	}, nil
}
