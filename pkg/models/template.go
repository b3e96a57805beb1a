// Package models defines the core domain models for graph-based workflow execution.
package models

import (
	"errors"
	"fmt"
	"time"
)

// NodeType identifies the behavior of a template node.
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeTask      NodeType = "task"
	NodeTypeCondition NodeType = "condition"
	NodeTypeParallel  NodeType = "parallel"
	NodeTypeMerge     NodeType = "merge"
	NodeTypeEnd       NodeType = "end"
	NodeTypeAPICall   NodeType = "api_call"
	NodeTypeEmail     NodeType = "email"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeApproval  NodeType = "approval"

	// NodeTypeNotify is an accepted alias for email nodes kept for
	// templates imported from older definitions.
	NodeTypeNotify NodeType = "notify"
)

// Node is a single step definition inside a workflow template.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Type   NodeType       `json:"type"   validate:"required"`
	Label  string         `json:"label"`
	Config map[string]any `json:"config"`
}

// Connection is a directed edge between two nodes, optionally guarded
// by a condition expression evaluated against the execution context.
type Connection struct {
	ID        string `json:"id"`
	Source    string `json:"source" validate:"required"`
	Target    string `json:"target" validate:"required"`
	Condition string `json:"condition,omitempty"`
}

// Variable declares a template input with type metadata used to
// type-check values when an execution is created.
type Variable struct {
	Name     string `json:"name"     validate:"required"`
	Type     string `json:"type"     validate:"required,oneof=string number boolean date"`
	Default  any    `json:"default,omitempty"`
	Required bool   `json:"required"`
}

// ErrorHandling is declared on templates but not enforced by the engine.
// It is carried through persistence untouched so template authors do not
// lose the setting.
type ErrorHandling struct {
	OnError string `json:"on_error,omitempty"`
}

// WorkflowTemplate is the immutable, versioned definition of a workflow
// graph. The executor never mutates a template mid-run.
type WorkflowTemplate struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"        validate:"required,min=3"`
	Description   string         `json:"description"`
	Version       int            `json:"version"`
	Nodes         []*Node        `json:"nodes"`
	Connections   []*Connection  `json:"connections"`
	Variables     []*Variable    `json:"variables"`
	ErrorHandling *ErrorHandling `json:"error_handling,omitempty"`
	Owner         string         `json:"owner"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Template integrity errors, surfaced at save time. The executor assumes
// a template that passed Validate.
var (
	ErrNoStartNode       = errors.New("template has no start node")
	ErrMultipleStartNode = errors.New("template has more than one start node")
	ErrNoEndNode         = errors.New("template has no end node reachable from start")
	ErrOrphanNode        = errors.New("template has a non-start node with no incoming connection")
	ErrDanglingEdge      = errors.New("template has a connection referencing an unknown node")
)

// NodeByID returns the node with the given id, or nil.
func (t *WorkflowTemplate) NodeByID(id string) *Node {
	for _, n := range t.Nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

// StartNode returns the template's unique start node, or nil when absent.
func (t *WorkflowTemplate) StartNode() *Node {
	for _, n := range t.Nodes {
		if n.Type == NodeTypeStart {
			return n
		}
	}

	return nil
}

// OutgoingConnections returns every connection whose source is nodeID.
func (t *WorkflowTemplate) OutgoingConnections(nodeID string) []*Connection {
	var out []*Connection

	for _, c := range t.Connections {
		if c.Source == nodeID {
			out = append(out, c)
		}
	}

	return out
}

// Validate checks template integrity: exactly one start node, at least one
// end node reachable from start, no dangling edges and no orphan nodes.
func (t *WorkflowTemplate) Validate() error {
	nodeIDs := make(map[string]*Node, len(t.Nodes))

	var start *Node

	for _, n := range t.Nodes {
		if _, dup := nodeIDs[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}

		nodeIDs[n.ID] = n

		if n.Type == NodeTypeStart {
			if start != nil {
				return ErrMultipleStartNode
			}

			start = n
		}
	}

	if start == nil {
		return ErrNoStartNode
	}

	incoming := make(map[string]int, len(t.Nodes))

	for _, c := range t.Connections {
		if _, ok := nodeIDs[c.Source]; !ok {
			return fmt.Errorf("%w: source %q", ErrDanglingEdge, c.Source)
		}

		if _, ok := nodeIDs[c.Target]; !ok {
			return fmt.Errorf("%w: target %q", ErrDanglingEdge, c.Target)
		}

		incoming[c.Target]++
	}

	for _, n := range t.Nodes {
		if n.Type != NodeTypeStart && incoming[n.ID] == 0 {
			return fmt.Errorf("%w: node %q", ErrOrphanNode, n.ID)
		}
	}

	if !t.endReachableFrom(start.ID) {
		return ErrNoEndNode
	}

	return nil
}

// endReachableFrom walks the graph ignoring edge conditions.
func (t *WorkflowTemplate) endReachableFrom(startID string) bool {
	visited := make(map[string]bool, len(t.Nodes))
	stack := []string{startID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[id] {
			continue
		}

		visited[id] = true

		if n := t.NodeByID(id); n != nil && n.Type == NodeTypeEnd {
			return true
		}

		for _, c := range t.OutgoingConnections(id) {
			stack = append(stack, c.Target)
		}
	}

	return false
}

// ResolveInputs applies declared defaults and type-checks the provided
// values. It returns the merged variable map used to seed an execution.
func (t *WorkflowTemplate) ResolveInputs(inputs map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(t.Variables))

	for _, v := range t.Variables {
		value, ok := inputs[v.Name]
		if !ok {
			if v.Required && v.Default == nil {
				return nil, fmt.Errorf("required variable %q not provided", v.Name)
			}

			if v.Default != nil {
				resolved[v.Name] = v.Default
			}

			continue
		}

		if err := checkVariableType(v, value); err != nil {
			return nil, err
		}

		resolved[v.Name] = value
	}

	// Undeclared inputs pass through untouched.
	for name, value := range inputs {
		if _, declared := resolved[name]; !declared {
			if t.variableByName(name) == nil {
				resolved[name] = value
			}
		}
	}

	return resolved, nil
}

func (t *WorkflowTemplate) variableByName(name string) *Variable {
	for _, v := range t.Variables {
		if v.Name == name {
			return v
		}
	}

	return nil
}

func checkVariableType(v *Variable, value any) error {
	switch v.Type {
	case "string", "date":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("variable %q must be a string, got %T", v.Name, value)
		}
	case "number":
		switch value.(type) {
		case int, int64, float64:
		default:
			return fmt.Errorf("variable %q must be a number, got %T", v.Name, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("variable %q must be a boolean, got %T", v.Name, value)
		}
	}

	return nil
}
