// Package testutil provides test data builders shared by package tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/flowd-io/flowd/pkg/models"
)

// CreateTestNode creates a node with default values that overrides can
// adjust.
func CreateTestNode(id string, nodeType models.NodeType, overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:     id,
		Type:   nodeType,
		Label:  "Test " + string(nodeType),
		Config: map[string]any{},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// CreateTestTemplate creates a valid template with the given nodes and
// connections.
func CreateTestTemplate(nodes []*models.Node, connections []*models.Connection, overrides ...func(*models.WorkflowTemplate)) *models.WorkflowTemplate {
	template := &models.WorkflowTemplate{
		ID:          uuid.New().String(),
		Name:        "Test Template",
		Version:     1,
		Nodes:       nodes,
		Connections: connections,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	for _, override := range overrides {
		override(template)
	}

	return template
}

// WithVariables declares template variables.
func WithVariables(variables ...*models.Variable) func(*models.WorkflowTemplate) {
	return func(t *models.WorkflowTemplate) {
		t.Variables = variables
	}
}

// Connect builds a plain edge between two nodes.
func Connect(source, target string) *models.Connection {
	return &models.Connection{
		ID:     uuid.New().String(),
		Source: source,
		Target: target,
	}
}

// ConnectIf builds a conditional edge between two nodes.
func ConnectIf(source, target, condition string) *models.Connection {
	return &models.Connection{
		ID:        uuid.New().String(),
		Source:    source,
		Target:    target,
		Condition: condition,
	}
}

// LinearTemplate builds a start -> middle... -> end chain from the given
// nodes, connecting them in order.
func LinearTemplate(nodes ...*models.Node) *models.WorkflowTemplate {
	connections := make([]*models.Connection, 0, len(nodes)-1)
	for i := 0; i < len(nodes)-1; i++ {
		connections = append(connections, Connect(nodes[i].ID, nodes[i+1].ID))
	}

	return CreateTestTemplate(nodes, connections)
}
