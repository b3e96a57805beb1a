package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowd-io/flowd/pkg/models"
)

func linearNodes() []*models.Node {
	return []*models.Node{
		{ID: "begin", Type: models.NodeTypeStart},
		{ID: "work", Type: models.NodeTypeTask, Config: map[string]any{"title": "t"}},
		{ID: "finish", Type: models.NodeTypeEnd},
	}
}

func linearConnections() []*models.Connection {
	return []*models.Connection{
		{Source: "begin", Target: "work"},
		{Source: "work", Target: "finish"},
	}
}

func TestTemplateValidate(t *testing.T) {
	tests := []struct {
		name        string
		nodes       []*models.Node
		connections []*models.Connection
		wantErr     error
	}{
		{
			name:        "valid linear graph",
			nodes:       linearNodes(),
			connections: linearConnections(),
		},
		{
			name: "no start node",
			nodes: []*models.Node{
				{ID: "finish", Type: models.NodeTypeEnd},
			},
			wantErr: models.ErrNoStartNode,
		},
		{
			name: "two start nodes",
			nodes: append(linearNodes(),
				&models.Node{ID: "begin2", Type: models.NodeTypeStart}),
			connections: linearConnections(),
			wantErr:     models.ErrMultipleStartNode,
		},
		{
			name: "end not reachable from start",
			nodes: []*models.Node{
				{ID: "begin", Type: models.NodeTypeStart},
				{ID: "a", Type: models.NodeTypeTask},
				{ID: "finish", Type: models.NodeTypeEnd},
			},
			connections: []*models.Connection{
				{Source: "begin", Target: "a"},
				{Source: "finish", Target: "a"},
			},
			wantErr: models.ErrNoEndNode,
		},
		{
			name:  "dangling edge",
			nodes: linearNodes(),
			connections: append(linearConnections(),
				&models.Connection{Source: "work", Target: "ghost"}),
			wantErr: models.ErrDanglingEdge,
		},
		{
			name: "orphan node",
			nodes: append(linearNodes(),
				&models.Node{ID: "island", Type: models.NodeTypeTask}),
			connections: linearConnections(),
			wantErr:     models.ErrOrphanNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template := &models.WorkflowTemplate{
				Name:        "test template",
				Nodes:       tt.nodes,
				Connections: tt.connections,
			}

			err := template.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTemplateValidateDuplicateNodeID(t *testing.T) {
	template := &models.WorkflowTemplate{
		Name: "dup",
		Nodes: append(linearNodes(),
			&models.Node{ID: "work", Type: models.NodeTypeTask}),
		Connections: linearConnections(),
	}

	err := template.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}

func TestResolveInputs(t *testing.T) {
	template := &models.WorkflowTemplate{
		Variables: []*models.Variable{
			{Name: "owner", Type: "string", Required: true},
			{Name: "retries", Type: "number", Default: float64(3)},
			{Name: "urgent", Type: "boolean"},
		},
	}

	t.Run("defaults applied", func(t *testing.T) {
		resolved, err := template.ResolveInputs(map[string]any{"owner": "ops"})
		require.NoError(t, err)
		assert.Equal(t, "ops", resolved["owner"])
		assert.Equal(t, float64(3), resolved["retries"])
		assert.NotContains(t, resolved, "urgent")
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := template.ResolveInputs(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"owner" not provided`)
	})

	t.Run("type mismatch", func(t *testing.T) {
		_, err := template.ResolveInputs(map[string]any{"owner": "ops", "urgent": "yes"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be a boolean")
	})

	t.Run("undeclared inputs pass through", func(t *testing.T) {
		resolved, err := template.ResolveInputs(map[string]any{"owner": "ops", "extra": 42})
		require.NoError(t, err)
		assert.Equal(t, 42, resolved["extra"])
	})

	t.Run("provided value overrides default", func(t *testing.T) {
		resolved, err := template.ResolveInputs(map[string]any{"owner": "ops", "retries": 9})
		require.NoError(t, err)
		assert.Equal(t, 9, resolved["retries"])
	})
}

func TestStartNodeAndOutgoingConnections(t *testing.T) {
	template := &models.WorkflowTemplate{
		Nodes:       linearNodes(),
		Connections: linearConnections(),
	}

	start := template.StartNode()
	require.NotNil(t, start)
	assert.Equal(t, "begin", start.ID)

	out := template.OutgoingConnections("begin")
	require.Len(t, out, 1)
	assert.Equal(t, "work", out[0].Target)

	assert.Empty(t, template.OutgoingConnections("finish"))
	assert.Nil(t, template.NodeByID("ghost"))
}
