package registry_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowd-io/flowd/pkg/mocks"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := registry.NewRegistry(logger)
	r.RegisterDefaultHandlers(registry.Collaborators{
		TaskStore:  &mocks.MockTaskStore{},
		Notifier:   &mocks.MockNotifier{},
		EventRules: &mocks.MockEventRules{},
		HTTPCaller: &mocks.MockHTTPCaller{},
	}, logger)

	return r
}

func TestDefaultHandlersCoverAllNodeTypes(t *testing.T) {
	r := testRegistry(t)

	expected := []models.NodeType{
		models.NodeTypeStart,
		models.NodeTypeTask,
		models.NodeTypeCondition,
		models.NodeTypeParallel,
		models.NodeTypeMerge,
		models.NodeTypeDelay,
		models.NodeTypeEmail,
		models.NodeTypeNotify,
		models.NodeTypeApproval,
		models.NodeTypeAPICall,
		models.NodeTypeEnd,
	}

	types := r.HandlerTypes()
	for _, want := range expected {
		assert.Contains(t, types, want)
	}
}

func TestCreateHandlerUnknownType(t *testing.T) {
	r := testRegistry(t)

	_, err := r.CreateHandler(&models.Node{ID: "x", Type: "teleport"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestValidateNodeConfig(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name    string
		node    *models.Node
		wantErr bool
	}{
		{
			name: "valid task config",
			node: &models.Node{ID: "t", Type: models.NodeTypeTask, Config: map[string]any{"title": "x"}},
		},
		{
			name:    "task missing title",
			node:    &models.Node{ID: "t", Type: models.NodeTypeTask, Config: map[string]any{}},
			wantErr: true,
		},
		{
			name: "valid condition config",
			node: &models.Node{ID: "c", Type: models.NodeTypeCondition, Config: map[string]any{"expression": "1 == 1"}},
		},
		{
			name:    "unregistered type",
			node:    &models.Node{ID: "x", Type: "teleport"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateNodeConfig(tt.node)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTemplateStopsAtFirstBadNode(t *testing.T) {
	r := testRegistry(t)

	template := &models.WorkflowTemplate{
		Nodes: []*models.Node{
			{ID: "begin", Type: models.NodeTypeStart},
			{ID: "bad", Type: models.NodeTypeTask, Config: map[string]any{}},
			{ID: "finish", Type: models.NodeTypeEnd},
		},
	}

	err := r.ValidateTemplate(template)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}
