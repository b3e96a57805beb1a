package task

import (
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

type Factory struct {
	taskStore  protocol.TaskStore
	eventRules protocol.EventRules
}

// NewFactory creates the task node factory with its collaborators.
func NewFactory(taskStore protocol.TaskStore, eventRules protocol.EventRules) protocol.HandlerFactory {
	return &Factory{taskStore: taskStore, eventRules: eventRules}
}

func (f *Factory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return NewNode(node, f.taskStore, f.eventRules)
}

func (f *Factory) Type() models.NodeType {
	return models.NodeTypeTask
}

func (f *Factory) Name() string {
	return "Create Task"
}

func (f *Factory) Description() string {
	return "Creates a task record with substituted title, description, project and due date."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string"},
			"project":     map[string]any{"type": "string"},
			"assignee":    map[string]any{"type": "string"},
			"due_date":    map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}
}
