// Package task implements the node that creates a task record for the
// execution's owner.
package task

import (
	"context"
	"errors"

	"github.com/flowd-io/flowd/pkg/expression"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

// Config is the task node's configuration block. All string fields support
// {{variable}} substitution.
type Config struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Project     string `json:"project"`
	Assignee    string `json:"assignee"`
	DueDate     string `json:"due_date"`
}

type Node struct {
	id         string
	config     Config
	taskStore  protocol.TaskStore
	eventRules protocol.EventRules
}

// NewNode creates a task node handler bound to the given node config.
func NewNode(node *models.Node, taskStore protocol.TaskStore, eventRules protocol.EventRules) (*Node, error) {
	cfg := Config{}

	title, ok := node.Config["title"].(string)
	if !ok || title == "" {
		return nil, errors.New("missing required field 'title'")
	}

	cfg.Title = title

	if v, ok := node.Config["description"].(string); ok {
		cfg.Description = v
	}

	if v, ok := node.Config["project"].(string); ok {
		cfg.Project = v
	}

	if v, ok := node.Config["assignee"].(string); ok {
		cfg.Assignee = v
	}

	if v, ok := node.Config["due_date"].(string); ok {
		cfg.DueDate = v
	}

	return &Node{
		id:         node.ID,
		config:     cfg,
		taskStore:  taskStore,
		eventRules: eventRules,
	}, nil
}

func (n *Node) NodeID() string {
	return n.id
}

func (n *Node) Type() models.NodeType {
	return models.NodeTypeTask
}

// Execute creates the task with substituted fields and fires a
// "task.created" event so unrelated automation can react.
func (n *Node) Execute(ctx context.Context, ec protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	req := protocol.CreateTaskRequest{
		Title:       expression.Substitute(n.config.Title, ec.Variables, ec.Context),
		Description: expression.Substitute(n.config.Description, ec.Variables, ec.Context),
		Project:     expression.Substitute(n.config.Project, ec.Variables, ec.Context),
		Assignee:    expression.Substitute(n.config.Assignee, ec.Variables, ec.Context),
		DueDate:     expression.Substitute(n.config.DueDate, ec.Variables, ec.Context),
	}

	taskID, err := n.taskStore.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}

	n.eventRules.Fire(ctx, "task.created", map[string]any{
		"task_id":      taskID,
		"title":        req.Title,
		"assignee":     req.Assignee,
		"project":      req.Project,
		"due_date":     req.DueDate,
		"execution_id": ec.ExecutionID,
		"node_id":      n.id,
	})

	return &protocol.HandlerResult{
		Output: map[string]any{
			"task_id":  taskID,
			"title":    req.Title,
			"assignee": req.Assignee,
			"due_date": req.DueDate,
		},
		Context: map[string]any{
			"last_task_id": taskID,
		},
	}, nil
}
