package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
)

// Execution handles execution creation and reads. Lifecycle transitions
// belong to the execution controller, not here.
type Execution struct {
	persistence persistence.Persistence
}

func NewExecution(persist persistence.Persistence) *Execution {
	return &Execution{
		persistence: persist,
	}
}

// CreateExecution resolves the inputs against the template's declared
// variables and persists a pending execution with one step per node.
func (e *Execution) CreateExecution(ctx context.Context, templateID string, inputs map[string]any) (*models.WorkflowExecution, error) {
	if templateID == "" {
		return nil, NewValidationError("create_execution", "template id is required", ErrTemplateIDRequired)
	}

	template, err := e.persistence.TemplateRepository().TemplateByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", templateID, err)
	}

	variables, err := template.ResolveInputs(inputs)
	if err != nil {
		return nil, NewValidationError("create_execution", err.Error(), ErrInputsInvalid)
	}

	execution := models.NewExecution(uuid.New().String(), template, variables)

	if err := e.persistence.ExecutionRepository().CreateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	return execution, nil
}

// ExecutionByID fetches one execution record from the store.
func (e *Execution) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	if id == "" {
		return nil, NewValidationError("get_execution", "execution id is required", ErrInvalidRequest)
	}

	return e.persistence.ExecutionRepository().ExecutionByID(ctx, id)
}

// ExecutionsByTemplate lists the runs of one template.
func (e *Execution) ExecutionsByTemplate(ctx context.Context, templateID string) ([]*models.WorkflowExecution, error) {
	if templateID == "" {
		return nil, NewValidationError("list_executions", "template id is required", ErrTemplateIDRequired)
	}

	return e.persistence.ExecutionRepository().ExecutionsByTemplate(ctx, templateID)
}
