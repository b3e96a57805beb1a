package web

import (
	"time"

	"github.com/flowd-io/flowd/pkg/models"
)

// CreateExecutionRequest creates a pending execution from a template.
type CreateExecutionRequest struct {
	TemplateID string         `json:"template_id" validate:"required"`
	Inputs     map[string]any `json:"inputs,omitempty"`
}

// ApprovalRequest records an approval decision for a parked step.
type ApprovalRequest struct {
	Approved *bool  `json:"approved"           validate:"required"`
	Comment  string `json:"comment,omitempty"`
}

// ExecutionStatusResponse is the control-surface view of one run: its
// status, progress and current position.
type ExecutionStatusResponse struct {
	ID          string                  `json:"id"`
	TemplateID  string                  `json:"template_id"`
	Status      models.ExecutionStatus  `json:"status"`
	CurrentStep string                  `json:"current_step,omitempty"`
	Progress    models.Progress         `json:"progress"`
	Steps       []*models.Step          `json:"steps,omitempty"`
	Errors      []models.ExecutionError `json:"errors,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}

func newExecutionStatusResponse(execution *models.WorkflowExecution) *ExecutionStatusResponse {
	return &ExecutionStatusResponse{
		ID:          execution.ID,
		TemplateID:  execution.TemplateID,
		Status:      execution.Status,
		CurrentStep: execution.CurrentStep,
		Progress:    execution.Progress,
		Steps:       execution.Steps,
		Errors:      execution.Errors,
		CreatedAt:   execution.CreatedAt,
		StartedAt:   execution.StartedAt,
		CompletedAt: execution.CompletedAt,
	}
}
