// Package persistence provides the storage abstraction for workflow
// templates and execution records.
package persistence

import (
	"context"

	"github.com/flowd-io/flowd/pkg/models"
)

// TemplateRepository is the read/write store for workflow templates. The
// executor only ever reads; templates are immutable per version.
type TemplateRepository interface {
	Templates(ctx context.Context) ([]*models.WorkflowTemplate, error)
	TemplateByID(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	SaveTemplate(ctx context.Context, template *models.WorkflowTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}

// ExecutionRepository is the durable record of execution runs. Updates
// must be durable before the engine attempts the next node transition.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionsByTemplate(ctx context.Context, templateID string) ([]*models.WorkflowExecution, error)
}

// Persistence bundles the repositories behind one connection lifecycle.
type Persistence interface {
	TemplateRepository() TemplateRepository
	ExecutionRepository() ExecutionRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
