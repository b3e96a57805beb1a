package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/flowd-io/flowd/pkg/registry"
)

// Template handles template management: save-time validation and reads.
type Template struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

// NewTemplate creates the template service. registry may be nil; node
// config schema validation is then skipped.
func NewTemplate(persist persistence.Persistence, reg *registry.Registry) *Template {
	return &Template{
		persistence: persist,
		registry:    reg,
	}
}

// HealthCheck checks the health of the persistence layer.
func (t *Template) HealthCheck(ctx context.Context) (string, bool) {
	if t.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := t.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// SaveTemplate validates graph integrity and node configs, then persists
// the template. A missing id is filled with a fresh UUID.
func (t *Template) SaveTemplate(ctx context.Context, template *models.WorkflowTemplate) (*models.WorkflowTemplate, error) {
	if template == nil {
		return nil, NewValidationError("save_template", "template is required", ErrTemplateNil)
	}

	if template.ID == "" {
		template.ID = uuid.New().String()
	}

	if err := template.Validate(); err != nil {
		return nil, NewValidationError("save_template", err.Error(), err)
	}

	if t.registry != nil {
		if err := t.registry.ValidateTemplate(template); err != nil {
			return nil, NewValidationError("save_template", err.Error(), err)
		}
	}

	if err := t.persistence.TemplateRepository().SaveTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	return template, nil
}

// Templates lists every stored template.
func (t *Template) Templates(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	return t.persistence.TemplateRepository().Templates(ctx)
}

// TemplateByID fetches one template.
func (t *Template) TemplateByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	if id == "" {
		return nil, NewValidationError("get_template", "template id is required", ErrTemplateIDRequired)
	}

	return t.persistence.TemplateRepository().TemplateByID(ctx, id)
}

// DeleteTemplate removes a template. Existing executions keep their
// records; only new runs are affected.
func (t *Template) DeleteTemplate(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("delete_template", "template id is required", ErrTemplateIDRequired)
	}

	return t.persistence.TemplateRepository().DeleteTemplate(ctx, id)
}
