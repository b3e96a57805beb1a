package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
)

// TemplateRepository stores templates as jsonb documents.
type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Templates(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT document FROM workflow_templates ORDER BY created_at")
	if err != nil {
		return nil, persistence.NewStoreError("Templates", "", err)
	}
	defer rows.Close()

	var templates []*models.WorkflowTemplate

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, persistence.NewStoreError("Templates", "", err)
		}

		var template models.WorkflowTemplate
		if err := json.Unmarshal(doc, &template); err != nil {
			return nil, persistence.NewStoreError("Templates", "", err)
		}

		templates = append(templates, &template)
	}

	return templates, rows.Err()
}

func (r *TemplateRepository) TemplateByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	var doc []byte

	err := r.db.QueryRowContext(ctx,
		"SELECT document FROM workflow_templates WHERE id = $1", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrTemplateNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("TemplateByID", id, err)
	}

	var template models.WorkflowTemplate
	if err := json.Unmarshal(doc, &template); err != nil {
		return nil, persistence.NewStoreError("TemplateByID", id, err)
	}

	return &template, nil
}

func (r *TemplateRepository) SaveTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	doc, err := json.Marshal(template)
	if err != nil {
		return persistence.NewStoreError("SaveTemplate", template.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_templates (id, name, version, owner, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			owner = EXCLUDED.owner,
			document = EXCLUDED.document,
			updated_at = NOW()
	`, template.ID, template.Name, template.Version, template.Owner, doc,
		template.CreatedAt, template.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveTemplate", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) DeleteTemplate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflow_templates WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("DeleteTemplate", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("DeleteTemplate", id, err)
	}

	if affected == 0 {
		return persistence.ErrTemplateNotFound
	}

	return nil
}
