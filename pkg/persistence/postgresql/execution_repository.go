package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/lib/pq"
)

// ExecutionRepository stores executions as jsonb documents. Each update
// rewrites the full document; the status column is kept in sync for
// indexed filtering.
type ExecutionRepository struct {
	db *sql.DB
}

func NewExecutionRepository(db *sql.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	doc, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewStoreError("CreateExecution", execution.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (id, template_id, status, document, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, execution.ID, execution.TemplateID, string(execution.Status), doc, execution.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		// 23505 is unique_violation.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return persistence.ErrExecutionAlreadyExists
		}

		return persistence.NewStoreError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	var doc []byte

	err := r.db.QueryRowContext(ctx,
		"SELECT document FROM workflow_executions WHERE id = $1", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	var execution models.WorkflowExecution
	if err := json.Unmarshal(doc, &execution); err != nil {
		return nil, persistence.NewStoreError("ExecutionByID", id, err)
	}

	return &execution, nil
}

func (r *ExecutionRepository) UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	doc, err := json.Marshal(execution)
	if err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_executions
		SET status = $2, document = $3, updated_at = NOW()
		WHERE id = $1
	`, execution.ID, string(execution.Status), doc)
	if err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

func (r *ExecutionRepository) ExecutionsByTemplate(ctx context.Context, templateID string) ([]*models.WorkflowExecution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document FROM workflow_executions
		WHERE template_id = $1
		ORDER BY created_at
	`, templateID)
	if err != nil {
		return nil, persistence.NewStoreError("ExecutionsByTemplate", templateID, err)
	}
	defer rows.Close()

	var executions []*models.WorkflowExecution

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, persistence.NewStoreError("ExecutionsByTemplate", templateID, err)
		}

		var execution models.WorkflowExecution
		if err := json.Unmarshal(doc, &execution); err != nil {
			return nil, persistence.NewStoreError("ExecutionsByTemplate", templateID, err)
		}

		executions = append(executions, &execution)
	}

	return executions, rows.Err()
}
