package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
)

// ExecutionRepository stores executions as executions/<id>.json. Writes go
// through a temp file and rename so a crashed process never leaves a
// half-written record.
type ExecutionRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{dir: filepath.Join(root, "executions")}
}

func (r *ExecutionRepository) CreateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path(execution.ID)); err == nil {
		return persistence.ErrExecutionAlreadyExists
	}

	return r.write(execution)
}

func (r *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(r.path(id))
}

func (r *ExecutionRepository) UpdateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path(execution.ID)); os.IsNotExist(err) {
		return persistence.ErrExecutionNotFound
	}

	return r.write(execution)
}

func (r *ExecutionRepository) ExecutionsByTemplate(_ context.Context, templateID string) ([]*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("ExecutionsByTemplate", templateID, err)
	}

	var executions []*models.WorkflowExecution

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		execution, err := r.read(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		if execution.TemplateID == templateID {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}

func (r *ExecutionRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *ExecutionRepository) write(execution *models.WorkflowExecution) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	tmp := r.path(execution.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, fileMode); err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	if err := os.Rename(tmp, r.path(execution.ID)); err != nil {
		return persistence.NewStoreError("UpdateExecution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) read(path string) (*models.WorkflowExecution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, persistence.NewStoreError("ExecutionByID", filepath.Base(path), err)
	}

	var execution models.WorkflowExecution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, persistence.NewStoreError("ExecutionByID", filepath.Base(path), err)
	}

	return &execution, nil
}
