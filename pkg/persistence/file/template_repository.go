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

const fileMode = 0o644

// TemplateRepository stores templates as templates/<id>.json.
type TemplateRepository struct {
	dir string
	mu  sync.RWMutex
}

func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{dir: filepath.Join(root, "templates")}
}

func (r *TemplateRepository) Templates(_ context.Context) ([]*models.WorkflowTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("Templates", "", err)
	}

	templates := make([]*models.WorkflowTemplate, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		template, err := r.read(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		templates = append(templates, template)
	}

	return templates, nil
}

func (r *TemplateRepository) TemplateByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	template, err := r.read(r.path(id))
	if err != nil {
		return nil, err
	}

	return template, nil
}

func (r *TemplateRepository) SaveTemplate(_ context.Context, template *models.WorkflowTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return persistence.NewStoreError("SaveTemplate", template.ID, err)
	}

	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return persistence.NewStoreError("SaveTemplate", template.ID, err)
	}

	if err := os.WriteFile(r.path(template.ID), data, fileMode); err != nil {
		return persistence.NewStoreError("SaveTemplate", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) DeleteTemplate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if os.IsNotExist(err) {
		return persistence.ErrTemplateNotFound
	}

	return err
}

func (r *TemplateRepository) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *TemplateRepository) read(path string) (*models.WorkflowTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, persistence.NewStoreError("TemplateByID", filepath.Base(path), err)
	}

	var template models.WorkflowTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, persistence.NewStoreError("TemplateByID", filepath.Base(path), err)
	}

	return &template, nil
}
