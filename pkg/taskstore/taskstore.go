// Package taskstore implements the task-record collaborator used by task
// nodes. The engine only needs CreateTask; listing exists for inspection
// by the API and by tests.
package taskstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowd-io/flowd/pkg/protocol"
)

// TaskRecord is one stored task.
type TaskRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Project     string    `json:"project,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemoryStore keeps task records in memory. Suitable for single-process
// deployments and tests; swap for a project-tracker client in production.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]TaskRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]TaskRecord),
	}
}

func (s *MemoryStore) CreateTask(_ context.Context, req protocol.CreateTaskRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := TaskRecord{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Project:     req.Project,
		Assignee:    req.Assignee,
		DueDate:     req.DueDate,
		CreatedAt:   time.Now().UTC(),
	}
	s.tasks[record.ID] = record

	return record.ID, nil
}

// Tasks returns a snapshot of the stored records.
func (s *MemoryStore) Tasks() []TaskRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]TaskRecord, 0, len(s.tasks))
	for _, record := range s.tasks {
		records = append(records, record)
	}

	return records
}
