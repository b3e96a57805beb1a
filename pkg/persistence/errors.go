// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Sentinel errors every implementation must return for the corresponding
// conditions so callers can branch without knowing the backend.
var (
	// ErrTemplateNotFound indicates no template exists for the identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateAlreadyExists indicates a template id collision on save.
	ErrTemplateAlreadyExists = errors.New("template already exists")

	// ErrExecutionNotFound indicates no execution exists for the identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionAlreadyExists indicates an execution id collision on create.
	ErrExecutionAlreadyExists = errors.New("execution already exists")
)

// StoreError wraps a storage failure with operation context.
type StoreError struct {
	Op  string // operation, e.g. "TemplateByID", "UpdateExecution"
	ID  string // entity id if applicable
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err with operation context.
func NewStoreError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, ID: id, Err: err}
}

// IsTemplateNotFound reports whether err is a template-not-found error.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsExecutionNotFound reports whether err is an execution-not-found error.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
