// Package services provides the business operations the HTTP surface and
// the worker binaries call into: template management and execution
// creation over the persistence layer.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These map to client errors (4xx) at the HTTP
// surface.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrTemplateNil        = errors.New("template cannot be nil")
	ErrTemplateIDRequired = errors.New("template id is required")
	ErrInputsInvalid      = errors.New("execution inputs are invalid")
)

// ServiceError wraps a service-level failure with the operation it came
// from.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether err should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrTemplateNil) ||
		errors.Is(err, ErrTemplateIDRequired) ||
		errors.Is(err, ErrInputsInvalid)
}

// NewValidationError wraps err so IsValidationError recognizes it while
// keeping the original cause in the chain.
func NewValidationError(op, message string, err error) *ServiceError {
	if err == nil {
		err = ErrInvalidRequest
	}

	return &ServiceError{Op: op, Message: message, Err: err}
}
