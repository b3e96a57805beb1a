package execution

import (
	"errors"
	"fmt"

	"github.com/flowd-io/flowd/pkg/models"
)

var (
	// ErrAlreadyInFlight is returned when a start races another start for
	// the same execution.
	ErrAlreadyInFlight = errors.New("execution is already in flight")

	// ErrNotWaitingApproval is returned when an approval response targets a
	// step that is not parked.
	ErrNotWaitingApproval = errors.New("step is not waiting for approval")
)

// InvalidTransitionError reports a control operation that is not allowed
// from the execution's current status.
type InvalidTransitionError struct {
	ExecutionID string
	From        models.ExecutionStatus
	To          models.ExecutionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("execution %s: invalid transition from %s to %s", e.ExecutionID, e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError

	return errors.As(err, &target)
}

// NodeError wraps a handler failure with the node it came from.
type NodeError struct {
	NodeID   string
	NodeType models.NodeType
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
