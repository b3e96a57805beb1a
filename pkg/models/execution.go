package models

import (
	"fmt"
	"maps"
	"math"
	"time"
)

// ExecutionStatus is the run-level lifecycle state. Completed, failed and
// cancelled are terminal; paused is the only non-terminal state reachable
// from running.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
	ExecutionStatusPaused    ExecutionStatus = "paused"
)

// IsTerminal reports whether no further transitions are allowed.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// StepStatus is the per-node runtime state within one execution.
type StepStatus string

const (
	StepStatusPending         StepStatus = "pending"
	StepStatusRunning         StepStatus = "running"
	StepStatusCompleted       StepStatus = "completed"
	StepStatusFailed          StepStatus = "failed"
	StepStatusSkipped         StepStatus = "skipped"
	StepStatusWaitingApproval StepStatus = "waiting_approval"
)

// Step is the runtime record of one template node for one run.
type Step struct {
	NodeID      string         `json:"node_id"`
	Status      StepStatus     `json:"status"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	RetryCount  int            `json:"retry_count"`
	Logs        []LogEntry     `json:"logs,omitempty"`
}

// LogEntry is one append-only log line, either run-level or step-level.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	NodeID    string    `json:"node_id,omitempty"`
	Message   string    `json:"message"`
}

// ExecutionError records a node failure in the run's error list.
type ExecutionError struct {
	NodeID    string    `json:"node_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress is the derived completion counter, recomputed on every step
// completion rather than lazily.
type Progress struct {
	TotalSteps     int `json:"total_steps"`
	CompletedSteps int `json:"completed_steps"`
	FailedSteps    int `json:"failed_steps"`
	Percentage     int `json:"percentage"`
}

// WorkflowExecution is one concrete run of a template.
type WorkflowExecution struct {
	ID          string           `json:"id"`
	TemplateID  string           `json:"template_id"`
	Status      ExecutionStatus  `json:"status"`
	Steps       []*Step          `json:"steps"`
	CurrentStep string           `json:"current_step"`
	Variables   map[string]any   `json:"variables"`
	Context     map[string]any   `json:"context"`
	Progress    Progress         `json:"progress"`
	Errors      []ExecutionError `json:"errors"`
	Logs        []LogEntry       `json:"logs"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewExecution creates a pending execution for the template with one step
// per template node. Variables must already be resolved via ResolveInputs.
func NewExecution(id string, template *WorkflowTemplate, variables map[string]any) *WorkflowExecution {
	steps := make([]*Step, 0, len(template.Nodes))
	for _, n := range template.Nodes {
		steps = append(steps, &Step{NodeID: n.ID, Status: StepStatusPending})
	}

	if variables == nil {
		variables = make(map[string]any)
	}

	return &WorkflowExecution{
		ID:         id,
		TemplateID: template.ID,
		Status:     ExecutionStatusPending,
		Steps:      steps,
		Variables:  variables,
		Context:    make(map[string]any),
		Progress:   Progress{TotalSteps: len(steps)},
		CreatedAt:  time.Now().UTC(),
	}
}

// StepByNode returns the step record for the given node id, or nil.
func (e *WorkflowExecution) StepByNode(nodeID string) *Step {
	for _, s := range e.Steps {
		if s.NodeID == nodeID {
			return s
		}
	}

	return nil
}

// RecomputeProgress rebuilds the progress counters from step states.
// Callers serialize access; the counters themselves are plain fields.
func (e *WorkflowExecution) RecomputeProgress() {
	completed, failed := 0, 0

	for _, s := range e.Steps {
		switch s.Status {
		case StepStatusCompleted:
			completed++
		case StepStatusFailed:
			failed++
		}
	}

	e.Progress.TotalSteps = len(e.Steps)
	e.Progress.CompletedSteps = completed
	e.Progress.FailedSteps = failed

	if len(e.Steps) > 0 {
		e.Progress.Percentage = int(math.Round(100 * float64(completed) / float64(len(e.Steps))))
	}
}

// AppendLog records a run-level log line; the list is never truncated
// during a run.
func (e *WorkflowExecution) AppendLog(level, nodeID, format string, args ...any) {
	e.Logs = append(e.Logs, LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		NodeID:    nodeID,
		Message:   fmt.Sprintf(format, args...),
	})
}

// AppendError records a node failure in the run's append-only error list.
func (e *WorkflowExecution) AppendError(nodeID, message string) {
	e.Errors = append(e.Errors, ExecutionError{
		NodeID:    nodeID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

// Clone returns a deep copy safe to read while the engine keeps mutating
// the original.
func (e *WorkflowExecution) Clone() *WorkflowExecution {
	clone := *e

	clone.Steps = make([]*Step, len(e.Steps))
	for i, s := range e.Steps {
		stepCopy := *s
		stepCopy.Input = maps.Clone(s.Input)
		stepCopy.Output = maps.Clone(s.Output)
		stepCopy.Logs = append([]LogEntry(nil), s.Logs...)
		clone.Steps[i] = &stepCopy
	}

	clone.Variables = maps.Clone(e.Variables)
	clone.Context = maps.Clone(e.Context)
	clone.Errors = append([]ExecutionError(nil), e.Errors...)
	clone.Logs = append([]LogEntry(nil), e.Logs...)

	return &clone
}

// Duration returns the wall-clock duration of a finished run, zero when
// the run has not both started and finished.
func (e *WorkflowExecution) Duration() time.Duration {
	if e.StartedAt == nil || e.CompletedAt == nil {
		return 0
	}

	return e.CompletedAt.Sub(*e.StartedAt)
}
