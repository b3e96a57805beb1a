// Package events defines the event types published on execution and task
// lifecycle transitions.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the single stream all engine events are published on.
const Topic = "flowd.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
	ExecutionQueuedEvent    EventType = "execution.queued"

	// ExecutionStartRequestedEvent asks a worker to start an execution.
	ExecutionStartRequestedEvent EventType = "execution.start.requested"

	// Step and collaborator events.
	StepCompletedEvent      EventType = "step.completed"
	TaskCreatedEvent        EventType = "task.created"
	ApprovalRequestedEvent  EventType = "approval.requested"
	ApprovalRespondedEvent  EventType = "approval.responded"
	NotificationQueuedEvent EventType = "notification.queued"
)

// BaseEvent carries the fields shared by every event.
type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"execution_id,omitempty"`
	TemplateID  string         `json:"template_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a fresh event envelope.
func NewBaseEvent(eventType EventType, executionID, templateID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ExecutionID: executionID,
		TemplateID:  templateID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	Variables map[string]any `json:"variables,omitempty"`
	Initiator string         `json:"initiator,omitempty"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionCompleted struct {
	BaseEvent

	DurationMs     int64 `json:"duration_ms"`
	CompletedSteps int   `json:"completed_steps"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Error  string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ExecutionCancelled struct {
	BaseEvent

	CancelledBy string `json:"cancelled_by,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType { return ExecutionCancelledEvent }

type ExecutionPaused struct {
	BaseEvent

	CurrentStep string `json:"current_step"`
}

func (e ExecutionPaused) GetType() EventType { return ExecutionPausedEvent }

type ExecutionResumed struct {
	BaseEvent

	CurrentStep string `json:"current_step"`
}

func (e ExecutionResumed) GetType() EventType { return ExecutionResumedEvent }

type ExecutionQueued struct {
	BaseEvent
}

func (e ExecutionQueued) GetType() EventType { return ExecutionQueuedEvent }

// ExecutionStartRequested is consumed by worker processes that drive the
// engine off the event bus instead of the HTTP control surface.
type ExecutionStartRequested struct {
	BaseEvent

	Initiator string `json:"initiator,omitempty"`
}

func (e ExecutionStartRequested) GetType() EventType { return ExecutionStartRequestedEvent }

type StepCompleted struct {
	BaseEvent

	NodeID     string         `json:"node_id"`
	Output     map[string]any `json:"output,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (e StepCompleted) GetType() EventType { return StepCompletedEvent }

type TaskCreated struct {
	BaseEvent

	TaskID  string         `json:"task_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (e TaskCreated) GetType() EventType { return TaskCreatedEvent }

type ApprovalRequested struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	Approver string `json:"approver"`
}

func (e ApprovalRequested) GetType() EventType { return ApprovalRequestedEvent }

type ApprovalResponded struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	Approver string `json:"approver"`
	Approved bool   `json:"approved"`
	Comment  string `json:"comment,omitempty"`
}

func (e ApprovalResponded) GetType() EventType { return ApprovalRespondedEvent }

// NotificationQueued carries an outbound notification published for the
// delivery stack to pick up. The engine treats delivery as best-effort.
type NotificationQueued struct {
	BaseEvent

	Recipient string         `json:"recipient"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"`
	Data      map[string]any `json:"data,omitempty"`
}

func (e NotificationQueued) GetType() EventType { return NotificationQueuedEvent }
