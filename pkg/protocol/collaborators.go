package protocol

import (
	"context"
	"time"
)

// CreateTaskRequest carries the substituted fields a task node produces.
type CreateTaskRequest struct {
	Title       string
	Description string
	Project     string
	Assignee    string
	DueDate     string
}

// TaskStore is the task-record collaborator used by task nodes.
type TaskStore interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (string, error)
}

// Notification is one outbound message to a user or channel.
type Notification struct {
	Recipient string
	Type      string
	Title     string
	Message   string
	Priority  string
	Data      map[string]any
}

// Notifier delivers notifications. Delivery failures must never fail the
// execution; callers log and continue.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// EventRules lets unrelated automation react to engine events (assignment
// emails, chat pings). Fire is fire-and-forget from the engine's side.
type EventRules interface {
	Fire(ctx context.Context, eventName string, payload map[string]any)
}

// CallRequest is a generic outbound HTTP call made by api_call nodes.
type CallRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
	Timeout time.Duration
}

// CallResponse carries the status and body of a completed call.
type CallResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// HTTPCaller performs outbound HTTP calls for api_call nodes.
type HTTPCaller interface {
	Call(ctx context.Context, req CallRequest) (*CallResponse, error)
}
