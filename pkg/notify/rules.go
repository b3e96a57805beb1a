package notify

import (
	"context"
	"log/slog"

	"github.com/flowd-io/flowd/pkg/eventbus"
	"github.com/flowd-io/flowd/pkg/events"
)

// BusRules forwards engine rule firings to the event bus so downstream
// automation (assignment emails, chat pings) can react. Failures are
// logged and swallowed: rule delivery never affects the execution.
type BusRules struct {
	bus    eventbus.EventBus
	logger *slog.Logger
}

func NewBusRules(bus eventbus.EventBus, logger *slog.Logger) *BusRules {
	return &BusRules{
		bus:    bus,
		logger: logger.With("module", "rules"),
	}
}

func (r *BusRules) Fire(ctx context.Context, eventName string, payload map[string]any) {
	event := toEvent(eventName, payload)
	if event == nil {
		r.logger.DebugContext(ctx, "No event mapping for rule, skipping", "event", eventName)

		return
	}

	if err := r.bus.Publish(ctx, "", event); err != nil {
		r.logger.ErrorContext(ctx, "Failed to fire rule event", "event", eventName, "error", err)
	}
}

func toEvent(eventName string, payload map[string]any) eventbus.Event {
	switch eventName {
	case string(events.TaskCreatedEvent):
		executionID, _ := payload["execution_id"].(string)
		taskID, _ := payload["task_id"].(string)

		return events.TaskCreated{
			BaseEvent: events.NewBaseEvent(events.TaskCreatedEvent, executionID, ""),
			TaskID:    taskID,
			Payload:   payload,
		}
	default:
		return nil
	}
}

// NopRules discards every firing. Used in tests and in binaries that run
// without an event bus.
type NopRules struct{}

func (NopRules) Fire(context.Context, string, map[string]any) {}
