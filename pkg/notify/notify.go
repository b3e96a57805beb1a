// Package notify provides Notifier implementations. Delivery is
// best-effort everywhere: a lost notification never fails an execution.
package notify

import (
	"context"
	"log/slog"

	"github.com/flowd-io/flowd/pkg/eventbus"
	"github.com/flowd-io/flowd/pkg/events"
	"github.com/flowd-io/flowd/pkg/protocol"
)

// EventBusNotifier publishes notifications to the event bus so a delivery
// service (mailer, chat bridge) can pick them up asynchronously.
type EventBusNotifier struct {
	bus    eventbus.EventBus
	logger *slog.Logger
}

func NewEventBusNotifier(bus eventbus.EventBus, logger *slog.Logger) *EventBusNotifier {
	return &EventBusNotifier{
		bus:    bus,
		logger: logger.With("module", "notify"),
	}
}

func (n *EventBusNotifier) Send(ctx context.Context, notification protocol.Notification) error {
	event := events.NotificationQueued{
		BaseEvent: events.NewBaseEvent(events.NotificationQueuedEvent, "", ""),
		Recipient: notification.Recipient,
		Kind:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		Priority:  notification.Priority,
		Data:      notification.Data,
	}

	if err := n.bus.Publish(ctx, "", event); err != nil {
		n.logger.ErrorContext(ctx, "Failed to publish notification",
			"recipient", notification.Recipient, "error", err)

		return err
	}

	return nil
}

// LogNotifier writes notifications to the structured log. It is the
// default for local development and tests.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (n *LogNotifier) Send(ctx context.Context, notification protocol.Notification) error {
	n.logger.InfoContext(ctx, "Notification",
		"recipient", notification.Recipient,
		"type", notification.Type,
		"title", notification.Title,
		"priority", notification.Priority,
	)

	return nil
}
