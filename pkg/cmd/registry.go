// Package cmd provides common initialization for the command-line
// binaries: persistence, event bus and handler registry wiring.
package cmd

import (
	"log/slog"

	"github.com/flowd-io/flowd/pkg/eventbus"
	"github.com/flowd-io/flowd/pkg/httpclient"
	"github.com/flowd-io/flowd/pkg/notify"
	"github.com/flowd-io/flowd/pkg/registry"
	"github.com/flowd-io/flowd/pkg/taskstore"
)

// NewRegistry builds the handler registry with the default collaborator
// set: in-memory task store, bus-backed notifier and rules, shared HTTP
// client. A nil bus falls back to log-only delivery.
func NewRegistry(bus eventbus.EventBus, logger *slog.Logger) *registry.Registry {
	collaborators := registry.Collaborators{
		TaskStore:  taskstore.NewMemoryStore(),
		HTTPCaller: httpclient.NewClient(),
	}

	if bus != nil {
		collaborators.Notifier = notify.NewEventBusNotifier(bus, logger)
		collaborators.EventRules = notify.NewBusRules(bus, logger)
	} else {
		collaborators.Notifier = notify.NewLogNotifier(logger)
		collaborators.EventRules = notify.NopRules{}
	}

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultHandlers(collaborators, logger)

	return reg
}
