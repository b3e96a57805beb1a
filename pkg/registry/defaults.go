// Package registry provides default handler registration for the built-in
// node types.
package registry

import (
	"log/slog"

	"github.com/flowd-io/flowd/pkg/nodes/apicall"
	"github.com/flowd-io/flowd/pkg/nodes/approval"
	"github.com/flowd-io/flowd/pkg/nodes/condition"
	"github.com/flowd-io/flowd/pkg/nodes/delay"
	"github.com/flowd-io/flowd/pkg/nodes/email"
	endnode "github.com/flowd-io/flowd/pkg/nodes/end"
	"github.com/flowd-io/flowd/pkg/nodes/merge"
	"github.com/flowd-io/flowd/pkg/nodes/parallel"
	"github.com/flowd-io/flowd/pkg/nodes/start"
	"github.com/flowd-io/flowd/pkg/nodes/task"
	"github.com/flowd-io/flowd/pkg/protocol"
)

// Collaborators holds the external services node handlers depend on.
type Collaborators struct {
	TaskStore  protocol.TaskStore
	Notifier   protocol.Notifier
	EventRules protocol.EventRules
	HTTPCaller protocol.HTTPCaller
}

// RegisterDefaultHandlers registers all built-in node handler factories.
func (r *Registry) RegisterDefaultHandlers(c Collaborators, logger *slog.Logger) {
	r.RegisterHandler(start.NewFactory())
	r.RegisterHandler(task.NewFactory(c.TaskStore, c.EventRules))
	r.RegisterHandler(condition.NewFactory())
	r.RegisterHandler(parallel.NewFactory())
	r.RegisterHandler(merge.NewFactory())
	r.RegisterHandler(delay.NewFactory())
	r.RegisterHandler(email.NewFactory(c.Notifier, logger))
	r.RegisterHandler(email.NewNotifyFactory(c.Notifier, logger))
	r.RegisterHandler(approval.NewFactory(c.Notifier, logger))
	r.RegisterHandler(apicall.NewFactory(c.HTTPCaller))
	r.RegisterHandler(endnode.NewFactory(c.Notifier, logger))
}
