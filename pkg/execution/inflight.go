package execution

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/protocol"
)

// run is the in-memory state of one in-flight execution. mu guards the
// execution record and the retry timers; branch goroutines coordinate
// through it so step transitions and progress recomputes never race.
type run struct {
	mu        sync.Mutex
	execution *models.WorkflowExecution
	template  *models.WorkflowTemplate
	retries   map[string]*time.Timer
	wg        sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func newRun(execution *models.WorkflowExecution, template *models.WorkflowTemplate) *run {
	ctx, cancel := context.WithCancel(context.Background())

	return &run{
		execution: execution,
		template:  template,
		retries:   make(map[string]*time.Timer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// scheduleRetryLocked arms a cancellable timer for a node re-entry. An
// existing timer for the same node is replaced.
func (r *run) scheduleRetryLocked(nodeID string, delay time.Duration, fn func()) {
	if timer, ok := r.retries[nodeID]; ok {
		timer.Stop()
	}

	r.retries[nodeID] = time.AfterFunc(delay, fn)
}

// cancelRetriesLocked stops every pending retry timer. Pause and cancel
// both go through here; resume re-enters at currentStep instead of
// replaying the timers.
func (r *run) cancelRetriesLocked() {
	for nodeID, timer := range r.retries {
		timer.Stop()
		delete(r.retries, nodeID)
	}
}

func (r *run) clearRetry(nodeID string) {
	r.mu.Lock()
	delete(r.retries, nodeID)
	r.mu.Unlock()
}

// snapshotLocked builds the read-only view a handler receives. Maps are
// copied so handlers never observe concurrent branch writes.
func snapshotLocked(execution *models.WorkflowExecution) protocol.ExecutionContext {
	startedAt := execution.CreatedAt
	if execution.StartedAt != nil {
		startedAt = *execution.StartedAt
	}

	return protocol.ExecutionContext{
		ExecutionID: execution.ID,
		TemplateID:  execution.TemplateID,
		StartedAt:   startedAt,
		Variables:   maps.Clone(execution.Variables),
		Context:     maps.Clone(execution.Context),
	}
}

// inflightRegistry is the capacity-bounded set of running executions. It
// is the controller's only shared mutable state outside the runs.
type inflightRegistry struct {
	mu       sync.Mutex
	capacity int
	runs     map[string]*run
}

func newInflightRegistry(capacity int) *inflightRegistry {
	return &inflightRegistry{
		capacity: capacity,
		runs:     make(map[string]*run),
	}
}

// add registers a run if there is capacity. It returns false with a nil
// error when the engine is full, and ErrAlreadyInFlight when the id is
// already registered.
func (g *inflightRegistry) add(executionID string, r *run) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.runs[executionID]; exists {
		return false, ErrAlreadyInFlight
	}

	if g.capacity > 0 && len(g.runs) >= g.capacity {
		return false, nil
	}

	g.runs[executionID] = r

	return true, nil
}

// attach registers a run regardless of capacity. Approval continuations
// use it so a parked execution can always finish.
func (g *inflightRegistry) attach(executionID string, r *run) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.runs[executionID]; exists {
		return ErrAlreadyInFlight
	}

	g.runs[executionID] = r

	return nil
}

func (g *inflightRegistry) get(executionID string) (*run, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.runs[executionID]

	return r, ok
}

func (g *inflightRegistry) remove(executionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.runs, executionID)
}

func (g *inflightRegistry) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.runs)
}
