package execution_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flowd-io/flowd/pkg/execution"
	"github.com/flowd-io/flowd/pkg/httpclient"
	"github.com/flowd-io/flowd/pkg/mocks"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/notify"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/flowd-io/flowd/pkg/persistence/file"
	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/flowd-io/flowd/pkg/registry"
	"github.com/flowd-io/flowd/pkg/services"
	"github.com/flowd-io/flowd/pkg/taskstore"
	"github.com/flowd-io/flowd/pkg/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCollaborators() registry.Collaborators {
	return registry.Collaborators{
		TaskStore:  taskstore.NewMemoryStore(),
		Notifier:   notify.NewLogNotifier(testLogger()),
		EventRules: notify.NopRules{},
		HTTPCaller: httpclient.NewClient(),
	}
}

type engine struct {
	controller *execution.Controller
	persist    persistence.Persistence
	executions *services.Execution
}

func newEngine(t *testing.T, cfg execution.Config, collab registry.Collaborators) *engine {
	t.Helper()

	logger := testLogger()
	persist := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultHandlers(collab, logger)

	return &engine{
		controller: execution.NewController(persist, reg, nil, nil, logger, cfg),
		persist:    persist,
		executions: services.NewExecution(persist),
	}
}

func (e *engine) createExecution(t *testing.T, template *models.WorkflowTemplate, inputs map[string]any) *models.WorkflowExecution {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, e.persist.TemplateRepository().SaveTemplate(ctx, template))

	exec, err := e.executions.CreateExecution(ctx, template.ID, inputs)
	require.NoError(t, err)

	return exec
}

func (e *engine) waitForStatus(t *testing.T, executionID string, status models.ExecutionStatus) *models.WorkflowExecution {
	t.Helper()

	var record *models.WorkflowExecution

	require.Eventually(t, func() bool {
		var err error

		record, err = e.controller.Status(context.Background(), executionID)
		if err != nil {
			return false
		}

		return record.Status == status
	}, 5*time.Second, 10*time.Millisecond, "execution %s never reached %s", executionID, status)

	return record
}

func (e *engine) waitForStep(t *testing.T, executionID, nodeID string, status models.StepStatus) *models.WorkflowExecution {
	t.Helper()

	var record *models.WorkflowExecution

	require.Eventually(t, func() bool {
		var err error

		record, err = e.controller.Status(context.Background(), executionID)
		if err != nil {
			return false
		}

		step := record.StepByNode(nodeID)

		return step != nil && step.Status == status
	}, 5*time.Second, 10*time.Millisecond, "step %s never reached %s", nodeID, status)

	return record
}

func TestStartTaskEndScenario(t *testing.T) {
	taskStore := &mocks.MockTaskStore{}
	taskStore.On("CreateTask", mock.Anything, mock.MatchedBy(func(req protocol.CreateTaskRequest) bool {
		return req.Title == "Follow up" && req.DueDate == "2025-01-01"
	})).Return("task-1", nil).Once()

	collab := testCollaborators()
	collab.TaskStore = taskStore

	e := newEngine(t, execution.Config{}, collab)

	template := testutil.LinearTemplate(
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("follow-up", models.NodeTypeTask, testutil.WithConfig(map[string]any{
			"title":    "Follow up",
			"due_date": "{{dueDate}}",
		})),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	)
	template.Variables = []*models.Variable{
		{Name: "dueDate", Type: "date", Required: true},
	}

	exec := e.createExecution(t, template, map[string]any{"dueDate": "2025-01-01"})
	require.Equal(t, models.ExecutionStatusPending, exec.Status)
	require.Len(t, exec.Steps, 3)

	result, err := e.controller.Start(context.Background(), exec.ID)
	require.NoError(t, err)
	require.False(t, result.Queued)
	require.Equal(t, models.ExecutionStatusRunning, result.Status)

	record := e.waitForStatus(t, exec.ID, models.ExecutionStatusCompleted)

	taskStore.AssertExpectations(t)
	require.Equal(t, 100, record.Progress.Percentage)
	require.Equal(t, 3, record.Progress.CompletedSteps)
	require.NotNil(t, record.StartedAt)
	require.NotNil(t, record.CompletedAt)

	taskStep := record.StepByNode("follow-up")
	require.Equal(t, models.StepStatusCompleted, taskStep.Status)
	require.Equal(t, "task-1", taskStep.Output["task_id"])
	require.Equal(t, "task-1", record.Context["last_task_id"])

	// The recorded step input is the node config with tokens resolved.
	require.Equal(t, "Follow up", taskStep.Input["title"])
	require.Equal(t, "2025-01-01", taskStep.Input["due_date"])
}

// failingFactory replaces the task factory with one whose handler always
// errors, to exercise the retry schedule.
type failingFactory struct {
	calls *atomic.Int32
}

func (f *failingFactory) Create(node *models.Node) (protocol.NodeHandler, error) {
	return &failingHandler{id: node.ID, calls: f.calls}, nil
}

func (f *failingFactory) Type() models.NodeType { return models.NodeTypeTask }
func (f *failingFactory) Name() string          { return "Failing Task" }
func (f *failingFactory) Description() string   { return "Always fails" }
func (f *failingFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

type failingHandler struct {
	id    string
	calls *atomic.Int32
}

func (h *failingHandler) NodeID() string        { return h.id }
func (h *failingHandler) Type() models.NodeType { return models.NodeTypeTask }

func (h *failingHandler) Execute(_ context.Context, _ protocol.ExecutionContext) (*protocol.HandlerResult, error) {
	h.calls.Add(1)

	return nil, context.DeadlineExceeded
}

func TestRetryExhaustionFailsRun(t *testing.T) {
	backoff := []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond, time.Millisecond, time.Millisecond}

	calls := &atomic.Int32{}

	e := newEngine(t, execution.Config{Backoff: backoff}, testCollaborators())

	logger := testLogger()
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultHandlers(testCollaborators(), logger)
	reg.RegisterHandler(&failingFactory{calls: calls})

	e.controller = execution.NewController(e.persist, reg, nil, nil, logger, execution.Config{Backoff: backoff})

	template := testutil.LinearTemplate(
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("doomed", models.NodeTypeTask, testutil.WithConfig(map[string]any{"title": "x"})),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	)

	exec := e.createExecution(t, template, nil)

	_, err := e.controller.Start(context.Background(), exec.ID)
	require.NoError(t, err)

	record := e.waitForStatus(t, exec.ID, models.ExecutionStatusFailed)

	step := record.StepByNode("doomed")
	require.Equal(t, models.StepStatusFailed, step.Status)
	require.Equal(t, len(backoff), step.RetryCount)
	require.NotEmpty(t, step.Error)

	// Initial attempt plus one per schedule slot.
	require.Equal(t, int32(len(backoff)+1), calls.Load())

	require.Len(t, record.Errors, len(backoff)+1)
	require.Equal(t, models.StepStatusPending, record.StepByNode("finish").Status)
	require.NotNil(t, record.CompletedAt)
}

func TestConditionBranching(t *testing.T) {
	e := newEngine(t, execution.Config{}, testCollaborators())

	nodes := []*models.Node{
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("check", models.NodeTypeCondition, testutil.WithConfig(map[string]any{
			"expression": "{{score}} > 10",
		})),
		testutil.CreateTestNode("high", models.NodeTypeCondition, testutil.WithConfig(map[string]any{
			"expression": "1 == 1",
		})),
		testutil.CreateTestNode("low", models.NodeTypeCondition, testutil.WithConfig(map[string]any{
			"expression": "1 == 1",
		})),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	}
	connections := []*models.Connection{
		testutil.Connect("begin", "check"),
		testutil.ConnectIf("check", "high", "{{check_result}} == true"),
		testutil.ConnectIf("check", "low", "{{check_result}} == false"),
		testutil.Connect("high", "finish"),
		testutil.Connect("low", "finish"),
	}
	template := testutil.CreateTestTemplate(nodes, connections, testutil.WithVariables(
		&models.Variable{Name: "score", Type: "number", Required: true},
	))

	exec := e.createExecution(t, template, map[string]any{"score": 15})

	_, err := e.controller.Start(context.Background(), exec.ID)
	require.NoError(t, err)

	record := e.waitForStatus(t, exec.ID, models.ExecutionStatusCompleted)

	require.Equal(t, models.StepStatusCompleted, record.StepByNode("high").Status)
	require.Equal(t, models.StepStatusPending, record.StepByNode("low").Status)
	require.Equal(t, true, record.Context["check_result"])
}

func TestParallelFanOutMergesWithoutDoubleCounting(t *testing.T) {
	e := newEngine(t, execution.Config{}, testCollaborators())

	nodes := []*models.Node{
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("split", models.NodeTypeParallel),
		testutil.CreateTestNode("left", models.NodeTypeCondition, testutil.WithConfig(map[string]any{
			"expression": "1 == 1",
		})),
		testutil.CreateTestNode("right", models.NodeTypeCondition, testutil.WithConfig(map[string]any{
			"expression": "2 > 1",
		})),
		testutil.CreateTestNode("join", models.NodeTypeMerge),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	}
	connections := []*models.Connection{
		testutil.Connect("begin", "split"),
		testutil.Connect("split", "left"),
		testutil.Connect("split", "right"),
		testutil.Connect("left", "join"),
		testutil.Connect("right", "join"),
		testutil.Connect("join", "finish"),
	}
	template := testutil.CreateTestTemplate(nodes, connections)

	exec := e.createExecution(t, template, nil)

	_, err := e.controller.Start(context.Background(), exec.ID)
	require.NoError(t, err)

	record := e.waitForStatus(t, exec.ID, models.ExecutionStatusCompleted)

	require.Equal(t, 6, record.Progress.TotalSteps)
	require.Equal(t, 6, record.Progress.CompletedSteps)
	require.Equal(t, 100, record.Progress.Percentage)
	require.Equal(t, models.StepStatusCompleted, record.StepByNode("left").Status)
	require.Equal(t, models.StepStatusCompleted, record.StepByNode("right").Status)
}

func TestApprovalPauseResumeRespond(t *testing.T) {
	e := newEngine(t, execution.Config{}, testCollaborators())

	template := testutil.LinearTemplate(
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("approve", models.NodeTypeApproval, testutil.WithConfig(map[string]any{
			"approver": "team-lead",
		})),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	)

	exec := e.createExecution(t, template, nil)
	ctx := context.Background()

	_, err := e.controller.Start(ctx, exec.ID)
	require.NoError(t, err)

	record := e.waitForStep(t, exec.ID, "approve", models.StepStatusWaitingApproval)
	require.Equal(t, models.ExecutionStatusRunning, record.Status)
	require.Equal(t, "approve", record.CurrentStep)

	// Pause while parked, then resume from the current step.
	require.NoError(t, e.controller.Pause(ctx, exec.ID))
	record = e.waitForStatus(t, exec.ID, models.ExecutionStatusPaused)
	require.Equal(t, "approve", record.CurrentStep)

	_, err = e.controller.Resume(ctx, exec.ID)
	require.NoError(t, err)
	e.waitForStep(t, exec.ID, "approve", models.StepStatusWaitingApproval)

	require.NoError(t, e.controller.RespondApproval(ctx, exec.ID, "approve", true, "lgtm"))

	record = e.waitForStatus(t, exec.ID, models.ExecutionStatusCompleted)
	require.Equal(t, true, record.Context["approve_approved"])
	require.Equal(t, "lgtm", record.Context["approve_comment"])
	require.Equal(t, models.StepStatusCompleted, record.StepByNode("approve").Status)
}

func TestApprovalRespondedWhilePausedSurvivesResume(t *testing.T) {
	e := newEngine(t, execution.Config{}, testCollaborators())

	template := testutil.LinearTemplate(
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("approve", models.NodeTypeApproval, testutil.WithConfig(map[string]any{
			"approver": "team-lead",
		})),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	)

	exec := e.createExecution(t, template, nil)
	ctx := context.Background()

	_, err := e.controller.Start(ctx, exec.ID)
	require.NoError(t, err)

	e.waitForStep(t, exec.ID, "approve", models.StepStatusWaitingApproval)

	// The decision arrives while the execution is paused: the step
	// completes but the walk waits for the resume.
	require.NoError(t, e.controller.Pause(ctx, exec.ID))
	require.NoError(t, e.controller.RespondApproval(ctx, exec.ID, "approve", true, "ship it"))

	record, err := e.controller.Status(ctx, exec.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusPaused, record.Status)
	require.Equal(t, models.StepStatusCompleted, record.StepByNode("approve").Status)

	_, err = e.controller.Resume(ctx, exec.ID)
	require.NoError(t, err)

	record = e.waitForStatus(t, exec.ID, models.ExecutionStatusCompleted)

	// The recorded decision is final; the resume must not reopen the step.
	approveStep := record.StepByNode("approve")
	require.Equal(t, models.StepStatusCompleted, approveStep.Status)
	require.Equal(t, true, approveStep.Output["approved"])
	require.Equal(t, "ship it", approveStep.Output["comment"])
	require.Equal(t, true, record.Context["approve_approved"])
	require.Equal(t, models.StepStatusCompleted, record.StepByNode("finish").Status)
}

func TestCancelReleasesDelayedBranch(t *testing.T) {
	e := newEngine(t, execution.Config{}, testCollaborators())

	template := testutil.LinearTemplate(
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("wait", models.NodeTypeDelay, testutil.WithConfig(map[string]any{
			"duration": "30s",
		})),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	)

	exec := e.createExecution(t, template, nil)
	ctx := context.Background()

	_, err := e.controller.Start(ctx, exec.ID)
	require.NoError(t, err)

	e.waitForStep(t, exec.ID, "wait", models.StepStatusRunning)

	require.NoError(t, e.controller.Cancel(ctx, exec.ID))

	record, err := e.controller.Status(ctx, exec.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusCancelled, record.Status)
	require.NotNil(t, record.CompletedAt)

	// The delayed branch observed cancellation; the run stays cancelled and
	// the end step never runs.
	time.Sleep(50 * time.Millisecond)

	record, err = e.controller.Status(ctx, exec.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusCancelled, record.Status)
	require.Equal(t, models.StepStatusPending, record.StepByNode("finish").Status)
}

func TestStartAtCapacityReportsQueued(t *testing.T) {
	e := newEngine(t, execution.Config{MaxConcurrent: 1}, testCollaborators())

	template := testutil.LinearTemplate(
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("approve", models.NodeTypeApproval, testutil.WithConfig(map[string]any{
			"approver": "team-lead",
		})),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	)

	ctx := context.Background()
	first := e.createExecution(t, template, nil)
	second, err := e.executions.CreateExecution(ctx, template.ID, nil)
	require.NoError(t, err)

	_, err = e.controller.Start(ctx, first.ID)
	require.NoError(t, err)
	e.waitForStep(t, first.ID, "approve", models.StepStatusWaitingApproval)

	result, err := e.controller.Start(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, result.Queued)

	record, err := e.controller.Status(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusPending, record.Status)

	// Finishing the first run frees capacity for an explicit re-start.
	require.NoError(t, e.controller.RespondApproval(ctx, first.ID, "approve", true, ""))
	e.waitForStatus(t, first.ID, models.ExecutionStatusCompleted)

	result, err = e.controller.Start(ctx, second.ID)
	require.NoError(t, err)
	require.False(t, result.Queued)
	e.waitForStep(t, second.ID, "approve", models.StepStatusWaitingApproval)
}

func TestInvalidTransitions(t *testing.T) {
	e := newEngine(t, execution.Config{}, testCollaborators())

	template := testutil.LinearTemplate(
		testutil.CreateTestNode("begin", models.NodeTypeStart),
		testutil.CreateTestNode("finish", models.NodeTypeEnd),
	)

	exec := e.createExecution(t, template, nil)
	ctx := context.Background()

	err := e.controller.Pause(ctx, exec.ID)
	require.True(t, execution.IsInvalidTransition(err))

	_, err = e.controller.Resume(ctx, exec.ID)
	require.True(t, execution.IsInvalidTransition(err))

	_, err = e.controller.Start(ctx, exec.ID)
	require.NoError(t, err)
	e.waitForStatus(t, exec.ID, models.ExecutionStatusCompleted)

	_, err = e.controller.Start(ctx, exec.ID)
	require.True(t, execution.IsInvalidTransition(err))

	err = e.controller.Cancel(ctx, exec.ID)
	require.True(t, execution.IsInvalidTransition(err))
}
