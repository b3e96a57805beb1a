package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowd-io/flowd/pkg/models"
)

func TestNewExecution(t *testing.T) {
	template := &models.WorkflowTemplate{
		ID:          "tpl-1",
		Nodes:       linearNodes(),
		Connections: linearConnections(),
	}

	exec := models.NewExecution("exec-1", template, map[string]any{"k": "v"})

	assert.Equal(t, "exec-1", exec.ID)
	assert.Equal(t, "tpl-1", exec.TemplateID)
	assert.Equal(t, models.ExecutionStatusPending, exec.Status)
	require.Len(t, exec.Steps, 3)

	for _, step := range exec.Steps {
		assert.Equal(t, models.StepStatusPending, step.Status)
	}

	assert.Equal(t, 3, exec.Progress.TotalSteps)
	assert.Equal(t, 0, exec.Progress.Percentage)
	assert.NotNil(t, exec.Context)
	assert.Equal(t, "v", exec.Variables["k"])
}

func TestRecomputeProgressRounding(t *testing.T) {
	exec := &models.WorkflowExecution{
		Steps: []*models.Step{
			{NodeID: "a", Status: models.StepStatusCompleted},
			{NodeID: "b", Status: models.StepStatusCompleted},
			{NodeID: "c", Status: models.StepStatusFailed},
			{NodeID: "d", Status: models.StepStatusPending},
			{NodeID: "e", Status: models.StepStatusPending},
			{NodeID: "f", Status: models.StepStatusPending},
		},
	}

	exec.RecomputeProgress()

	assert.Equal(t, 6, exec.Progress.TotalSteps)
	assert.Equal(t, 2, exec.Progress.CompletedSteps)
	assert.Equal(t, 1, exec.Progress.FailedSteps)
	assert.Equal(t, 33, exec.Progress.Percentage)

	exec.Steps[2].Status = models.StepStatusCompleted
	exec.Steps[3].Status = models.StepStatusCompleted
	exec.RecomputeProgress()
	// 4/6 rounds up, it does not truncate to 66.
	assert.Equal(t, 67, exec.Progress.Percentage)
}

func TestExecutionStatusIsTerminal(t *testing.T) {
	terminal := []models.ExecutionStatus{
		models.ExecutionStatusCompleted,
		models.ExecutionStatusFailed,
		models.ExecutionStatusCancelled,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}

	open := []models.ExecutionStatus{
		models.ExecutionStatusPending,
		models.ExecutionStatusRunning,
		models.ExecutionStatusPaused,
	}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestCloneIsDeep(t *testing.T) {
	exec := &models.WorkflowExecution{
		ID:     "exec-1",
		Status: models.ExecutionStatusRunning,
		Steps: []*models.Step{
			{NodeID: "a", Status: models.StepStatusCompleted, Output: map[string]any{"x": 1}},
		},
		Variables: map[string]any{"k": "v"},
		Context:   map[string]any{"c": "1"},
	}
	exec.AppendLog("info", "a", "done in %dms", 5)
	exec.AppendError("a", "boom")

	clone := exec.Clone()

	clone.Steps[0].Output["x"] = 2
	clone.Steps[0].Status = models.StepStatusFailed
	clone.Variables["k"] = "changed"
	clone.Context["c"] = "2"
	clone.AppendLog("info", "", "extra")

	assert.Equal(t, 1, exec.Steps[0].Output["x"])
	assert.Equal(t, models.StepStatusCompleted, exec.Steps[0].Status)
	assert.Equal(t, "v", exec.Variables["k"])
	assert.Equal(t, "1", exec.Context["c"])
	assert.Len(t, exec.Logs, 1)
	assert.Equal(t, "done in 5ms", exec.Logs[0].Message)
	assert.Len(t, exec.Errors, 1)
}

func TestDuration(t *testing.T) {
	exec := &models.WorkflowExecution{}
	assert.Zero(t, exec.Duration())

	started := exec.CreatedAt.Add(0)
	exec.StartedAt = &started
	assert.Zero(t, exec.Duration())

	completed := started.Add(1500 * time.Millisecond)
	exec.CompletedAt = &completed
	assert.Equal(t, completed.Sub(started), exec.Duration())
}
