package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowd-io/flowd/pkg/execution"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/scheduler"
)

type fakeCreator struct {
	created atomic.Int32
	err     error
}

func (f *fakeCreator) CreateExecution(_ context.Context, templateID string, _ map[string]any) (*models.WorkflowExecution, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.created.Add(1)

	return &models.WorkflowExecution{ID: "exec-" + templateID, TemplateID: templateID}, nil
}

type fakeStarter struct {
	started atomic.Int32
}

func (f *fakeStarter) Start(_ context.Context, executionID string) (*execution.StartResult, error) {
	f.started.Add(1)

	return &execution.StartResult{ExecutionID: executionID, Status: models.ExecutionStatusRunning}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddValidatesSchedule(t *testing.T) {
	s := scheduler.NewScheduler(&fakeCreator{}, &fakeStarter{}, testLogger())

	tests := []struct {
		name     string
		schedule scheduler.Schedule
		wantErr  bool
	}{
		{
			name:     "valid five field expression",
			schedule: scheduler.Schedule{Name: "nightly", TemplateID: "tpl-1", CronExpr: "0 3 * * *", Enabled: true},
		},
		{
			name:     "valid descriptor",
			schedule: scheduler.Schedule{Name: "hourly", TemplateID: "tpl-1", CronExpr: "@hourly", Enabled: true},
		},
		{
			name:     "disabled accepted but not armed",
			schedule: scheduler.Schedule{Name: "off", TemplateID: "tpl-1", CronExpr: "0 3 * * *"},
		},
		{
			name:     "missing name",
			schedule: scheduler.Schedule{TemplateID: "tpl-1", CronExpr: "0 3 * * *", Enabled: true},
			wantErr:  true,
		},
		{
			name:     "bad expression",
			schedule: scheduler.Schedule{Name: "broken", TemplateID: "tpl-1", CronExpr: "every day", Enabled: true},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Add(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduleFires(t *testing.T) {
	creator := &fakeCreator{}
	starter := &fakeStarter{}
	s := scheduler.NewScheduler(creator, starter, testLogger())

	require.NoError(t, s.Add(scheduler.Schedule{
		Name:       "fast",
		TemplateID: "tpl-1",
		CronExpr:   "@every 50ms",
		Enabled:    true,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return starter.started.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, creator.created.Load(), starter.started.Load())
}

func TestRemoveDisarmsSchedule(t *testing.T) {
	creator := &fakeCreator{}
	starter := &fakeStarter{}
	s := scheduler.NewScheduler(creator, starter, testLogger())

	require.NoError(t, s.Add(scheduler.Schedule{
		Name:       "fast",
		TemplateID: "tpl-1",
		CronExpr:   "@every 50ms",
		Enabled:    true,
	}))
	s.Remove("fast")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	defer s.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, starter.started.Load())
}
