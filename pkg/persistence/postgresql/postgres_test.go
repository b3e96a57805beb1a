package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/persistence"
	"github.com/flowd-io/flowd/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"workflow_executions", "workflow_templates", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowd_test"),
			postgres.WithUsername("flowd"),
			postgres.WithPassword("flowd"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	persist, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, persist.Close(ctx))
		cancel()
	})

	return persist, ctx, databaseURL
}

func sampleTemplate(id string) *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:      id,
		Name:    "release checklist",
		Version: 1,
		Owner:   "ops",
		Nodes: []*models.Node{
			{ID: "begin", Type: models.NodeTypeStart},
			{ID: "work", Type: models.NodeTypeTask, Config: map[string]any{"title": "ship it"}},
			{ID: "finish", Type: models.NodeTypeEnd},
		},
		Connections: []*models.Connection{
			{Source: "begin", Target: "work"},
			{Source: "work", Target: "finish"},
		},
		Variables: []*models.Variable{
			{Name: "owner", Type: "string", Required: true},
		},
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'workflow_templates')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "workflow_templates table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'workflow_executions')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "workflow_executions table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestTemplateRepository_RoundTrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.TemplateRepository()

	template := sampleTemplate(uuid.New().String())
	require.NoError(t, repo.SaveTemplate(ctx, template))

	loaded, err := repo.TemplateByID(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, template.Name, loaded.Name)
	assert.Equal(t, template.Owner, loaded.Owner)
	require.Len(t, loaded.Nodes, 3)
	assert.Equal(t, "ship it", loaded.Nodes[1].Config["title"])

	// Saving again with the same id overwrites.
	template.Name = "release checklist v2"
	require.NoError(t, repo.SaveTemplate(ctx, template))

	loaded, err = repo.TemplateByID(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "release checklist v2", loaded.Name)

	all, err := repo.Templates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteTemplate(ctx, template.ID))

	_, err = repo.TemplateByID(ctx, template.ID)
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestExecutionRepository_RoundTrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.ExecutionRepository()

	template := sampleTemplate(uuid.New().String())
	exec := models.NewExecution(uuid.New().String(), template, map[string]any{"owner": "ada"})
	require.NoError(t, repo.CreateExecution(ctx, exec))

	assert.ErrorIs(t, repo.CreateExecution(ctx, exec), persistence.ErrExecutionAlreadyExists)

	exec.Status = models.ExecutionStatusRunning
	exec.CurrentStep = "work"
	exec.Steps[0].Status = models.StepStatusCompleted
	exec.Context["last_task_id"] = "task-1"
	exec.RecomputeProgress()
	require.NoError(t, repo.UpdateExecution(ctx, exec))

	loaded, err := repo.ExecutionByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, loaded.Status)
	assert.Equal(t, "work", loaded.CurrentStep)
	assert.Equal(t, "task-1", loaded.Context["last_task_id"])
	assert.Equal(t, models.StepStatusCompleted, loaded.Steps[0].Status)

	byTemplate, err := repo.ExecutionsByTemplate(ctx, template.ID)
	require.NoError(t, err)
	assert.Len(t, byTemplate, 1)

	_, err = repo.ExecutionByID(ctx, "ghost")
	assert.True(t, persistence.IsExecutionNotFound(err))
}
