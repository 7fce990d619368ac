package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/task-service/internal/auth"
	httpController "github.com/taskflow/task-service/internal/controller/http"
	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
	"github.com/taskflow/task-service/internal/repo/memory"
	"github.com/taskflow/task-service/internal/usecase"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	jwtManager := auth.NewJWTManager(auth.JWTConfig{Secret: "client-test", TTL: time.Hour, Issuer: "task-service"})
	taskUC := usecase.NewTaskUseCase(memory.NewTaskRepository(), nil, nil)
	userUC := usecase.NewUserUseCase(memory.NewUserRepository(), auth.NewPasswordHasher(4), jwtManager)
	srv := httptest.NewServer(httpController.NewRouter(taskUC, userUC, jwtManager, httpController.RouterConfig{Quiet: true}))
	t.Cleanup(srv.Close)
	return srv
}

func newUser(t *testing.T, srv *httptest.Server, email string) *Client {
	t.Helper()
	c := New(srv.URL + "/api/v1")
	_, err := c.Register(context.Background(), entity.RegisterInput{Name: "Tester", Email: email, Password: "secret123"})
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }

func TestClientTaskLifecycle(t *testing.T) {
	srv := newServer(t)
	c := newUser(t, srv, "a@example.com")
	ctx := context.Background()

	created, err := c.CreateTask(ctx, entity.TaskInput{
		Title:    ptr("Buy milk"),
		Priority: ptr(entity.PriorityLow),
		Tags:     &[]string{"home"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := c.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := c.UpdateTask(ctx, created.ID, entity.TaskInput{Status: ptr(entity.StatusCompleted)})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.NotNil(t, updated.CompletedAt)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalTasks)

	require.NoError(t, c.DeleteTask(ctx, created.ID))
	_, err = c.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientErrors(t *testing.T) {
	srv := newServer(t)
	alice := newUser(t, srv, "alice@example.com")
	bob := newUser(t, srv, "bob@example.com")
	ctx := context.Background()

	task, err := alice.CreateTask(ctx, entity.TaskInput{Title: ptr("Secret")})
	require.NoError(t, err)

	_, err = bob.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Not authorized to access this task", apiErr.Message)

	_, err = alice.CreateTask(ctx, entity.TaskInput{})
	assert.ErrorIs(t, err, ErrBadRequest)

	anon := New(srv.URL + "/api/v1")
	_, err = anon.ListTasks(ctx, filter.Filter{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClientListSendsFilter(t *testing.T) {
	srv := newServer(t)
	c := newUser(t, srv, "a@example.com")
	ctx := context.Background()

	for _, title := range []string{"b task", "a task", "c chore"} {
		_, err := c.CreateTask(ctx, entity.TaskInput{Title: ptr(title)})
		require.NoError(t, err)
	}

	tasks, err := c.ListTasks(ctx, filter.Filter{Search: "TASK", SortBy: filter.SortTitle, Order: filter.Asc})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a task", tasks[0].Title)
	assert.Equal(t, "b task", tasks[1].Title)
}

func TestDashboardAgainstServer(t *testing.T) {
	srv := newServer(t)
	c := newUser(t, srv, "a@example.com")
	ctx := context.Background()
	d := NewDashboard(c)

	require.NoError(t, d.Save(ctx, "", entity.TaskInput{Title: ptr("Buy milk"), Priority: ptr(entity.PriorityLow)}))
	require.NoError(t, d.Save(ctx, "", entity.TaskInput{
		Title:    ptr("Write report"),
		Status:   ptr(entity.StatusInProgress),
		Priority: ptr(entity.PriorityHigh),
	}))
	assert.Equal(t, Summary{Total: 2, Pending: 1, InProgress: 1}, d.Summary())

	d.SetFilter(filter.Filter{Search: "report"})
	view := d.View()
	require.Len(t, view, 1)
	assert.Equal(t, "Write report", view[0].Title)

	// the server applies the same filter
	remote, err := c.ListTasks(ctx, d.Filter())
	require.NoError(t, err)
	assert.Equal(t, view, remote)

	require.NoError(t, d.Save(ctx, view[0].ID, entity.TaskInput{Status: ptr(entity.StatusCompleted)}))
	assert.Equal(t, Summary{Total: 2, Pending: 1, Completed: 1}, d.Summary())
	require.Len(t, d.View(), 1)

	require.NoError(t, d.Delete(ctx, view[0].ID))
	assert.Empty(t, d.View())
	assert.Equal(t, 1, d.Summary().Total)
}
