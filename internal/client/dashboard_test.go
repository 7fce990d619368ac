package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
)

type fakeAPI struct {
	tasks     []entity.Task
	listCalls int
	listErr   error
	writeErr  error
}

func (f *fakeAPI) ListTasks(_ context.Context, _ filter.Filter) ([]entity.Task, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]entity.Task(nil), f.tasks...), nil
}

func (f *fakeAPI) CreateTask(_ context.Context, in entity.TaskInput) (entity.Task, error) {
	if f.writeErr != nil {
		return entity.Task{}, f.writeErr
	}
	t := entity.Task{ID: "new", Title: *in.Title, Status: entity.StatusPending, Priority: entity.PriorityMedium}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id string, _ entity.TaskInput) (entity.Task, error) {
	return entity.Task{ID: id}, f.writeErr
}

func (f *fakeAPI) DeleteTask(_ context.Context, id string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			break
		}
	}
	return nil
}

type recordingNotifier struct {
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Error(msg string, _ error) { n.errors = append(n.errors, msg) }

func sampleTasks() []entity.Task {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	due := base.Add(48 * time.Hour)
	return []entity.Task{
		{ID: "1", Title: "Buy milk", Status: entity.StatusPending, Priority: entity.PriorityLow, CreatedAt: base},
		{ID: "2", Title: "Write report", Description: "quarterly", Status: entity.StatusInProgress, Priority: entity.PriorityHigh, CreatedAt: base.Add(time.Hour), DueDate: &due},
		{ID: "3", Title: "File taxes", Status: entity.StatusCompleted, Priority: entity.PriorityHigh, CreatedAt: base.Add(2 * time.Hour), Completed: true},
	}
}

func ids(tasks []entity.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestDashboardRefresh(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	d := NewDashboard(api)

	require.NoError(t, d.Refresh(context.Background()))

	assert.Equal(t, Summary{Total: 3, Pending: 1, InProgress: 1, Completed: 1}, d.Summary())
	assert.Equal(t, []string{"3", "2", "1"}, ids(d.View()))
}

func TestDashboardFiltersLocally(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	d := NewDashboard(api)
	require.NoError(t, d.Refresh(context.Background()))

	d.SetFilter(filter.Filter{Priority: "high", SortBy: filter.SortTitle, Order: filter.Asc})
	assert.Equal(t, []string{"3", "2"}, ids(d.View()))

	d.SetFilter(filter.Filter{Search: "QUARTER"})
	assert.Equal(t, []string{"2"}, ids(d.View()))

	d.SetFilter(filter.Filter{SortBy: filter.SortDueDate, Order: filter.Asc})
	assert.Equal(t, []string{"1", "3", "2"}, ids(d.View()))

	assert.Equal(t, 1, api.listCalls)
	assert.Equal(t, 3, d.Summary().Total)

	d.ClearFilters()
	assert.Equal(t, filter.Filter{SortBy: filter.DefaultSortBy, Order: filter.Desc}, d.Filter())
	assert.Len(t, d.View(), 3)
}

func TestDashboardSaveRefetches(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	n := &recordingNotifier{}
	d := NewDashboard(api, WithNotifier(n))
	require.NoError(t, d.Refresh(context.Background()))

	title := "New one"
	require.NoError(t, d.Save(context.Background(), "", entity.TaskInput{Title: &title}))

	assert.Equal(t, 2, api.listCalls)
	assert.Equal(t, 4, d.Summary().Total)
	assert.Equal(t, []string{"Task created successfully"}, n.successes)

	require.NoError(t, d.Delete(context.Background(), "1"))
	assert.Equal(t, 3, d.Summary().Total)
	assert.Equal(t, "Task deleted successfully", n.successes[1])
}

func TestDashboardReportsFailures(t *testing.T) {
	api := &fakeAPI{tasks: sampleTasks()}
	n := &recordingNotifier{}
	d := NewDashboard(api, WithNotifier(n))
	require.NoError(t, d.Refresh(context.Background()))

	api.writeErr = &APIError{StatusCode: 403, Message: "Not authorized to update this task"}
	err := d.Save(context.Background(), "2", entity.TaskInput{})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, []string{"Not authorized to update this task"}, n.errors)
	assert.Equal(t, 1, api.listCalls)

	assert.Error(t, d.Delete(context.Background(), "2"))
	assert.Equal(t, "Failed to delete task", n.errors[1])

	api.listErr = errors.New("offline")
	assert.Error(t, d.Refresh(context.Background()))
	assert.Equal(t, "Failed to fetch tasks", n.errors[2])
	assert.Len(t, d.View(), 3)
}
