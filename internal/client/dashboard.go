package client

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
	"github.com/taskflow/task-service/pkg/logger"
)

// TaskAPI is the part of Client the dashboard needs.
type TaskAPI interface {
	ListTasks(ctx context.Context, f filter.Filter) ([]entity.Task, error)
	CreateTask(ctx context.Context, in entity.TaskInput) (entity.Task, error)
	UpdateTask(ctx context.Context, id string, in entity.TaskInput) (entity.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Notifier surfaces the outcome of user actions.
type Notifier interface {
	Success(msg string)
	Error(msg string, err error)
}

type logNotifier struct {
	log *logrus.Logger
}

func (n logNotifier) Success(msg string) {
	n.log.Info(msg)
}

func (n logNotifier) Error(msg string, err error) {
	n.log.WithError(err).Error(msg)
}

// Summary counts the full task set, independent of the current filter.
type Summary struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
}

func summarize(tasks []entity.Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case entity.StatusPending:
			s.Pending++
		case entity.StatusInProgress:
			s.InProgress++
		case entity.StatusCompleted:
			s.Completed++
		}
	}
	return s
}

// Dashboard holds the caller's full task set and a filtered view of it.
// Filter changes are applied locally; writes go to the API and are followed
// by a full re-fetch.
type Dashboard struct {
	api    TaskAPI
	notify Notifier

	mu      sync.RWMutex
	tasks   []entity.Task
	filter  filter.Filter
	view    []entity.Task
	summary Summary
}

type DashboardOption func(*Dashboard)

func WithNotifier(n Notifier) DashboardOption {
	return func(d *Dashboard) { d.notify = n }
}

func NewDashboard(api TaskAPI, opts ...DashboardOption) *Dashboard {
	d := &Dashboard{
		api:    api,
		notify: logNotifier{log: logger.Log},
		filter: filter.Filter{}.Normalized(),
		view:   []entity.Task{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Refresh fetches every task of the caller, then recomputes the summary and
// the view.
func (d *Dashboard) Refresh(ctx context.Context) error {
	tasks, err := d.api.ListTasks(ctx, filter.Filter{})
	if err != nil {
		d.notify.Error("Failed to fetch tasks", err)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = tasks
	d.summary = summarize(tasks)
	d.view = d.filter.Apply(tasks)
	return nil
}

func (d *Dashboard) SetFilter(f filter.Filter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filter = f.Normalized()
	d.view = d.filter.Apply(d.tasks)
}

func (d *Dashboard) ClearFilters() {
	d.SetFilter(filter.Filter{})
}

// Save creates a task when id is empty and updates it otherwise.
func (d *Dashboard) Save(ctx context.Context, id string, in entity.TaskInput) error {
	var (
		err error
		msg string
	)
	if id == "" {
		_, err = d.api.CreateTask(ctx, in)
		msg = "Task created successfully"
	} else {
		_, err = d.api.UpdateTask(ctx, id, in)
		msg = "Task updated successfully"
	}
	if err != nil {
		d.notify.Error(errorMessage(err, "Operation failed"), err)
		return err
	}

	d.notify.Success(msg)
	return d.Refresh(ctx)
}

func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if err := d.api.DeleteTask(ctx, id); err != nil {
		d.notify.Error("Failed to delete task", err)
		return err
	}

	d.notify.Success("Task deleted successfully")
	return d.Refresh(ctx)
}

// View returns a copy of the filtered and sorted tasks.
func (d *Dashboard) View() []entity.Task {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]entity.Task(nil), d.view...)
}

func (d *Dashboard) Tasks() []entity.Task {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]entity.Task(nil), d.tasks...)
}

func (d *Dashboard) Summary() Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.summary
}

func (d *Dashboard) Filter() filter.Filter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filter
}

// errorMessage prefers the service's own message.
func errorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
