package memory

import (
	"context"
	"sync"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
)

// TaskRepository keeps tasks in a map. Stored values are copied in and out.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]entity.Task
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]entity.Task)}
}

func (r *TaskRepository) Create(_ context.Context, task entity.Task) (entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = clone(task)
	return clone(task), nil
}

func (r *TaskRepository) Get(_ context.Context, id string) (entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return entity.Task{}, entity.ErrTaskNotFound
	}
	return clone(t), nil
}

func (r *TaskRepository) List(_ context.Context, ownerID string, f filter.Filter) ([]entity.Task, error) {
	r.mu.RLock()
	owned := make([]entity.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if t.Owner == ownerID {
			owned = append(owned, clone(t))
		}
	}
	r.mu.RUnlock()
	return f.Apply(owned), nil
}

func (r *TaskRepository) Update(_ context.Context, task entity.Task, fields []string) (entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[task.ID]
	if !ok {
		return entity.Task{}, entity.ErrTaskNotFound
	}
	for _, f := range fields {
		switch f {
		case entity.FieldTitle:
			stored.Title = task.Title
		case entity.FieldDescription:
			stored.Description = task.Description
		case entity.FieldStatus:
			stored.Status = task.Status
		case entity.FieldPriority:
			stored.Priority = task.Priority
		case entity.FieldDueDate:
			stored.DueDate = task.DueDate
		case entity.FieldTags:
			stored.Tags = task.Tags
		case entity.FieldCompleted:
			stored.Completed = task.Completed
		case entity.FieldCompletedAt:
			stored.CompletedAt = task.CompletedAt
		case entity.FieldUpdatedAt:
			stored.UpdatedAt = task.UpdatedAt
		}
	}
	stored = clone(stored)
	r.tasks[task.ID] = stored
	return clone(stored), nil
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return entity.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *TaskRepository) Stats(_ context.Context, ownerID string) (entity.TaskStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var owned []entity.Task
	for _, t := range r.tasks {
		if t.Owner == ownerID {
			owned = append(owned, t)
		}
	}
	return entity.CountTasks(owned), nil
}

func clone(t entity.Task) entity.Task {
	if t.Tags != nil {
		t.Tags = append([]string{}, t.Tags...)
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		t.CompletedAt = &c
	}
	return t
}
