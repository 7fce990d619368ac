package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
)

func TestTaskRepositoryUpdateWritesNamedFieldsOnly(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	created, err := repo.Create(ctx, entity.Task{ID: "1", Owner: "o", Title: "old", Description: "keep", Tags: []string{"a"}})
	require.NoError(t, err)

	// a stale copy racing with the update below
	stale := created
	stale.Title = "stale title"
	stale.Description = "stale description"

	_, err = repo.Update(ctx, entity.Task{ID: "1", Description: "fresh"}, []string{entity.FieldDescription})
	require.NoError(t, err)
	got, err := repo.Update(ctx, stale, []string{entity.FieldTitle})
	require.NoError(t, err)

	assert.Equal(t, "stale title", got.Title)
	assert.Equal(t, "fresh", got.Description)
	assert.Equal(t, []string{"a"}, got.Tags)

	_, err = repo.Update(ctx, entity.Task{ID: "missing"}, []string{entity.FieldTitle})
	assert.ErrorIs(t, err, entity.ErrTaskNotFound)
}

func TestTaskRepositoryCopiesValues(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task := entity.Task{ID: "1", Owner: "o", Tags: []string{"a"}, DueDate: &due}
	_, err := repo.Create(ctx, task)
	require.NoError(t, err)

	task.Tags[0] = "mutated"
	*task.DueDate = due.Add(time.Hour)

	got, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Tags)
	assert.Equal(t, due, *got.DueDate)
}

func TestTaskRepositoryListAndStats(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()
	for _, task := range []entity.Task{
		{ID: "1", Owner: "a", Title: "one", Status: entity.StatusPending, Priority: entity.PriorityLow},
		{ID: "2", Owner: "a", Title: "two", Status: entity.StatusPending, Priority: entity.PriorityHigh},
		{ID: "3", Owner: "b", Title: "three", Status: entity.StatusCompleted, Priority: entity.PriorityHigh},
	} {
		_, err := repo.Create(ctx, task)
		require.NoError(t, err)
	}

	tasks, err := repo.List(ctx, "a", filter.Filter{SortBy: filter.SortTitle, Order: filter.Asc})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "one", tasks[0].Title)

	stats, err := repo.Stats(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalTasks)
	assert.Equal(t, []entity.GroupCount{{Value: "pending", Count: 2}}, stats.ByStatus)

	require.NoError(t, repo.Delete(ctx, "1"))
	assert.ErrorIs(t, repo.Delete(ctx, "1"), entity.ErrTaskNotFound)
}

func TestUserRepositoryEmailUniqueness(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, entity.User{ID: "1", Email: "a@example.com"}))
	require.NoError(t, repo.Create(ctx, entity.User{ID: "2", Email: "b@example.com"}))

	assert.ErrorIs(t, repo.Create(ctx, entity.User{ID: "3", Email: "a@example.com"}), entity.ErrUserExists)
	assert.ErrorIs(t, repo.Update(ctx, entity.User{ID: "1", Email: "b@example.com"}), entity.ErrUserExists)

	require.NoError(t, repo.Update(ctx, entity.User{ID: "1", Email: "c@example.com"}))
	_, err := repo.GetByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
	got, err := repo.GetByEmail(ctx, "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
}
