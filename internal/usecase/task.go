package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
	"github.com/taskflow/task-service/pkg/logger"
)

const defaultCacheTTL = 5 * time.Minute

// TaskUseCase is scoped by an explicit owner id on every call.
type TaskUseCase interface {
	List(ctx context.Context, ownerID string, f filter.Filter) ([]entity.Task, error)
	Get(ctx context.Context, ownerID, id string) (entity.Task, error)
	Create(ctx context.Context, ownerID string, in entity.TaskInput) (entity.Task, error)
	Update(ctx context.Context, ownerID, id string, in entity.TaskInput) (entity.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
	Stats(ctx context.Context, ownerID string) (entity.TaskStats, error)
}

type TaskUseCaseImpl struct {
	taskRepo  TaskRepository
	cacheRepo CacheRepository
	publisher EventPublisher
	cacheTTL  time.Duration
	now       func() time.Time
	group     singleflight.Group
}

type TaskOption func(*TaskUseCaseImpl)

func WithCacheTTL(ttl time.Duration) TaskOption {
	return func(uc *TaskUseCaseImpl) { uc.cacheTTL = ttl }
}

func WithClock(now func() time.Time) TaskOption {
	return func(uc *TaskUseCaseImpl) { uc.now = now }
}

// NewTaskUseCase wires a task use case. A nil cache or publisher disables
// that concern.
func NewTaskUseCase(taskRepo TaskRepository, cacheRepo CacheRepository, publisher EventPublisher, opts ...TaskOption) *TaskUseCaseImpl {
	if cacheRepo == nil {
		cacheRepo = NopCache{}
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	uc := &TaskUseCaseImpl{
		taskRepo:  taskRepo,
		cacheRepo: cacheRepo,
		publisher: publisher,
		cacheTTL:  defaultCacheTTL,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// List serves the owner's lists from the cache when it can. The cache
// generation is read before the store, so a snapshot taken before a
// concurrent write is stored under a generation that write already retired.
func (uc *TaskUseCaseImpl) List(ctx context.Context, ownerID string, f filter.Filter) ([]entity.Task, error) {
	f = f.Normalized()
	key := f.Key()
	log := logger.Log.WithFields(logrus.Fields{"owner_id": ownerID, "filter": key})

	gen, err := uc.cacheRepo.Generation(ctx, ownerID)
	if err != nil {
		log.WithError(err).Warn("Failed to read cache generation, bypassing cache")
		tasks, err := uc.taskRepo.List(ctx, ownerID, f)
		if err != nil {
			log.WithError(err).Error("Failed to list tasks from repository")
			return nil, err
		}
		return tasks, nil
	}

	tasks, hit, err := uc.cacheRepo.GetTasks(ctx, ownerID, gen, key)
	if err != nil {
		log.WithError(err).Warn("Failed to read task list from cache")
	}
	if hit {
		log.Debug("Tasks retrieved from cache")
		return tasks, nil
	}

	// Shared by every caller of this key, so not tied to one request.
	flightCtx := context.WithoutCancel(ctx)
	ch := uc.group.DoChan(fmt.Sprintf("%s|%d|%s", ownerID, gen, key), func() (any, error) {
		tasks, err := uc.taskRepo.List(flightCtx, ownerID, f)
		if err != nil {
			return nil, err
		}
		if err := uc.cacheRepo.SetTasks(flightCtx, ownerID, gen, key, tasks, uc.cacheTTL); err != nil {
			log.WithError(err).Warn("Failed to set tasks in cache")
		}
		return tasks, nil
	})

	select {
	case <-ctx.Done():
		log.WithError(ctx.Err()).Warn("List abandoned by caller")
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			log.WithError(res.Err).Error("Failed to list tasks from repository")
			return nil, res.Err
		}
		tasks = res.Val.([]entity.Task)
	}

	log.WithField("count", len(tasks)).Debug("Tasks listed")
	return tasks, nil
}

func (uc *TaskUseCaseImpl) Get(ctx context.Context, ownerID, id string) (entity.Task, error) {
	return uc.authorize(ctx, ownerID, id)
}

func (uc *TaskUseCaseImpl) Create(ctx context.Context, ownerID string, in entity.TaskInput) (entity.Task, error) {
	in.Normalize()
	verr := validateStruct(in)
	if in.Title == nil {
		if verr == nil {
			verr = &ValidationError{}
		}
		verr.add(entity.FieldTitle, "title is required")
	}
	if err := verr.orNil(); err != nil {
		logger.Log.WithField("owner_id", ownerID).WithError(err).Warn("Task validation failed")
		return entity.Task{}, err
	}

	task := entity.NewTask(uuid.NewString(), ownerID, in, uc.now())
	created, err := uc.taskRepo.Create(ctx, task)
	if err != nil {
		logger.Log.WithField("owner_id", ownerID).WithError(err).Error("Failed to create task")
		return entity.Task{}, err
	}

	uc.afterWrite(ctx, entity.TaskCreated, created.ID, ownerID, &created)
	logger.Log.WithFields(logrus.Fields{"owner_id": ownerID, "task_id": created.ID}).Info("Task created")
	return created, nil
}

func (uc *TaskUseCaseImpl) Update(ctx context.Context, ownerID, id string, in entity.TaskInput) (entity.Task, error) {
	in.Normalize()
	if err := validateStruct(in).orNil(); err != nil {
		logger.Log.WithField("task_id", id).WithError(err).Warn("Validation failed during task update")
		return entity.Task{}, err
	}

	task, err := uc.authorize(ctx, ownerID, id)
	if err != nil {
		return entity.Task{}, err
	}

	task.Patch(in, uc.now())
	updated, err := uc.taskRepo.Update(ctx, task, in.Fields())
	if err != nil {
		logger.Log.WithField("task_id", id).WithError(err).Error("Failed to update task in repository")
		return entity.Task{}, err
	}

	uc.afterWrite(ctx, entity.TaskUpdated, id, ownerID, &updated)
	logger.Log.WithFields(logrus.Fields{"owner_id": ownerID, "task_id": id}).Info("Task updated")
	return updated, nil
}

func (uc *TaskUseCaseImpl) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := uc.authorize(ctx, ownerID, id); err != nil {
		return err
	}

	if err := uc.taskRepo.Delete(ctx, id); err != nil {
		logger.Log.WithField("task_id", id).WithError(err).Error("Failed to delete task from repository")
		return err
	}

	uc.afterWrite(ctx, entity.TaskDeleted, id, ownerID, nil)
	logger.Log.WithFields(logrus.Fields{"owner_id": ownerID, "task_id": id}).Info("Task deleted")
	return nil
}

func (uc *TaskUseCaseImpl) Stats(ctx context.Context, ownerID string) (entity.TaskStats, error) {
	stats, err := uc.taskRepo.Stats(ctx, ownerID)
	if err != nil {
		logger.Log.WithField("owner_id", ownerID).WithError(err).Error("Failed to aggregate task stats")
		return entity.TaskStats{}, err
	}

	sortGroups(stats.ByStatus, statusRank)
	sortGroups(stats.ByPriority, priorityRank)
	return stats, nil
}

// authorize loads the task and checks its owner. Existence is checked first,
// so a missing id is ErrTaskNotFound for every caller.
func (uc *TaskUseCaseImpl) authorize(ctx context.Context, ownerID, id string) (entity.Task, error) {
	log := logger.Log.WithFields(logrus.Fields{"owner_id": ownerID, "task_id": id})

	task, err := uc.taskRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			log.Warn("Task not found")
		} else {
			log.WithError(err).Error("Failed to get task from repository")
		}
		return entity.Task{}, err
	}

	if task.Owner != ownerID {
		log.Warn("Task belongs to another user")
		return entity.Task{}, ErrForbidden
	}
	return task, nil
}

func (uc *TaskUseCaseImpl) afterWrite(ctx context.Context, eventType, taskID, ownerID string, task *entity.Task) {
	if err := uc.cacheRepo.Invalidate(ctx, ownerID); err != nil {
		logger.Log.WithField("owner_id", ownerID).WithError(err).Error("Failed to invalidate cache")
	}

	evt := entity.TaskEvent{
		Type:       eventType,
		TaskID:     taskID,
		OwnerID:    ownerID,
		Task:       task,
		OccurredAt: uc.now(),
	}
	if err := uc.publisher.Publish(ctx, evt); err != nil {
		logger.Log.WithFields(logrus.Fields{"task_id": taskID, "event": eventType}).WithError(err).Warn("Failed to publish task event")
	}
}

var (
	statusRank   = rankOf(entity.Statuses)
	priorityRank = rankOf(entity.Priorities)
)

func rankOf[T ~string](values []T) map[string]int {
	m := make(map[string]int, len(values))
	for i, v := range values {
		m[string(v)] = i
	}
	return m
}

// sortGroups orders groups by enumeration order; unknown values go last.
func sortGroups(groups []entity.GroupCount, rank map[string]int) {
	pos := func(v string) int {
		if r, ok := rank[v]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		pi, pj := pos(groups[i].Value), pos(groups[j].Value)
		if pi != pj {
			return pi < pj
		}
		return groups[i].Value < groups[j].Value
	})
}
