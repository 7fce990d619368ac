package usecase

import (
	"context"
	"time"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/filter"
)

type TaskRepository interface {
	Create(ctx context.Context, task entity.Task) (entity.Task, error)
	Get(ctx context.Context, id string) (entity.Task, error)
	// List returns the owner's tasks that match f, ordered by f.
	List(ctx context.Context, ownerID string, f filter.Filter) ([]entity.Task, error)
	// Update writes only the named fields of task and returns the stored task.
	Update(ctx context.Context, task entity.Task, fields []string) (entity.Task, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, ownerID string) (entity.TaskStats, error)
}

// CacheRepository caches list results per owner and generation. Invalidate
// moves the owner to a new generation, so lists stored under an older one
// are never read again.
type CacheRepository interface {
	Generation(ctx context.Context, ownerID string) (int64, error)
	GetTasks(ctx context.Context, ownerID string, gen int64, key string) ([]entity.Task, bool, error)
	SetTasks(ctx context.Context, ownerID string, gen int64, key string, tasks []entity.Task, ttl time.Duration) error
	Invalidate(ctx context.Context, ownerID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evt entity.TaskEvent) error
}

type UserRepository interface {
	Create(ctx context.Context, user entity.User) error
	GetByID(ctx context.Context, id string) (entity.User, error)
	GetByEmail(ctx context.Context, email string) (entity.User, error)
	Update(ctx context.Context, user entity.User) error
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// NopCache never hits and never stores.
type NopCache struct{}

func (NopCache) Generation(context.Context, string) (int64, error) { return 0, nil }

func (NopCache) GetTasks(context.Context, string, int64, string) ([]entity.Task, bool, error) {
	return nil, false, nil
}

func (NopCache) SetTasks(context.Context, string, int64, string, []entity.Task, time.Duration) error {
	return nil
}

func (NopCache) Invalidate(context.Context, string) error { return nil }

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, entity.TaskEvent) error { return nil }
