package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskflow/task-service/internal/entity"
)

const keyPrefix = "tasks:"

// CacheRepository keeps one hash per owner and generation. Each field holds
// the JSON of one filtered list. Invalidate bumps the owner's generation, so
// a list written late by a request that started before the bump lands in a
// hash nobody reads.
type CacheRepository struct {
	client *redis.Client
}

func NewCacheRepository(client *redis.Client) *CacheRepository {
	return &CacheRepository{client: client}
}

// NewClient opens a client from plain connection settings.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func generationKey(ownerID string) string {
	return keyPrefix + "gen:" + ownerID
}

func listsKey(ownerID string, gen int64) string {
	return keyPrefix + ownerID + ":" + strconv.FormatInt(gen, 10)
}

// Generation returns 0 for an owner that was never invalidated.
func (c *CacheRepository) Generation(ctx context.Context, ownerID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CacheRepository) SetTasks(ctx context.Context, ownerID string, gen int64, key string, tasks []entity.Task, ttl time.Duration) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, listsKey(ownerID, gen), key, data)
	pipe.Expire(ctx, listsKey(ownerID, gen), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache tasks: %w", err)
	}
	return nil
}

// GetTasks reports a miss with ok == false and a nil error.
func (c *CacheRepository) GetTasks(ctx context.Context, ownerID string, gen int64, key string) ([]entity.Task, bool, error) {
	data, err := c.client.HGet(ctx, listsKey(ownerID, gen), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	var tasks []entity.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached tasks: %w", err)
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}
	return tasks, true, nil
}

// Invalidate moves the owner to the next generation and drops the lists of
// the one it leaves.
func (c *CacheRepository) Invalidate(ctx context.Context, ownerID string) error {
	next, err := c.client.Incr(ctx, generationKey(ownerID)).Result()
	if err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return c.client.Del(ctx, listsKey(ownerID, next-1)).Err()
}

func (c *CacheRepository) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CacheRepository) Close() error {
	return c.client.Close()
}
