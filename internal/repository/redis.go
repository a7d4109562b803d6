package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"localpro/internal/config"
	"localpro/internal/events"

	"github.com/redis/go-redis/v9"
)

// DefaultEventQueueKey is the Redis list the notification subsystem drains.
const DefaultEventQueueKey = "notifications:events"

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// RedisEventQueue hands lifecycle events to the notification subsystem via a
// Redis list.
type RedisEventQueue struct {
	client *redis.Client
	key    string
}

func NewRedisEventQueue(client *redis.Client, key string) *RedisEventQueue {
	if key == "" {
		key = DefaultEventQueueKey
	}
	return &RedisEventQueue{client: client, key: key}
}

type queuedEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func (q *RedisEventQueue) Enqueue(ctx context.Context, event events.Event) error {
	if q.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(queuedEvent{
		ID:        event.ID,
		Type:      event.Type,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue event in redis: %w", err)
	}
	return nil
}

// Len returns the queue depth, used by health checks and tests.
func (q *RedisEventQueue) Len(ctx context.Context) (int64, error) {
	if q.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	return q.client.LLen(ctx, q.key).Result()
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
