package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCell stores the value as JSON under key with an expiry, and a
// second copy under key+":last" without one for the stale fallback.
type RedisCell[T any] struct {
	client *redis.Client
	key    string
}

// NewRedisCell creates a cell on an existing client
func NewRedisCell[T any](client *redis.Client, key string) *RedisCell[T] {
	return &RedisCell[T]{client: client, key: key}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *RedisCell[T]) lastKey() string {
	return c.key + ":last"
}

func (c *RedisCell[T]) Get(ctx context.Context) (T, bool, error) {
	return c.load(ctx, c.key)
}

func (c *RedisCell[T]) Last(ctx context.Context) (T, bool, error) {
	return c.load(ctx, c.lastKey())
}

func (c *RedisCell[T]) load(ctx context.Context, key string) (T, bool, error) {
	var v T
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

func (c *RedisCell[T]) Set(ctx context.Context, v T, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.key, data, ttl)
		pipe.Set(ctx, c.lastKey(), data, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}
