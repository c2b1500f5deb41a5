package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisViewCache caches rendered record views. The ledger invalidates the
// whole cache on every mutation, so a stale view is never served past the
// write that changed it.
type RedisViewCache struct {
	client  *redis.Client
	ttl     time.Duration
	channel string
	logger  *slog.Logger
}

func NewRedisViewCache(redisURL, password string, db int, ttl time.Duration, channel string, logger *slog.Logger) (*RedisViewCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	logger.Info("connected to Redis")

	return &RedisViewCache{
		client:  client,
		ttl:     ttl,
		channel: channel,
		logger:  logger,
	}, nil
}

func (c *RedisViewCache) Get(ctx context.Context, key string) (string, bool, error) {
	view, err := c.client.Get(ctx, c.viewKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}

		return "", false, fmt.Errorf("reading view from Redis: %w", err)
	}

	return view, true, nil
}

func (c *RedisViewCache) Set(ctx context.Context, key, value string) error {
	viewKey := c.viewKey(key)

	if err := c.client.Set(ctx, viewKey, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing view to Redis: %w", err)
	}

	// The index set drives whole-cache invalidation on mutation.
	if err := c.client.SAdd(ctx, c.indexKey(), viewKey).Err(); err != nil {
		return fmt.Errorf("indexing view key in Redis: %w", err)
	}

	return nil
}

func (c *RedisViewCache) InvalidateAll(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("listing view keys in Redis: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("deleting views from Redis: %w", err)
		}
	}

	if err := c.client.Del(ctx, c.indexKey()).Err(); err != nil {
		return fmt.Errorf("deleting view index from Redis: %w", err)
	}

	return nil
}

func (c *RedisViewCache) Close() error {
	return c.client.Close()
}

func (c *RedisViewCache) viewKey(key string) string {
	return "view:" + key
}

func (c *RedisViewCache) indexKey() string {
	return "views:" + c.channel
}
