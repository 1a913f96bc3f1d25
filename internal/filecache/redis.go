package filecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const fileHandleTTL = 24 * time.Hour

// RedisCache shares uploaded-file handles across bot instances.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a file handle cache backed by the provided
// Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get fetches a cached handle if it exists.
func (c *RedisCache) Get(ctx context.Context, name string) (string, error) {
	fileID, err := c.client.Get(ctx, cacheKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get cached file handle: %w", err)
	}
	return fileID, nil
}

// Set stores the handle for name with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, name, fileID string) error {
	if err := c.client.Set(ctx, cacheKey(name), fileID, fileHandleTTL).Err(); err != nil {
		return fmt.Errorf("set cached file handle: %w", err)
	}
	return nil
}

// Invalidate removes the cached handle if it exists.
func (c *RedisCache) Invalidate(ctx context.Context, name string) error {
	if err := c.client.Del(ctx, cacheKey(name)).Err(); err != nil {
		return fmt.Errorf("delete cached file handle: %w", err)
	}
	return nil
}

func cacheKey(name string) string {
	return fmt.Sprintf("file:handle:%s", name)
}
