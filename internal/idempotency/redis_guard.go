package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a processed update id stays marked in Redis.
const DefaultTTL = 24 * time.Hour

// RedisGuard marks processed update ids in Redis so duplicates are
// detected across restarts and across bot instances.
type RedisGuard struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

var _ Guard = (*RedisGuard)(nil)

// NewRedisGuard creates a Redis-backed Guard. A non-positive ttl falls
// back to DefaultTTL.
func NewRedisGuard(client *redis.Client, log *slog.Logger, ttl time.Duration) *RedisGuard {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RedisGuard{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

func (g *RedisGuard) Seen(ctx context.Context, updateID int64) (bool, error) {
	key := guardKey(updateID)

	created, err := g.client.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		g.log.Error("duplicate guard check failed",
			slog.Int64("update_id", updateID),
			slog.Any("error", err))
		return false, err
	}

	return !created, nil
}

func guardKey(updateID int64) string {
	return fmt.Sprintf("update:seen:%d", updateID)
}
