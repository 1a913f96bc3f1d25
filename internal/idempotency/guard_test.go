package idempotency

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard_FirstSightingIsNew(t *testing.T) {
	guard := NewMemoryGuard(10)
	ctx := context.Background()

	seen, err := guard.Seen(ctx, 100)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.Seen(ctx, 100)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemoryGuard_EvictsOldestBeyondWindow(t *testing.T) {
	guard := NewMemoryGuard(2)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		seen, err := guard.Seen(ctx, id)
		require.NoError(t, err)
		assert.False(t, seen)
	}

	// id 1 was evicted when id 3 arrived, so it reads as new again.
	seen, err := guard.Seen(ctx, 1)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.Seen(ctx, 3)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRedisGuard_DetectsDuplicates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewRedisGuard(client, nil, time.Minute)
	ctx := context.Background()

	seen, err := guard.Seen(ctx, 555)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.Seen(ctx, 555)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = guard.Seen(ctx, 556)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisGuard_MarkExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := NewRedisGuard(client, nil, time.Second)
	ctx := context.Background()

	_, err := guard.Seen(ctx, 777)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	seen, err := guard.Seen(ctx, 777)
	require.NoError(t, err)
	assert.False(t, seen)
}
