package form

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStorage(t *testing.T, ttl time.Duration) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStorage(client, ttl, testLogger()), mr
}

func TestRedisStorage_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	storage, _ := newTestRedisStorage(t, 0)

	session := &Session{
		ChatID:    42,
		FormName:  "registration",
		StepIndex: 1,
		Answers:   map[string]string{"name": "Ann"},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, storage.Set(ctx, session.ChatID, session))

	loaded, err := storage.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, session.FormName, loaded.FormName)
	assert.Equal(t, session.StepIndex, loaded.StepIndex)
	assert.Equal(t, session.Answers, loaded.Answers)

	require.NoError(t, storage.Delete(ctx, 42))

	_, err = storage.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_HonorsConfiguredTTL(t *testing.T) {
	ctx := context.Background()
	storage, mr := newTestRedisStorage(t, 4*time.Hour)

	require.NoError(t, storage.Set(ctx, 42, &Session{ChatID: 42, FormName: "registration"}))

	// Past the old fixed one-hour lifetime the session must still exist.
	mr.FastForward(2 * time.Hour)
	_, err := storage.Get(ctx, 42)
	require.NoError(t, err)

	mr.FastForward(3 * time.Hour)
	_, err = storage.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_GetMissing(t *testing.T) {
	storage, _ := newTestRedisStorage(t, 0)

	_, err := storage.Get(context.Background(), 7)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_All(t *testing.T) {
	ctx := context.Background()
	storage, _ := newTestRedisStorage(t, 0)

	for _, chatID := range []int64{1, 2, 3} {
		require.NoError(t, storage.Set(ctx, chatID, &Session{ChatID: chatID, FormName: "registration"}))
	}

	sessions, err := storage.All(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}
