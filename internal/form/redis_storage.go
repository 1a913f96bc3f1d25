package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	formSessionKeyPattern  = "form:session:%d"
	formSessionScanPattern = "form:session:*"

	// DefaultSessionTTL bounds session lifetime when no TTL is configured.
	DefaultSessionTTL = time.Hour
)

// RedisStorage persists form sessions in Redis so that an in-progress form
// survives a bot restart.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisStorage initializes a Redis-backed Storage implementation. Keys
// expire ttl after the last Set; a non-positive ttl falls back to
// DefaultSessionTTL.
func NewRedisStorage(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisStorage{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get returns the stored session or ErrSessionNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, chatID int64) (*Session, error) {
	data, err := s.client.Get(ctx, redisSessionKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}

		s.log.Error("failed to get form session from redis", "chat_id", chatID, "error", err)
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		s.log.Error("failed to decode form session", "chat_id", chatID, "error", err)
		return nil, err
	}

	return &session, nil
}

// Set saves the session with the storage TTL.
func (s *RedisStorage) Set(ctx context.Context, chatID int64, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		s.log.Error("failed to encode form session", "chat_id", chatID, "error", err)
		return err
	}

	if err := s.client.Set(ctx, redisSessionKey(chatID), data, s.ttl).Err(); err != nil {
		s.log.Error("failed to save form session in redis", "chat_id", chatID, "error", err)
		return err
	}

	return nil
}

// Delete removes the stored session for the given chat.
func (s *RedisStorage) Delete(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, redisSessionKey(chatID)).Err(); err != nil {
		s.log.Error("failed to delete form session", "chat_id", chatID, "error", err)
		return err
	}

	return nil
}

// All retrieves every stored session by scanning Redis keys.
func (s *RedisStorage) All(ctx context.Context) ([]*Session, error) {
	var (
		cursor uint64
		result []*Session
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, formSessionScanPattern, 100).Result()
		if err != nil {
			s.log.Error("failed to scan form sessions", "error", err)
			return nil, err
		}

		for _, key := range keys {
			data, err := s.client.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}

				s.log.Error("failed to fetch form session", "key", key, "error", err)
				return nil, err
			}

			var session Session
			if err := json.Unmarshal([]byte(data), &session); err != nil {
				s.log.Error("failed to decode form session", "key", key, "error", err)
				continue
			}

			copied := session
			result = append(result, &copied)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func redisSessionKey(chatID int64) string {
	return fmt.Sprintf(formSessionKeyPattern, chatID)
}
