package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rainelz/booko/internal/common/metrics"
)

const redisKeyPrefix = "session:"

// RedisStore persists sessions as JSON under session:<chatID>, expiring
// with the configured TTL. Lets multiple bot instances share state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(chatID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, chatID)
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (*Session, error) {
	raw, err := s.client.Get(ctx, redisKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Put stores the session and keeps the active-sessions gauge in step.
// A session that expires server-side does not decrement the gauge.
func (s *RedisStore) Put(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	key := redisKey(sess.ChatID)
	existed, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	if existed == 0 {
		metrics.SessionsActive.Inc()
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	deleted, err := s.client.Del(ctx, redisKey(chatID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if deleted > 0 {
		metrics.SessionsActive.Dec()
	}
	return nil
}
