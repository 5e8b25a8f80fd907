package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tramite-portal/internal/common/logger"
)

// RedisStore keeps workflow state in Redis, one key per (scope, entry).
// Plain SET/GET per key, last write wins.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"store": "redis"}),
	}
}

func redisKey(scope, key string) string {
	return fmt.Sprintf("tramite:%s:%s", scope, key)
}

func (s *RedisStore) Save(ctx context.Context, scope, key string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).Error("failed to serialize entry", map[string]interface{}{
			"scope": scope,
			"key":   key,
		})
		return err
	}
	return s.client.Set(ctx, redisKey(scope, key), encoded, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, scope, key string, dest interface{}) (bool, error) {
	encoded, err := s.client.Get(ctx, redisKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(encoded, dest); err != nil {
		s.logger.WithError(err).Warn("corrupted entry, treating as absent", map[string]interface{}{
			"scope": scope,
			"key":   key,
		})
		return false, nil
	}
	return true, nil
}

func (s *RedisStore) Clear(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		keys = AllKeys
	}

	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, redisKey(scope, key))
	}
	return s.client.Del(ctx, full...).Err()
}
