package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otp-auth-api/internal/domain"
)

const redisKeyPrefix = "otp:rl:"

// RedisStore keeps rate-limit records as JSON values in Redis, shared across
// instances. Every key carries a TTL past the verify window so Redis reclaims
// abandoned records on its own; the Limiter's lazy expiry still governs
// correctness.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ttl: 2 * VerifyWindow}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*domain.RateLimitRecord, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var rec domain.RateLimitRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode rate-limit record %s: %w", key, err)
	}
	return &rec, nil
}

func (s *RedisStore) Upsert(ctx context.Context, rec *domain.RateLimitRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode rate-limit record %s: %w", rec.Key, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+rec.Key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", rec.Key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
