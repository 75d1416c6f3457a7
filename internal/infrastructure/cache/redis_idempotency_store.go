package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storefront/backend/internal/domain/shared"
)

// pendingMarker is stored while the first request for a key is still running
const pendingMarker = "\x00pending"

// RedisIdempotencyStore shares idempotency keys across instances
type RedisIdempotencyStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store on an existing client
func NewRedisIdempotencyStore(client redis.UniversalClient, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "storefront:idempotency:"
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Acquire claims the key with SETNX; a losing caller gets the stored result, if any
func (s *RedisIdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	redisKey := s.keyPrefix + key

	ok, err := s.client.SetNX(ctx, redisKey, pendingMarker, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	value, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Acquire(ctx, key, ttl)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if value == pendingMarker {
		return "", false, nil
	}
	return value, false, nil
}

// Complete stores the result of the claimed key
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, result, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency result: %w", err)
	}
	return nil
}

// Release frees the key so the request can be retried
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
