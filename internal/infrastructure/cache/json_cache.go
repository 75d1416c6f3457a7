package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JSONCache stores JSON encoded values under string keys
type JSONCache interface {
	// Get decodes the cached value into dest and reports whether it was found
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix drops every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}

const scanBatchSize = 100

// RedisJSONCache is a JSONCache backed by Redis
type RedisJSONCache struct {
	client    redis.UniversalClient
	namespace string
	logger    *zap.Logger
}

// NewRedisJSONCache creates a cache whose keys are prefixed with namespace
func NewRedisJSONCache(client redis.UniversalClient, namespace string, logger *zap.Logger) *RedisJSONCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisJSONCache{client: client, namespace: namespace, logger: logger}
}

func (c *RedisJSONCache) key(k string) string {
	return c.namespace + k
}

// Get decodes a cached value; a corrupt entry is deleted and reported as a miss
func (c *RedisJSONCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("Dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, c.key(key)).Err()
		return false, nil
	}
	return true, nil
}

// Set encodes and stores a value
func (c *RedisJSONCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Delete removes keys
func (c *RedisJSONCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// DeletePrefix scans and removes matching keys in batches
func (c *RedisJSONCache) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.key(prefix)+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

var _ JSONCache = (*RedisJSONCache)(nil)

type jsonEntry struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryJSONCache is a process-local JSONCache used when Redis is disabled
type InMemoryJSONCache struct {
	mu         sync.RWMutex
	entries    map[string]jsonEntry
	maxEntries int
	now        func() time.Time
}

// NewInMemoryJSONCache creates a cache holding at most maxEntries values
func NewInMemoryJSONCache(maxEntries int) *InMemoryJSONCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &InMemoryJSONCache{
		entries:    make(map[string]jsonEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get decodes a cached value
func (c *InMemoryJSONCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, nil
	}
	return true, nil
}

// Set stores a value; when full, expired entries are evicted first and then an arbitrary one
func (c *InMemoryJSONCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = jsonEntry{data: data, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *InMemoryJSONCache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	for k := range c.entries {
		delete(c.entries, k)
		return
	}
}

// Delete removes keys
func (c *InMemoryJSONCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// DeletePrefix removes keys starting with prefix
func (c *InMemoryJSONCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len returns the number of stored entries
func (c *InMemoryJSONCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ JSONCache = (*InMemoryJSONCache)(nil)
