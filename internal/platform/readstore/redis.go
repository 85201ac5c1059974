// Package readstore backs the read-optimized projection store and the query
// cache with Redis.
package readstore

import (
	"context"
	"fmt"

	"github.com/finflowhq/finflow_backend/internal/core/ports/messaging"
	"github.com/redis/go-redis/v9"
)

// RedisReadStore stores projected documents as JSON strings keyed by entity
// type and id. Upsert overwrites whole documents, so replays converge on the
// same state.
type RedisReadStore struct {
	client *redis.Client
}

var _ messaging.ReadStoreSink = (*RedisReadStore)(nil)

func NewRedisReadStore(client *redis.Client) *RedisReadStore {
	return &RedisReadStore{client: client}
}

func readKey(entityType, entityID string) string {
	return fmt.Sprintf("read:%s:%s", entityType, entityID)
}

func (s *RedisReadStore) Upsert(ctx context.Context, entityType, entityID string, data []byte) error {
	if err := s.client.Set(ctx, readKey(entityType, entityID), data, 0).Err(); err != nil {
		return fmt.Errorf("read store upsert %s/%s failed: %w", entityType, entityID, err)
	}
	return nil
}

func (s *RedisReadStore) Delete(ctx context.Context, entityType, entityID string) error {
	if err := s.client.Del(ctx, readKey(entityType, entityID)).Err(); err != nil {
		return fmt.Errorf("read store delete %s/%s failed: %w", entityType, entityID, err)
	}
	return nil
}

// Get retrieves a projected document, returning nil when absent.
func (s *RedisReadStore) Get(ctx context.Context, entityType, entityID string) ([]byte, error) {
	data, err := s.client.Get(ctx, readKey(entityType, entityID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store get %s/%s failed: %w", entityType, entityID, err)
	}
	return data, nil
}

// RedisCacheInvalidator drops cached query results. An empty key invalidates
// every entry in the namespace via SCAN, never KEYS.
type RedisCacheInvalidator struct {
	client *redis.Client
}

var _ messaging.CacheInvalidator = (*RedisCacheInvalidator)(nil)

func NewRedisCacheInvalidator(client *redis.Client) *RedisCacheInvalidator {
	return &RedisCacheInvalidator{client: client}
}

func (c *RedisCacheInvalidator) Invalidate(ctx context.Context, namespace, key string) error {
	if key != "" {
		if err := c.client.Del(ctx, fmt.Sprintf("cache:%s:%s", namespace, key)).Err(); err != nil {
			return fmt.Errorf("cache invalidate %s:%s failed: %w", namespace, key, err)
		}
		return nil
	}

	pattern := fmt.Sprintf("cache:%s:*", namespace)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache invalidate namespace %s failed: %w", namespace, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan for namespace %s failed: %w", namespace, err)
	}
	return nil
}

// NewRedisClient builds the shared client used by both the read store and
// the invalidator.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
