package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces invalidation records in Redis
const DefaultRedisPrefix = "captchauth:invalidated:"

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ ports.Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// InvalidateToken marks a token as invalidated in Redis. SETNX makes the
// claim atomic across replicas.
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	if expiry < time.Second {
		expiry = time.Second
	}
	claimed, err := s.client.SetNX(ctx, s.prefix+tokenID, "1", expiry).Result()
	if err != nil {
		return false, fmt.Errorf("%w: failed to invalidate token: %v", core.ErrStoreUnavailable, err)
	}
	return claimed, nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: failed to check token invalidation: %v", core.ErrStoreUnavailable, err)
	}
	return val > 0, nil
}
