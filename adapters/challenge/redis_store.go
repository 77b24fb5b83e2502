package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/captchauth/core"
	"github.com/layer-3/captchauth/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces challenge keys in Redis
const DefaultRedisPrefix = "captchauth:challenge:"

// RedisStore is a Redis implementation of ports.ChallengeStore
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ ports.ChallengeStore = (*RedisStore)(nil)

type redisRecord struct {
	Value     string    `json:"value"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisStore creates a new Redis challenge store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Save stores the challenge with a TTL derived from its expiry
func (s *RedisStore) Save(ctx context.Context, challenge core.Challenge) error {
	payload, err := json.Marshal(redisRecord{
		Value:     challenge.Value,
		IssuedAt:  challenge.IssuedAt,
		ExpiresAt: challenge.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	var ttl time.Duration
	if !challenge.ExpiresAt.IsZero() {
		ttl = challenge.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return nil
		}
	}

	if err := s.client.Set(ctx, s.prefix+challenge.SessionKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: failed to save challenge: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Consume atomically fetches and deletes the challenge with GETDEL, then
// compares it to submitted
func (s *RedisStore) Consume(ctx context.Context, sessionKey, submitted string) (bool, error) {
	raw, err := s.client.GetDel(ctx, s.prefix+sessionKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to consume challenge: %v", core.ErrStoreUnavailable, err)
	}

	var rec redisRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return false, nil
	}

	c := core.Challenge{SessionKey: sessionKey, Value: rec.Value, IssuedAt: rec.IssuedAt, ExpiresAt: rec.ExpiresAt}
	if c.Expired(s.now()) {
		return false, nil
	}
	return equal(c.Value, submitted), nil
}
