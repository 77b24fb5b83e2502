package store

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/captchauth/core"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	invalid, err := s.IsTokenInvalidated(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.False(t, invalid)

	claimed, err := s.InvalidateToken(t.Context(), "jti-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	invalid, err = s.IsTokenInvalidated(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.True(t, invalid)

	// A live record is not claimed again, and a shorter expiry never
	// shortens it.
	claimed, err = s.InvalidateToken(t.Context(), "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	now = now.Add(30 * time.Minute)
	invalid, err = s.IsTokenInvalidated(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.True(t, invalid)
	assert.Zero(t, s.Sweep())

	now = now.Add(time.Hour)
	invalid, err = s.IsTokenInvalidated(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.False(t, invalid)
	assert.Equal(t, 1, s.Sweep())

	// Once the record has run out the ID can be claimed again.
	claimed, err = s.InvalidateToken(t.Context(), "jti-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemoryStore_ConcurrentClaim(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	const workers = 32
	var (
		wg      sync.WaitGroup
		claimed atomic.Int32
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.InvalidateToken(t.Context(), "jti-1", time.Hour)
			if err == nil && ok {
				claimed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), claimed.Load())
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client, "")

	invalid, err := s.IsTokenInvalidated(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.False(t, invalid)

	claimed, err := s.InvalidateToken(t.Context(), "jti-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
	invalid, err = s.IsTokenInvalidated(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.True(t, invalid)

	claimed, err = s.InvalidateToken(t.Context(), "jti-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)

	mr.FastForward(2 * time.Minute)
	invalid, err = s.IsTokenInvalidated(t.Context(), "jti-1")
	require.NoError(t, err)
	assert.False(t, invalid)

	mr.Close()
	_, err = s.IsTokenInvalidated(t.Context(), "jti-1")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
	_, err = s.InvalidateToken(t.Context(), "jti-2", time.Minute)
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
}
