package challenge

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/captchauth/core"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestRedisStore_SingleUse(t *testing.T) {
	t.Parallel()

	s, mr := newRedisStore(t)
	require.NoError(t, s.Save(t.Context(), issued("s1", "4821", time.Now())))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"s1"))

	ok, err := s.Consume(t.Context(), "s1", "4821")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists(DefaultRedisPrefix+"s1"))

	ok, err = s.Consume(t.Context(), "s1", "4821")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_MismatchDeletes(t *testing.T) {
	t.Parallel()

	s, mr := newRedisStore(t)
	require.NoError(t, s.Save(t.Context(), issued("s1", "4821", time.Now())))

	ok, err := s.Consume(t.Context(), "s1", "0000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(DefaultRedisPrefix+"s1"))
}

func TestRedisStore_Missing(t *testing.T) {
	t.Parallel()

	s, mr := newRedisStore(t)
	ok, err := s.Consume(t.Context(), "nobody", "1234")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, mr.Keys())
}

func TestRedisStore_TTL(t *testing.T) {
	t.Parallel()

	s, mr := newRedisStore(t)
	require.NoError(t, s.Save(t.Context(), issued("s1", "4821", time.Now())))
	assert.Greater(t, mr.TTL(DefaultRedisPrefix+"s1"), time.Duration(0))

	mr.FastForward(6 * time.Minute)
	ok, err := s.Consume(t.Context(), "s1", "4821")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	t.Parallel()

	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Consume(t.Context(), "s1", "4821")
	require.ErrorIs(t, err, core.ErrStoreUnavailable)

	err = s.Save(t.Context(), issued("s1", "4821", time.Now()))
	require.ErrorIs(t, err, core.ErrStoreUnavailable)
}
