package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheFromClient(client), mr
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	require.NoError(t, c.Set(ctx, "k", entry{Name: "a", Value: 1.5}, time.Minute))

	var got entry
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, entry{Name: "a", Value: 1.5}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k2", entry{Name: "b"}, 0))
	require.NoError(t, c.Delete(ctx, "k2"))
	exists, err := c.Exists(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCache_IncrementSetsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	n, err := c.Increment(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mr.FastForward(30 * time.Second)
	n, err = c.Increment(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mr.FastForward(31 * time.Second)
	exists, err := c.Exists(ctx, "attempts")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCache_SetNX(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedis(t)

	ok, err := c.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", entry{Name: "a"}, 20*time.Millisecond))
	var got entry
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "a", got.Name)

	time.Sleep(40 * time.Millisecond)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "x", 1, 0))
	require.NoError(t, c.Delete(ctx, "x"))
	var n int
	assert.ErrorIs(t, c.Get(ctx, "x", &n), ErrCacheMiss)
}
