package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-redis keeps a pool reaper around until the client is closed
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).reaper"),
	)
}

func newMiniredisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, "vitrina:", zap.NewNop())
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "cart:1", `{"items":[]}`, time.Minute))

	got, err := c.Get(ctx, "cart:1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, got)
	assert.True(t, mr.Exists("vitrina:cart:1"), "expected prefixed key")
	assert.Equal(t, time.Minute, mr.TTL("vitrina:cart:1"))

	require.NoError(t, c.Delete(ctx, "cart:1"))
	_, err = c.Get(ctx, "cart:1")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "search:pan", "[]", time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "search:pan")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestRedisCache_PingFailsWhenServerDown(t *testing.T) {
	c, mr := newMiniredisCache(t)
	require.NoError(t, c.Ping())

	mr.Close()
	assert.Error(t, c.Ping())
}

func TestLocalCache(t *testing.T) {
	c := NewLocalCache(10*time.Millisecond, zap.NewNop())
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "forever", "1", 0))
	require.NoError(t, c.Set(ctx, "short", "2", 20*time.Millisecond))

	v, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "short")
		return err == ports.ErrCacheMiss
	}, time.Second, 5*time.Millisecond)

	v, err = c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	require.NoError(t, c.Delete(ctx, "forever"))
	_, err = c.Get(ctx, "forever")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)

	assert.NoError(t, c.Close())
}
