package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniLimiter(t *testing.T) (*miniredis.Miniredis, *FixedWindowLimiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewFixedWindowLimiter(NewFromClient(rdb))
}

func TestFixedWindowLimiter_RedisNil_Allows(t *testing.T) {
	l := NewFixedWindowLimiter(nil)

	d, err := l.Allow(context.Background(), "signin", "1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 10, d.Remaining)
}

func TestFixedWindowLimiter_NonPositiveLimit_Allows(t *testing.T) {
	_, l := newMiniLimiter(t)

	for _, limit := range []int{0, -5} {
		d, err := l.Allow(context.Background(), "signin", "ip", limit, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
}

func TestFixedWindowLimiter_BlocksAfterLimit(t *testing.T) {
	mr, l := newMiniLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "forgot", "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "forgot", "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	// other identities and scopes are counted separately
	d, _ = l.Allow(ctx, "forgot", "10.0.0.2", 3, time.Minute)
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "signin", "10.0.0.1", 3, time.Minute)
	assert.True(t, d.Allowed)

	// window expiry resets the counter
	mr.FastForward(61 * time.Second)
	d, err = l.Allow(ctx, "forgot", "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_KeyHasExpiry(t *testing.T) {
	mr, l := newMiniLimiter(t)

	_, err := l.Allow(context.Background(), "signin", "ip", 5, 30*time.Second)
	require.NoError(t, err)

	ttl := mr.TTL(keyPrefix + "signin:ip")
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Second)
}

func TestFixedWindowLimiter_RedisDown_ReturnsError(t *testing.T) {
	mr, l := newMiniLimiter(t)
	mr.Close()

	_, err := l.Allow(context.Background(), "signin", "ip", 5, time.Minute)
	assert.Error(t, err)
}

func TestFixedWindowLimiter_CountersAndReset(t *testing.T) {
	mr, l := newMiniLimiter(t)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "auth.sign_in", "ip:10.0.0.1", 5, time.Minute)
	_, _ = l.Allow(ctx, "auth.sign_in", "ip:10.0.0.1", 5, time.Minute)
	_, _ = l.Allow(ctx, "contact.submit", "ip:10.0.0.2", 5, time.Minute)

	all, err := l.Counters(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	signIn, err := l.Counters(ctx, "auth.sign_in")
	require.NoError(t, err)
	require.Len(t, signIn, 1)
	assert.Equal(t, "ip:10.0.0.1", signIn[0].Identity)
	assert.Equal(t, int64(2), signIn[0].Hits)
	assert.Greater(t, signIn[0].TTL, time.Duration(0))

	ok, err := l.Reset(ctx, "auth.sign_in", "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists(keyPrefix+"auth.sign_in:ip:10.0.0.1"))

	ok, err = l.Reset(ctx, "auth.sign_in", "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFixedWindowLimiter_CountersWithoutRedis(t *testing.T) {
	l := NewFixedWindowLimiter(nil)

	cs, err := l.Counters(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, cs)

	ok, err := l.Reset(context.Background(), "s", "id")
	require.NoError(t, err)
	assert.False(t, ok)
}
