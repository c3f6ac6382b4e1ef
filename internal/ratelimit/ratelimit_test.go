package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemory_FixedWindow(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	m := NewMemory(2, time.Minute)
	defer m.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		d, err := m.Allow(ctx, "10.0.0.1")
		require.NoError(err)
		require.True(d.Allowed)
	}

	d, err := m.Allow(ctx, "10.0.0.1")
	require.NoError(err)
	require.False(d.Allowed)
	require.Equal(time.Minute, d.RetryAfter)

	other, err := m.Allow(ctx, "10.0.0.2")
	require.NoError(err)
	require.True(other.Allowed, "keys are limited independently")

	now = now.Add(time.Minute)
	d, err = m.Allow(ctx, "10.0.0.1")
	require.NoError(err)
	require.True(d.Allowed, "a new window refills the bucket")
}

func TestMemory_Disabled(t *testing.T) {
	m := NewMemory(0, time.Minute)
	defer m.Close()

	for i := 0; i < 50; i++ {
		d, err := m.Allow(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
}

func TestMemory_CloseTwice(t *testing.T) {
	m := NewMemory(1, time.Millisecond)
	m.Close()
	m.Close()
}

func TestNone(t *testing.T) {
	d, err := None().Allow(context.Background(), "anything")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Zero(t, d.RetryAfter)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestRedis_SlidingWindow(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	srv, client := newTestRedis(t)

	limiter := NewRedis(client, "ratelimit:upload:", 3, time.Minute)
	r, ok := limiter.(*Redis)
	require.True(ok)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	r.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		d, err := r.Allow(ctx, "10.0.0.1")
		require.NoError(err)
		require.True(d.Allowed, "call %d", i)
		now = now.Add(time.Second)
	}

	d, err := r.Allow(ctx, "10.0.0.1")
	require.NoError(err)
	require.False(d.Allowed)
	// oldest entry is at base; the window frees it at base+1m
	require.Equal(base.Add(time.Minute).Sub(now), d.RetryAfter)

	require.True(srv.Exists("ratelimit:upload:10.0.0.1"))

	now = base.Add(time.Minute + 10*time.Second)
	d, err = r.Allow(ctx, "10.0.0.1")
	require.NoError(err)
	require.True(d.Allowed, "entries older than the window are trimmed")
}

func TestRedis_DisabledLimit(t *testing.T) {
	_, client := newTestRedis(t)
	limiter := NewRedis(client, "p:", 0, time.Minute)
	_, isNone := limiter.(noLimiter)
	require.True(t, isNone)
}

func TestRedis_ServerDown(t *testing.T) {
	srv, client := newTestRedis(t)
	limiter := NewRedis(client, "p:", 5, time.Minute)
	srv.Close()

	_, err := limiter.Allow(context.Background(), "k")
	require.Error(t, err)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient("not-a-url://")
	require.Error(t, err)
}
