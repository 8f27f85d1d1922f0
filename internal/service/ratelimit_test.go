package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow(context.Background(), 1))
	}
}

func TestLocalLimiter(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(3, time.Minute)
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, 1), "event %d", i)
	}
	assert.False(t, l.Allow(ctx, 1))
	assert.True(t, l.Allow(ctx, 2), "other users keep their own bucket")

	clock = clock.Add(20 * time.Second)
	assert.True(t, l.Allow(ctx, 1))
	assert.False(t, l.Allow(ctx, 1))
}

func TestLocalLimiter_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(3, time.Minute)
	l.now = func() time.Time { return clock }

	l.Allow(ctx, 1)
	clock = clock.Add(30 * time.Second)
	l.Allow(ctx, 2)
	require.Equal(t, 2, l.Len())

	clock = clock.Add(45 * time.Second)
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	l, err := NewRedisLimiter(ctx, "redis://"+mr.Addr(), 3, time.Minute, zap.NewNop())
	require.NoError(t, err)
	defer l.Close()

	clock := time.Date(2025, 1, 1, 12, 0, 5, 0, time.UTC)
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, 9), "event %d", i)
	}
	assert.False(t, l.Allow(ctx, 9))
	assert.True(t, l.Allow(ctx, 10))

	clock = clock.Add(time.Minute)
	assert.True(t, l.Allow(ctx, 9), "next window starts fresh")
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	l, err := NewRedisLimiter(ctx, "redis://"+mr.Addr(), 1, time.Minute, zap.NewNop())
	require.NoError(t, err)
	defer l.Close()

	mr.Close()
	assert.True(t, l.Allow(ctx, 1))
	assert.True(t, l.Allow(ctx, 1))
}

func TestNewRedisLimiter_BadURL(t *testing.T) {
	_, err := NewRedisLimiter(context.Background(), "://nope", 1, time.Minute, zap.NewNop())
	assert.Error(t, err)
}
