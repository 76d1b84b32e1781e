package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgharvest/pkg/config"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(3, 40*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d", i+1)
	}
	assert.False(t, tb.Allow())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, tb.Allow())

	tb.Reset()
	assert.Equal(t, tb.capacity, tb.tokens)
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	require.True(t, tb.Allow())

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(2, 100*time.Millisecond)

	assert.True(t, sw.Allow())
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	time.Sleep(120 * time.Millisecond)
	assert.True(t, sw.Allow())

	sw.Reset()
	assert.Empty(t, sw.requests)
}

func TestWaitCancelled(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	require.True(t, sw.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sw.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew(t *testing.T) {
	assert.Nil(t, New(config.RateLimitConfig{}))
	assert.Nil(t, New(config.RateLimitConfig{RequestsPerMinute: -5}))

	l := New(config.RateLimitConfig{RequestsPerMinute: 30, Strategy: config.RateLimitSlidingWindow})
	sw, ok := l.(*SlidingWindow)
	require.True(t, ok)
	assert.Equal(t, 30, sw.maxRequests)
	assert.Equal(t, time.Minute, sw.windowSize)

	l = New(config.RateLimitConfig{RequestsPerMinute: 120, Burst: 4})
	tb, ok := l.(*TokenBucket)
	require.True(t, ok)
	assert.Equal(t, 4.0, tb.capacity)
	assert.Equal(t, 500*time.Millisecond, tb.interval)

	l = New(config.RateLimitConfig{RequestsPerMinute: 60})
	tb, ok = l.(*TokenBucket)
	require.True(t, ok)
	assert.Equal(t, 1.0, tb.capacity)
}
