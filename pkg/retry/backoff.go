package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	errs "imgharvest/pkg/errors"
)

// MaxRetryAfter caps a server Retry-After hint
const MaxRetryAfter = time.Minute

// BackoffStrategy defines the delay before the next attempt
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor adds randomness (0.0 to 1.0)
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// delayFor returns the backoff delay for attempt, stretched to the server's
// Retry-After hint when err carries a longer one.
func delayFor(b BackoffStrategy, attempt int, err error) time.Duration {
	var delay time.Duration
	if b != nil {
		delay = b.NextDelay(attempt)
	}
	if hint := RetryAfter(err); hint > delay {
		delay = hint
	}
	return delay
}

// RetryAfter returns the Retry-After hint carried by err, at most MaxRetryAfter
func RetryAfter(err error) time.Duration {
	var e *errs.Error
	if !errors.As(err, &e) || e.RetryAfter <= 0 {
		return 0
	}
	if e.RetryAfter > MaxRetryAfter {
		return MaxRetryAfter
	}
	return e.RetryAfter
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
