package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces calls to a rate-limited upstream, incorporating optional jitter.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	bucket   *rate.Limiter
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
}

// NewLimiter creates a new limiter allowing rps calls per second with the
// given burst and jitter factor. Jitter is clamped to [0, 1] and burst to
// at least 1. If rps is <= 0, the limiter does not block.
func NewLimiter(rps float64, burst int, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}

	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		bucket:   rate.NewLimiter(rate.Limit(rps), burst),
		jitter:   jitter,
		interval: time.Duration(float64(time.Second) / rps),
	}
}

// Wait blocks until a token is available, or until the context is
// canceled. A positive jitter adds up to jitter*interval of extra delay.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.bucket == nil {
		return nil
	}

	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}

	if l.jitter <= 0 {
		return nil
	}

	// Only the positive half of the jitter window delays; the bucket
	// already enforces the minimum spacing.
	extra := time.Duration(float64(l.interval) * l.jitter * rand.Float64())
	if extra <= 0 {
		return nil
	}

	select {
	case <-time.After(extra):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Limit reports the configured rate in calls per second (0 = unlimited).
func (l *Limiter) Limit() float64 {
	if l == nil || l.bucket == nil {
		return 0
	}
	return float64(l.bucket.Limit())
}
