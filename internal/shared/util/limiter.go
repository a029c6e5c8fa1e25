package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a token bucket sized in requests.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a token bucket refilling r tokens per second with room
// for b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// PerMinute converts a requests-per-minute budget into a refill rate.
func PerMinute(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n) / time.Minute.Seconds()
}

// Allow reports whether n tokens are available now and consumes them.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}

// RetryAfter estimates how long a caller should wait for the next token.
func (l *Limiter) RetryAfter() time.Duration {
	r := l.inner.Reserve()
	defer r.Cancel()
	if !r.OK() {
		return time.Minute
	}
	return r.Delay()
}
