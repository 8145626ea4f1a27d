package apiclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound requests to the remote API.
type RateLimiter struct {
	limiter *rate.Limiter

	// server requested backoff from a 429 Retry-After
	retryAfterUntil time.Time
	mu              sync.Mutex
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// DefaultRateLimiter returns a limiter suited to interactive auth traffic.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(5.0, 2)
}

// Wait blocks until the next request is allowed.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	waitUntil := r.retryAfterUntil
	r.mu.Unlock()

	if time.Now().Before(waitUntil) {
		timer := time.NewTimer(time.Until(waitUntil))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// SetRetryAfter pauses all requests for d.
func (r *RateLimiter) SetRetryAfter(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(r.retryAfterUntil) {
		r.retryAfterUntil = until
	}
}
