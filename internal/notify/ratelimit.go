package notify

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between sends to one destination.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastSend time.Time
}

// NewRateLimiter creates a limiter; a non-positive interval disables waiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Wait blocks until the interval since the last send has elapsed.
// Critical messages never wait. It returns ctx.Err() if ctx ends first.
func (r *RateLimiter) Wait(ctx context.Context, critical bool) error {
	if critical {
		return nil
	}

	delay := r.Delay(time.Now())
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay returns how long a non-critical send at now would have to wait.
func (r *RateLimiter) Delay(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.interval <= 0 || r.lastSend.IsZero() {
		return 0
	}

	return r.lastSend.Add(r.interval).Sub(now)
}

// Record marks a send attempt at the given time.
func (r *RateLimiter) Record(at time.Time) {
	r.mu.Lock()
	r.lastSend = at
	r.mu.Unlock()
}
