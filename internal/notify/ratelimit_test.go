package notify

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRateLimiterTelemetryWaits checks that non-critical sends are spaced.
func TestRateLimiterTelemetryWaits(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		limiter := NewRateLimiter(2 * time.Second)

		require.NoError(t, limiter.Wait(t.Context(), false))
		limiter.Record(time.Now())

		start := time.Now()

		require.NoError(t, limiter.Wait(t.Context(), false))
		require.Equal(t, 2*time.Second, time.Since(start))
	})
}

// TestRateLimiterCriticalBypasses checks critical sends never wait but still count.
func TestRateLimiterCriticalBypasses(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		limiter := NewRateLimiter(time.Minute)
		limiter.Record(time.Now())

		start := time.Now()

		require.NoError(t, limiter.Wait(t.Context(), true))
		require.Zero(t, time.Since(start))

		time.Sleep(30 * time.Second)
		limiter.Record(time.Now())
		require.Equal(t, time.Minute, limiter.Delay(time.Now()))
	})
}

// TestRateLimiterHonoursContext checks a waiting send gives up with the context.
func TestRateLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		limiter := NewRateLimiter(time.Minute)
		limiter.Record(time.Now())

		ctx, cancel := context.WithTimeout(t.Context(), time.Second)
		defer cancel()

		require.ErrorIs(t, limiter.Wait(ctx, false), context.DeadlineExceeded)
	})
}

// TestRateLimiterDisabled checks that a zero interval never waits.
func TestRateLimiterDisabled(t *testing.T) {
	t.Parallel()

	limiter := NewRateLimiter(0)
	limiter.Record(time.Now())

	require.Zero(t, limiter.Delay(time.Now()))
	require.NoError(t, limiter.Wait(t.Context(), false))
}
