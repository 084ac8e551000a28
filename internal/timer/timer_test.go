package timer

import (
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

// TestScheduleFiresOnce checks the callback runs exactly once after the duration.
func TestScheduleFiresOnce(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var fired atomic.Int32

		tm := New()
		tm.Schedule(time.Second, func() { fired.Add(1) })
		require.True(t, tm.Pending())

		time.Sleep(999 * time.Millisecond)
		synctest.Wait()
		require.Zero(t, fired.Load())

		time.Sleep(time.Millisecond)
		synctest.Wait()
		require.EqualValues(t, 1, fired.Load())
		require.False(t, tm.Pending())

		time.Sleep(5 * time.Second)
		synctest.Wait()
		require.EqualValues(t, 1, fired.Load())
	})
}

// TestRescheduleReplaces ensures a second Schedule cancels the first instead of stacking.
func TestRescheduleReplaces(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var first, second atomic.Int32

		tm := New()
		tm.Schedule(time.Second, func() { first.Add(1) })

		time.Sleep(500 * time.Millisecond)
		tm.Schedule(time.Second, func() { second.Add(1) })

		time.Sleep(600 * time.Millisecond)
		synctest.Wait()
		require.Zero(t, first.Load())
		require.Zero(t, second.Load())

		time.Sleep(400 * time.Millisecond)
		synctest.Wait()
		require.Zero(t, first.Load())
		require.EqualValues(t, 1, second.Load())
	})
}

// TestCancel verifies a cancelled callback never runs and Cancel reports the pending state.
func TestCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var fired atomic.Int32

		tm := New()
		require.False(t, tm.Cancel())

		tm.Schedule(time.Second, func() { fired.Add(1) })
		require.True(t, tm.Cancel())
		require.False(t, tm.Pending())

		time.Sleep(2 * time.Second)
		synctest.Wait()
		require.Zero(t, fired.Load())
	})
}

// TestStaleGenerationIsDropped simulates a timer goroutine that fires after Cancel.
func TestStaleGenerationIsDropped(t *testing.T) {
	t.Parallel()

	tm := New()
	tm.Schedule(time.Hour, func() {})

	gen := tm.generation
	tm.Cancel()

	require.False(t, tm.consume(gen))
}
