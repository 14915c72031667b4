package github

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRateLimiterConfig(t *testing.T) {
	expected := &RateLimiterConfig{
		BaseDelay:               100 * time.Millisecond,
		MaxDelay:                30 * time.Second,
		BackoffFactor:           2.0,
		Jitter:                  0.1,
		ConcurrencyLimit:        5,
		MinRemainingRequests:    100,
		AggressiveThrottleDelay: 2 * time.Second,
		AdaptiveConcurrency:     true,
		MinConcurrency:          1,
		MaxConcurrency:          20,
	}

	assert.Equal(t, expected, DefaultRateLimiterConfig())
}

func TestNewRateLimiter(t *testing.T) {
	t.Run("custom concurrency limit", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:        200 * time.Millisecond,
			MaxDelay:         time.Minute,
			ConcurrencyLimit: 10,
		})
		require.NotNil(t, limiter)

		stats := limiter.GetStats()
		assert.Equal(t, 10, stats.MaxConcurrentSlots)
		assert.Equal(t, 0, stats.ConcurrentSlots)
	})

	t.Run("nil config falls back to defaults", func(t *testing.T) {
		limiter := NewRateLimiter(nil)
		require.NotNil(t, limiter)

		assert.Equal(t, 5, limiter.GetStats().MaxConcurrentSlots)
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("healthy quota passes through immediately", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:            100 * time.Millisecond,
			MinRemainingRequests: 100,
		})
		limiter.UpdateLimits(3500, int(time.Now().Add(time.Hour).Unix()))

		start := time.Now()
		err := limiter.Wait(context.Background())

		assert.NoError(t, err)
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("draining quota slows requests down", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:               40 * time.Millisecond,
			MaxDelay:                30 * time.Second,
			MinRemainingRequests:    100,
			AggressiveThrottleDelay: 300 * time.Millisecond,
		})

		// 40 of 100 left: throttle at 60% of the full delay
		limiter.UpdateLimits(40, int(time.Now().Add(time.Hour).Unix()))

		start := time.Now()
		err := limiter.Wait(context.Background())

		assert.NoError(t, err)
		assert.Greater(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("canceled context interrupts the sleep", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:               time.Second,
			MaxDelay:                30 * time.Second,
			MinRemainingRequests:    100,
			AggressiveThrottleDelay: 2 * time.Second,
		})
		limiter.UpdateLimits(5, int(time.Now().Add(time.Hour).Unix()))

		ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := limiter.Wait(ctx)

		assert.Equal(t, context.DeadlineExceeded, err)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("exhausted quota waits out the reset", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:               10 * time.Millisecond,
			MaxDelay:                30 * time.Second,
			MinRemainingRequests:    100,
			AggressiveThrottleDelay: 50 * time.Millisecond,
		})

		// Reset times arrive as whole Unix seconds, so truncate to keep
		// the expected wait predictable
		reset := time.Now().Add(2 * time.Second).Truncate(time.Second)
		limiter.UpdateLimits(0, int(reset.Unix()))

		start := time.Now()
		err := limiter.Wait(context.Background())

		assert.NoError(t, err)
		assert.Greater(t, time.Since(start), 900*time.Millisecond)
	})
}

func TestRateLimiter_WaitAccounting(t *testing.T) {
	limiter := NewRateLimiter(&RateLimiterConfig{
		BaseDelay:               5 * time.Millisecond,
		MaxDelay:                time.Second,
		MinRemainingRequests:    100,
		AggressiveThrottleDelay: 20 * time.Millisecond,
	})
	limiter.UpdateLimits(10, int(time.Now().Add(time.Hour).Unix()))

	require.NoError(t, limiter.Wait(context.Background()))

	stats := limiter.GetStats()
	assert.Equal(t, int64(1), stats.TotalWaits)
	assert.Greater(t, stats.TotalDelayTime, time.Duration(0))
}

func TestRateLimiter_UpdateLimits(t *testing.T) {
	limiter := NewRateLimiter(nil)

	reset := int(time.Now().Add(30 * time.Minute).Unix())
	limiter.UpdateLimits(1234, reset)

	stats := limiter.GetStats()
	assert.Equal(t, 1234, stats.RemainingRequests)
	assert.Equal(t, time.Unix(int64(reset), 0), stats.ResetTime)
}

func TestRateLimiter_AdaptiveConcurrency(t *testing.T) {
	// Defaults: MinConcurrency 1, MaxConcurrency 20
	tests := []struct {
		name      string
		remaining int
		wantSlots int
	}{
		{"wide open on a full quota", 3000, 20},
		{"exactly at the wide-open boundary stays mid", 2000, 10},
		{"mid quota halves the cap", 1100, 10},
		{"draining quota narrows further", 750, 3},
		{"nearly spent quota drops to the floor", 80, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewRateLimiter(nil)
			limiter.UpdateLimits(tt.remaining, int(time.Now().Add(time.Hour).Unix()))

			assert.Equal(t, tt.wantSlots, limiter.GetStats().MaxConcurrentSlots)
		})
	}

	t.Run("no resizing when adaptive concurrency is off", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{ConcurrencyLimit: 4})
		limiter.UpdateLimits(80, int(time.Now().Add(time.Hour).Unix()))

		assert.Equal(t, 4, limiter.GetStats().MaxConcurrentSlots)
	})
}

func TestRateLimiter_ConcurrencyControl(t *testing.T) {
	t.Run("slot counts track acquire and release", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{ConcurrencyLimit: 2})
		ctx := context.Background()

		require.NoError(t, limiter.AcquireSlot(ctx))
		assert.Equal(t, 1, limiter.GetStats().ConcurrentSlots)

		require.NoError(t, limiter.AcquireSlot(ctx))
		assert.Equal(t, 2, limiter.GetStats().ConcurrentSlots)

		limiter.ReleaseSlot()
		assert.Equal(t, 1, limiter.GetStats().ConcurrentSlots)

		limiter.ReleaseSlot()
		assert.Equal(t, 0, limiter.GetStats().ConcurrentSlots)
	})

	t.Run("acquire blocks while every slot is taken", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{ConcurrencyLimit: 1})

		require.NoError(t, limiter.AcquireSlot(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := limiter.AcquireSlot(ctx)

		assert.Equal(t, context.DeadlineExceeded, err)
		assert.Greater(t, time.Since(start), 90*time.Millisecond)
	})

	t.Run("concurrency limit clamps to at least one", func(t *testing.T) {
		limiter := NewRateLimiter(nil)

		limiter.SetConcurrencyLimit(8)
		assert.Equal(t, 8, limiter.GetStats().MaxConcurrentSlots)

		limiter.SetConcurrencyLimit(0)
		assert.Equal(t, 1, limiter.GetStats().MaxConcurrentSlots)

		limiter.SetConcurrencyLimit(-3)
		assert.Equal(t, 1, limiter.GetStats().MaxConcurrentSlots)
	})
}

func TestRateLimiter_GetDelay(t *testing.T) {
	t.Run("zero on a healthy quota", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:            100 * time.Millisecond,
			MinRemainingRequests: 100,
		})
		limiter.UpdateLimits(3500, int(time.Now().Add(time.Hour).Unix()))

		assert.Equal(t, time.Duration(0), limiter.GetDelay())
	})

	t.Run("proportional throttle below the quota floor", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:               100 * time.Millisecond,
			MaxDelay:                30 * time.Second,
			MinRemainingRequests:    100,
			AggressiveThrottleDelay: 500 * time.Millisecond,
		})
		limiter.UpdateLimits(50, int(time.Now().Add(time.Hour).Unix()))

		delay := limiter.GetDelay()
		assert.Greater(t, delay, time.Duration(0))
		assert.Less(t, delay, time.Second)
	})

	t.Run("backoff grows as the quota drains", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:     100 * time.Millisecond,
			BackoffFactor: 2.0,
			MaxDelay:      10 * time.Second,
		})
		limiter.UpdateLimits(200, int(time.Now().Add(time.Hour).Unix()))

		assert.Greater(t, limiter.GetDelay(), 100*time.Millisecond)
	})

	t.Run("never exceeds the configured ceiling", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:     time.Second,
			BackoffFactor: 10.0,
			MaxDelay:      3 * time.Second,
		})
		limiter.UpdateLimits(20, int(time.Now().Add(time.Hour).Unix()))

		assert.LessOrEqual(t, limiter.GetDelay(), 3*time.Second)
	})
}

func TestRateLimiter_GetStats(t *testing.T) {
	limiter := NewRateLimiter(&RateLimiterConfig{ConcurrencyLimit: 4})

	reset := int(time.Now().Add(time.Hour).Unix())
	limiter.UpdateLimits(1800, reset)
	require.NoError(t, limiter.AcquireSlot(context.Background()))

	stats := limiter.GetStats()
	assert.Equal(t, 1800, stats.RemainingRequests)
	assert.Equal(t, time.Unix(int64(reset), 0), stats.ResetTime)
	assert.Equal(t, 1, stats.ConcurrentSlots)
	assert.Equal(t, 4, stats.MaxConcurrentSlots)
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewRateLimiter(&RateLimiterConfig{
		BaseDelay:        time.Millisecond,
		ConcurrencyLimit: 4,
	})
	limiter.UpdateLimits(3000, int(time.Now().Add(time.Hour).Unix()))

	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := limiter.AcquireSlot(ctx); err != nil {
				return
			}
			defer limiter.ReleaseSlot()

			_ = limiter.Wait(ctx)
			_ = limiter.GetStats()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, limiter.GetStats().ConcurrentSlots)
}

func TestRateLimiter_EdgeCases(t *testing.T) {
	t.Run("stale reset time means a fresh quota", func(t *testing.T) {
		limiter := NewRateLimiter(&RateLimiterConfig{
			BaseDelay:            100 * time.Millisecond,
			MinRemainingRequests: 100,
		})

		// Exhausted, but the reset already happened
		limiter.UpdateLimits(0, int(time.Now().Add(-30*time.Second).Unix()))

		assert.Equal(t, time.Duration(0), limiter.GetDelay())
	})

	t.Run("release without acquire is a no-op", func(t *testing.T) {
		limiter := NewRateLimiter(nil)

		limiter.ReleaseSlot()

		assert.Equal(t, 0, limiter.GetStats().ConcurrentSlots)
	})
}
