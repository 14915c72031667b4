package github

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// RateLimiter paces GitHub API calls during an organization fetch and
// bounds how many detail requests run at once.
type RateLimiter interface {
	// Wait blocks until the next request may be sent
	Wait(ctx context.Context) error

	// UpdateLimits records the remaining quota and reset time reported
	// by the most recent API response
	UpdateLimits(remaining, resetTime int)

	// GetDelay reports how long the next Wait would block
	GetDelay() time.Duration

	// SetConcurrencyLimit caps the number of requests in flight
	SetConcurrencyLimit(limit int)

	// AcquireSlot claims an in-flight slot, blocking while all are taken
	AcquireSlot(ctx context.Context) error

	// ReleaseSlot returns a previously acquired slot
	ReleaseSlot()

	// GetStats reports a snapshot of limiter activity
	GetStats() RateLimiterStats
}

// RateLimiterStats is a point-in-time snapshot of limiter state.
type RateLimiterStats struct {
	RemainingRequests  int           `json:"remaining_requests"`
	ResetTime          time.Time     `json:"reset_time"`
	CurrentDelay       time.Duration `json:"current_delay"`
	ConcurrentSlots    int           `json:"concurrent_slots"`
	MaxConcurrentSlots int           `json:"max_concurrent_slots"`
	TotalWaits         int64         `json:"total_waits"`
	TotalDelayTime     time.Duration `json:"total_delay_time"`
}

// RateLimiterConfig tunes the pacing behavior.
type RateLimiterConfig struct {
	// BaseDelay is the minimum spacing between consecutive requests
	BaseDelay time.Duration

	// MaxDelay caps any single computed delay
	MaxDelay time.Duration

	// BackoffFactor is the exponent base for backoff as quota drains
	BackoffFactor float64

	// Jitter is the fraction of random slack added to each delay
	Jitter float64

	// ConcurrencyLimit is how many requests may be in flight at once
	ConcurrencyLimit int

	// MinRemainingRequests is the quota level where throttling kicks in
	MinRemainingRequests int

	// AggressiveThrottleDelay is the full throttle delay applied as the
	// quota approaches zero
	AggressiveThrottleDelay time.Duration

	// AdaptiveConcurrency resizes the in-flight cap from the quota
	AdaptiveConcurrency bool

	// MinConcurrency is the smallest adaptive in-flight cap
	MinConcurrency int

	// MaxConcurrency is the largest adaptive in-flight cap
	MaxConcurrency int
}

// DefaultRateLimiterConfig returns the pacing defaults used when the
// caller does not supply a configuration.
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
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
}

type fetchLimiter struct {
	cfg *RateLimiterConfig
	mu  sync.RWMutex

	remaining   int
	resetAt     time.Time
	lastRequest time.Time

	// In-flight slot semaphore, swapped out when the cap changes
	slots chan struct{}

	stats RateLimiterStats

	jitterSrc *rand.Rand
}

// NewRateLimiter builds a limiter for organization fetch traffic. A nil
// config selects the defaults.
func NewRateLimiter(cfg *RateLimiterConfig) RateLimiter {
	if cfg == nil {
		cfg = DefaultRateLimiterConfig()
	}

	l := &fetchLimiter{
		cfg:       cfg,
		remaining: 5000, // GitHub's standard hourly quota
		resetAt:   time.Now().Add(time.Hour),
		slots:     make(chan struct{}, cfg.ConcurrencyLimit),
		jitterSrc: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	l.stats.MaxConcurrentSlots = cfg.ConcurrencyLimit

	return l
}

func (l *fetchLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()

	delay := l.pendingDelay()
	if delay > 0 {
		l.stats.TotalWaits++
		l.stats.TotalDelayTime += delay

		// Sleep without holding the lock
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		l.mu.Lock()
	}

	l.lastRequest = time.Now()
	l.mu.Unlock()
	return nil
}

func (l *fetchLimiter) UpdateLimits(remaining, resetTime int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.remaining = remaining
	l.resetAt = time.Unix(int64(resetTime), 0)
	l.stats.RemainingRequests = remaining
	l.stats.ResetTime = l.resetAt

	if l.cfg.AdaptiveConcurrency {
		l.resizeForQuota(remaining)
	}
}

// resizeForQuota picks an in-flight cap from the remaining quota. A
// healthy quota runs wide open, a draining one narrows toward
// MinConcurrency.
func (l *fetchLimiter) resizeForQuota(remaining int) {
	var limit int
	switch {
	case remaining > 2000:
		limit = l.cfg.MaxConcurrency
	case remaining > 1000:
		limit = (l.cfg.MaxConcurrency + l.cfg.MinConcurrency) / 2
	case remaining > 500:
		limit = l.cfg.MinConcurrency + 2
	default:
		limit = l.cfg.MinConcurrency
	}

	if limit == l.cfg.ConcurrencyLimit || limit < l.cfg.MinConcurrency || limit > l.cfg.MaxConcurrency {
		return
	}

	l.slots = make(chan struct{}, limit)
	l.cfg.ConcurrencyLimit = limit
	l.stats.MaxConcurrentSlots = limit
}

func (l *fetchLimiter) GetDelay() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.pendingDelay()
}

func (l *fetchLimiter) SetConcurrencyLimit(limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		limit = 1
	}
	if limit == l.cfg.ConcurrencyLimit {
		return
	}

	l.slots = make(chan struct{}, limit)
	l.cfg.ConcurrencyLimit = limit
	l.stats.MaxConcurrentSlots = limit
}

func (l *fetchLimiter) AcquireSlot(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.stats.ConcurrentSlots++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *fetchLimiter) ReleaseSlot() {
	select {
	case <-l.slots:
		l.mu.Lock()
		l.stats.ConcurrentSlots--
		l.mu.Unlock()
	default:
		// Nothing acquired
	}
}

func (l *fetchLimiter) GetStats() RateLimiterStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := l.stats
	snapshot.CurrentDelay = l.pendingDelay()
	return snapshot
}

// pendingDelay combines request spacing, quota throttling, and backoff
// into the delay for the next request. Callers hold at least the read
// lock.
func (l *fetchLimiter) pendingDelay() time.Duration {
	now := time.Now()

	// A reset in the past means a fresh quota
	if now.After(l.resetAt) {
		return 0
	}

	delay := l.spacingDelay(now)
	delay = maxDuration(delay, l.throttleDelay())
	delay = maxDuration(delay, l.backoffDelay())

	if l.cfg.Jitter > 0 && delay > 0 {
		slack := float64(delay) * l.cfg.Jitter
		delay += time.Duration(l.jitterSrc.Float64() * slack)
	}

	return minDuration(delay, l.cfg.MaxDelay)
}

// spacingDelay enforces BaseDelay between consecutive requests.
func (l *fetchLimiter) spacingDelay(now time.Time) time.Duration {
	if l.lastRequest.IsZero() {
		return 0
	}
	since := now.Sub(l.lastRequest)
	if since >= l.cfg.BaseDelay {
		return 0
	}
	return l.cfg.BaseDelay - since
}

// throttleDelay slows requests once the quota drops below the
// configured floor, scaling up to the full throttle delay as the quota
// approaches zero. With the quota exhausted it waits out the reset.
func (l *fetchLimiter) throttleDelay() time.Duration {
	if l.remaining >= l.cfg.MinRemainingRequests {
		return 0
	}
	if l.remaining <= 0 {
		if wait := time.Until(l.resetAt); wait > 0 {
			return wait
		}
		return 0
	}

	used := 1.0 - float64(l.remaining)/float64(l.cfg.MinRemainingRequests)
	return time.Duration(float64(l.cfg.AggressiveThrottleDelay) * used)
}

// backoffDelay grows exponentially as the quota drains below a tenth
// of GitHub's standard hourly allowance.
func (l *fetchLimiter) backoffDelay() time.Duration {
	if l.remaining >= 500 {
		return 0
	}
	exp := math.Pow(l.cfg.BackoffFactor, float64(5000-l.remaining)/1000)
	return time.Duration(float64(l.cfg.BaseDelay) * exp)
}

func minDuration(a, b time.Duration) time.Duration {
	if b < a {
		return b
	}
	return a
}

func maxDuration(a, b time.Duration) time.Duration {
	if b > a {
		return b
	}
	return a
}
