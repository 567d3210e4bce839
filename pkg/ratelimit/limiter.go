package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Strategy names accepted by New
const (
	StrategyTokenBucket   = "token_bucket"
	StrategySlidingWindow = "sliding_window"
)

// Limiter throttles outbound image requests
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming a slot if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the limiter to its initial state
	Reset()
}

// New builds a limiter admitting requestsPerMinute requests per minute.
// Zero or a negative rate disables throttling.
func New(requestsPerMinute int, strategy string) (Limiter, error) {
	if requestsPerMinute <= 0 {
		return Unlimited{}, nil
	}

	switch strategy {
	case "", StrategyTokenBucket:
		return NewTokenBucket(requestsPerMinute, time.Minute), nil
	case StrategySlidingWindow:
		return NewSlidingWindow(requestsPerMinute, time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown rate limit strategy: %s", strategy)
	}
}

// Unlimited admits every request immediately
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset() {}

// TokenBucket refills continuously: a full bucket holds capacity tokens
// and one token comes back every period/capacity. A run may burst up to
// capacity requests, after which requests are spaced evenly.
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	tokens   float64
	interval time.Duration // time to earn back one token
	last     time.Time
}

// NewTokenBucket creates a full bucket admitting capacity requests per period
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity: capacity,
		tokens:   float64(capacity),
		interval: period / time.Duration(capacity),
		last:     time.Now(),
	}
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	_, ok := tb.take()
	return ok
}

// Wait blocks until a token is taken or ctx is done
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		delay, ok := tb.take()
		if ok {
			return nil
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Reset fills the bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = float64(tb.capacity)
	tb.last = time.Now()
}

// take refills for the time elapsed since the last call and takes a token.
// Without a token it returns how long until the next one is earned.
func (tb *TokenBucket) take() (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += float64(now.Sub(tb.last)) / float64(tb.interval)
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
	tb.last = now

	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	return time.Duration((1 - tb.tokens) * float64(tb.interval)), false
}

// SlidingWindow admits at most maxRequests within any windowSize span
type SlidingWindow struct {
	mu          sync.Mutex
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
}

// NewSlidingWindow creates an empty window
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow records a request if fewer than maxRequests fall in the window
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.evict(now)
	if len(sw.requests) >= sw.maxRequests {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

// Wait blocks until the oldest request leaves the window or ctx is done
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		var delay time.Duration
		if len(sw.requests) > 0 {
			delay = time.Until(sw.requests[0].Add(sw.windowSize))
		}
		sw.mu.Unlock()

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// evict drops requests older than the window; requests are kept in order
func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	n := sort.Search(len(sw.requests), func(i int) bool {
		return !sw.requests[i].Before(cutoff)
	})
	sw.requests = append(sw.requests[:0], sw.requests[n:]...)
}

// sleep waits for d, or a short poll interval when d is not positive
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = 10 * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
