package freshdesk

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter spaces out API requests and tracks the quota Freshdesk reports
// in its rate limit headers.
type RateLimiter struct {
	mu              sync.Mutex
	lastRequestTime time.Time
	minInterval     time.Duration
	logger          *slog.Logger

	// Quota tracking from X-Ratelimit-* response headers
	remaining int
	total     int

	// Backoff state for 429 responses without a Retry-After header
	backoffDuration time.Duration
	maxBackoff      time.Duration
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		minInterval:     100 * time.Millisecond,
		logger:          logger,
		backoffDuration: 1 * time.Second,
		maxBackoff:      5 * time.Minute,
	}
}

// Wait blocks until it's safe to make another API request.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rl.mu.Lock()
	timeSinceLastRequest := time.Since(rl.lastRequestTime)
	waitTime := rl.minInterval - timeSinceLastRequest
	rl.mu.Unlock()

	if waitTime > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	rl.mu.Lock()
	rl.lastRequestTime = time.Now()
	rl.mu.Unlock()
	return nil
}

// UpdateLimits records the quota reported by a Freshdesk response.
func (rl *RateLimiter) UpdateLimits(remaining, total int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.remaining = remaining
	rl.total = total

	if total > 0 && remaining < total/10 {
		rl.logger.Warn("Freshdesk API quota running low",
			"remaining", remaining,
			"total", total)
	}
}

// Status returns the last known quota state.
func (rl *RateLimiter) Status() (remaining, total int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.remaining, rl.total
}

// WaitForRetryAfter sleeps for the duration a 429 response asked for. A zero
// duration falls back to exponential backoff.
func (rl *RateLimiter) WaitForRetryAfter(ctx context.Context, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		return rl.StartBackoff(ctx)
	}
	if retryAfter > rl.maxBackoff {
		retryAfter = rl.maxBackoff
	}

	rl.logger.Warn("Rate limit hit, honoring Retry-After", "wait_duration", retryAfter)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryAfter):
		return nil
	}
}

// StartBackoff waits for the current backoff duration and doubles it for the
// next call, up to maxBackoff.
func (rl *RateLimiter) StartBackoff(ctx context.Context) error {
	rl.mu.Lock()
	backoff := min(rl.backoffDuration, rl.maxBackoff)
	rl.backoffDuration *= 2
	if rl.backoffDuration > rl.maxBackoff {
		rl.backoffDuration = rl.maxBackoff
	}
	rl.mu.Unlock()

	rl.logger.Info("Starting backoff", "duration", backoff)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

// ResetBackoff resets the backoff duration after a successful request.
func (rl *RateLimiter) ResetBackoff() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.backoffDuration = 1 * time.Second
}
