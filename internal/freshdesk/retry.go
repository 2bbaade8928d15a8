package freshdesk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig returns sensible defaults for retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialBackoff:  1 * time.Second,
		MaxBackoff:      30 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// retryAfterError carries the Retry-After duration from a 429 response so the
// retryer can honor it instead of guessing.
type retryAfterError struct {
	err        error
	retryAfter time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

// Retryer handles retry logic with exponential backoff
type Retryer struct {
	config      RetryConfig
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// NewRetryer creates a new retryer
func NewRetryer(config RetryConfig, rateLimiter *RateLimiter, logger *slog.Logger) *Retryer {
	return &Retryer{
		config:      config,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// RetryFunc is a function that can be retried
type RetryFunc func(ctx context.Context) error

// Do executes a function with retry logic
func (r *Retryer) Do(ctx context.Context, operation string, fn RetryFunc) error {
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		err := fn(ctx)
		if err == nil {
			r.rateLimiter.ResetBackoff()
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retry",
					"operation", operation,
					"attempt", attempt)
			}
			return nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			r.logger.Debug("Non-retryable error encountered",
				"operation", operation,
				"attempt", attempt,
				"error", err)
			return err
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		// 429 responses wait for the server-provided Retry-After duration
		if IsRateLimitError(err) {
			var raErr *retryAfterError
			var retryAfter time.Duration
			if errors.As(err, &raErr) {
				retryAfter = raErr.retryAfter
			}
			r.logger.Warn("Rate limit error, waiting before retry",
				"operation", operation,
				"attempt", attempt,
				"retry_after", retryAfter)
			if err := r.rateLimiter.WaitForRetryAfter(ctx, retryAfter); err != nil {
				return fmt.Errorf("rate limit handling failed: %w", err)
			}
			continue
		}

		// Exponential backoff for other retryable errors
		r.logger.Info("Retryable error, backing off",
			"operation", operation,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(backoff):
			backoff = min(time.Duration(float64(backoff)*r.config.BackoffMultiple), r.config.MaxBackoff)
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w",
		operation, r.config.MaxAttempts, lastErr)
}

// DoWithRetry executes a function that returns a value with retry logic
func DoWithRetry[T any](
	ctx context.Context,
	retryer *Retryer,
	operation string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var result T
	err := retryer.Do(ctx, operation, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}
