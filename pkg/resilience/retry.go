package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ClassifiedError lets callers mark a failure as permanent (no retry) or
// transient (retry candidate), optionally carrying a provider-asserted
// Retry-After hint. HTTP 400/401/403/404 are permanent; timeouts,
// connection errors, 429, and 5xx are transient.
type ClassifiedError struct {
	Err        error
	Permanent  bool
	RetryAfter time.Duration
	StatusCode int
}

func (c *ClassifiedError) Error() string { return c.Err.Error() }
func (c *ClassifiedError) Unwrap() error { return c.Err }

func Permanent(err error, statusCode int) error {
	return &ClassifiedError{Err: err, Permanent: true, StatusCode: statusCode}
}

func Transient(err error, statusCode int, retryAfter time.Duration) error {
	return &ClassifiedError{Err: err, Permanent: false, StatusCode: statusCode, RetryAfter: retryAfter}
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Do runs fn up to cfg.MaxAttempts times. A ClassifiedError marked
// Permanent stops retrying immediately. Delay between attempts n is
// min(MaxDelay, max(RetryAfter, BaseDelay*2^(n-1)*jitter)), jitter uniform
// in [0.5, 1.0]. Respects ctx cancellation between attempts.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var classified *ClassifiedError
		if errors.As(err, &classified) && classified.Permanent {
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func backoffDelay(cfg RetryConfig, attempt int, err error) time.Duration {
	base := cfg.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	jitter := 0.5 + rand.Float64()*0.5
	exp := float64(base) * math.Pow(2, float64(attempt-1)) * jitter

	var retryAfter time.Duration
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		retryAfter = classified.RetryAfter
	}

	delay := time.Duration(exp)
	if retryAfter > delay {
		delay = retryAfter
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
