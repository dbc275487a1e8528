package operations

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// RetryConfig defines retry behavior for steps and feed requests
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay returns the wait before the attempt following attempt:
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := time.Duration(float64(c.InitialDelay) * math.Pow(mult, float64(attempt-1)))
	if c.MaxDelay > 0 && (delay > c.MaxDelay || delay < 0) {
		delay = c.MaxDelay
	}
	return delay
}

// attempts never drops below one
func (c RetryConfig) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

// Retry calls fn until it succeeds, returns a non-retryable error or the
// attempts run out. onRetry, when set, is called before each repeat.
// Exhaustion returns a fatal OperationError wrapping the last error so
// outer retry loops do not repeat the work.
func Retry(ctx context.Context, cfg RetryConfig, name string, fn func(ctx context.Context, attempt int) error, onRetry func(attempt int, err error)) error {
	var lastErr error
	maxAttempts := cfg.attempts()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt >= maxAttempts {
			break
		}

		delay := cfg.Delay(attempt)
		slog.WarnContext(ctx, "retrying",
			slog.String("name", name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return NewCancellationError(name, ctx.Err())
		}
	}

	return NewFatalError(fmt.Sprintf("%s: giving up after %d attempts", name, maxAttempts), lastErr)
}
