package functions

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Sender error types
var (
	ErrSenderUnavailable = errors.New("sender unavailable")
	ErrSenderTimeout     = errors.New("sender timeout")
)

// RetryConfig configures retry behavior for notification delivery
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryConfig returns the delivery retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// IsRetryable returns true if a send failure is worth another attempt
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSenderUnavailable) || errors.Is(err, ErrSenderTimeout)
}

// WithRetry executes op until it succeeds, fails permanently or runs out of attempts
func WithRetry(ctx context.Context, config *RetryConfig, op func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= config.MaxAttempts || !IsRetryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.calculateDelay(attempt)):
		}
	}

	return lastErr
}

// calculateDelay is initial_delay * backoff_factor^(attempt-1), capped, plus up to 10% jitter
func (c *RetryConfig) calculateDelay(attempt int) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.JitterEnabled {
		delay += rand.Float64() * 0.1 * delay
	}

	return time.Duration(delay)
}
