// Package retry provides bounded exponential backoff for outbound
// adapter calls. A classification function decides which errors are
// worth retrying, so the same wrapper serves both the content source
// and the index store.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config configures retry behaviour.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// Multiplier is the factor by which delay grows after each retry.
	Multiplier float64

	// Jitter randomises each delay to avoid thundering herds.
	Jitter bool

	// Retryable decides whether an error is worth retrying.
	// A nil Retryable retries every error.
	Retryable func(error) bool
}

// DefaultConfig returns the retry policy used for adapter calls:
// three attempts with exponential backoff and jitter.
func DefaultConfig(retryable func(error) bool) Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		Retryable:    retryable,
	}
}

// Do executes fn with the configured retry policy. Non-retryable errors
// return immediately. Context cancellation aborts both the attempt loop
// and any backoff wait.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.Jitter {
			// delay * (0.5 + rand(0, 0.5))
			wait = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}

// DoWithResult executes a function that returns a value with the same
// retry policy as Do.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
