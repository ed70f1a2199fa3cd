// Package retry provides the single retry policy used for remote provider
// calls: bounded attempts with exponential backoff and a pluggable
// retryability check.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how an operation is retried. The zero value is not
// usable; construct with DefaultPolicy and override as needed.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	// IsRetryable decides whether an error is worth another attempt.
	// Nil means every error is retryable.
	IsRetryable func(error) bool
	// OnRetry observes each failed attempt before the backoff sleep.
	OnRetry func(err error, wait time.Duration)
}

// DefaultPolicy matches the provider contract: 3 attempts, 1s initial
// backoff doubling per attempt, no jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		Multiplier:      2,
	}
}

// Do runs op under the policy and returns its last result. The backoff sleep
// respects ctx cancellation.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.RandomizationFactor = 0
	bo.Multiplier = p.Multiplier

	wrapped := func() (T, error) {
		v, err := op()
		if err != nil && p.IsRetryable != nil && !p.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			p.OnRetry(err, wait)
		}))
	}

	return backoff.Retry(ctx, wrapped, opts...)
}
