package store

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry calls fn until it succeeds, fails with a non-retryable error, or
// attempts run out. Only CodeBusy errors are retried. The wait doubles
// after each failure, starting at initial.
func Retry(ctx context.Context, attempts int, initial time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	return backoff.Retry(func() error {
		err := fn(ctx)
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
