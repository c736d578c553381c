package contract

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs op with exponential backoff: attempts total tries starting at
// base delay, doubling each time. retryable decides whether an error is
// transient; non-transient errors stop the loop immediately. This is the
// single retry policy shared by the API client and the connection manager.
func Retry(ctx context.Context, base time.Duration, attempts uint64, retryable func(error) bool, op func() error) error {
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = base
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(policy, attempts-1), ctx))
}
