package contract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")
var errPermanent = errors.New("permanent")

// TestRetrySucceedsAfterFailures tests that transient errors are retried
// up to the attempt budget.
func TestRetrySucceedsAfterFailures(t *testing.T) {
	var calls int
	op := func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}

	err := Retry(context.Background(), time.Millisecond, 3, nil, op)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

// TestRetryExhausted tests that the budget bounds the attempts.
func TestRetryExhausted(t *testing.T) {
	var calls int
	op := func() error {
		calls++
		return errTransient
	}

	err := Retry(context.Background(), time.Millisecond, 3, nil, op)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

// TestRetryPermanent tests that non-retryable errors stop immediately.
func TestRetryPermanent(t *testing.T) {
	var calls int
	op := func() error {
		calls++
		return errPermanent
	}
	retryable := func(err error) bool { return !errors.Is(err, errPermanent) }

	err := Retry(context.Background(), time.Millisecond, 3, retryable, op)
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
}

// TestRetryContextCancel tests that a canceled context ends the loop.
func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	op := func() error {
		calls++
		cancel()
		return errTransient
	}

	err := Retry(ctx, time.Minute, 5, nil, op)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
