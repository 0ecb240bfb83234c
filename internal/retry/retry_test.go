package retry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsWithoutRetryingOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(attempt int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUpToMaxAttemptsThenReturnsLastError(t *testing.T) {
	calls := 0
	errBoom := errors.New("boom")

	err := Do(context.Background(), func(attempt int) error {
		calls++
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, MaxAttempts, calls)
}

func TestDo_StopsRetryingOnceFnSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelledDuringBackoffAbortsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Do(ctx, func(attempt int) error {
		calls++
		if attempt == 1 {
			cancel()
		}
		return errors.New("always fails")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDelayFor_GrowsExponentiallyAndSaturates(t *testing.T) {
	assert.Equal(t, minDelay, delayFor(1))
	assert.Equal(t, minDelay*2, delayFor(2))
	assert.Equal(t, minDelay*4, delayFor(3))
	assert.Equal(t, maxDelay, delayFor(10))
}
