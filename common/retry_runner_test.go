package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vouchsafe/vouchsafe/common/logging"
)

var errTransient = errors.New("transient failure")

func newTestRunner(maxRetries uint32) RetryRunner {
	return NewRetryRunner(RetryConfig{
		ShouldRetry: LimitRetries(maxRetries),
		NextDelay:   func(uint32) time.Duration { return 0 },
	}, logging.NewLogger("retry_test"))
}

func TestRetryRunnerStopsAtLimit(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(3)

	attempts := 0
	err := runner.Do(context.Background(), func(context.Context) error {
		attempts++
		return errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 3, attempts)
}

func TestRetryRunnerReturnsFirstSuccess(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(5)

	attempts := 0
	err := runner.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 2 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestRetryRunnerHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(1000)

	ctx, cancel := context.WithCancel(context.Background())
	err := runner.Do(ctx, func(context.Context) error {
		cancel()
		return errTransient
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRandomDelayStaysInBounds(t *testing.T) {
	t.Parallel()

	const minDelay, maxDelay = 20 * time.Millisecond, 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		delay, err := RandomDelay(minDelay, maxDelay)
		require.NoError(t, err)
		require.GreaterOrEqual(t, delay, minDelay)
		require.LessOrEqual(t, delay, maxDelay)
	}

	_, err := RandomDelay(maxDelay, minDelay)
	require.Error(t, err)
}
