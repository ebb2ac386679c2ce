package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/ports/mocks"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		failures    int
		maxAttempts int
	}{
		{name: "first attempt", failures: 0, maxAttempts: 3},
		{name: "one failure", failures: 1, maxAttempts: 3},
		{name: "fails until last attempt", failures: 2, maxAttempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock()
			retrier := NewRetrier(RetryPolicy{MaxAttempts: tt.maxAttempts, Delay: 5 * time.Second}, clock, nil)

			calls := 0
			value, err := Retry(context.Background(), retrier, "op", func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", errors.New("transient")
				}
				return "ok", nil
			})

			require.NoError(t, err)
			assert.Equal(t, "ok", value)
			assert.Equal(t, tt.failures+1, calls)
			assert.Len(t, clock.Sleeps(), tt.failures)
		})
	}
}

func TestRetryExhaustsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	clock := mocks.NewMockClock(t)
	clock.EXPECT().Sleep(mock.Anything, 5*time.Second).Return(nil).Times(3)
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 4, Delay: 5 * time.Second}, clock, nil)

	lastErr := errors.New("attempt 4 failed")
	calls := 0
	_, err := Retry(context.Background(), retrier, "op", func(context.Context) (int, error) {
		calls++
		if calls == 4 {
			return 0, lastErr
		}
		return 0, errors.New("earlier failure")
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
	assert.ErrorIs(t, err, lastErr)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Contains(t, err.Error(), "attempt 4 failed")
}

func TestRetrySingleAttemptNeverSleeps(t *testing.T) {
	t.Parallel()

	clock := mocks.NewMockClock(t)
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 1, Delay: time.Second}, clock, nil)

	_, err := Retry(context.Background(), retrier, "op", func(context.Context) (int, error) {
		return 0, errors.New("nope")
	})
	require.ErrorIs(t, err, domain.ErrRetriesExhausted)
}

func TestRetryStopsWhenContextCancelledDuringDelay(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock()
	clock.onSleep = cancel
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 5, Delay: time.Second}, clock, nil)

	calls := 0
	_, err := Retry(ctx, retrier, "op", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrRetriesExhausted)
}

func TestRetryPolicyValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}.Validate())
	require.Error(t, RetryPolicy{MaxAttempts: 0}.Validate())
	require.Error(t, RetryPolicy{MaxAttempts: 1, Delay: -time.Second}.Validate())
}
