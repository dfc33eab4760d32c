package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryFixedDelaySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := RetryFixedDelay(context.Background(), func() error {
		calls++
		return nil
	}, 3, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryFixedDelaySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryFixedDelay(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, 5, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryFixedDelayExhaustsAttempts(t *testing.T) {
	calls := 0
	failure := errors.New("persistent")
	err := RetryFixedDelay(context.Background(), func() error {
		calls++
		return failure
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 3, calls)
}

func TestRetryFixedDelayInvalidMaxAttempts(t *testing.T) {
	err := RetryFixedDelay(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryFixedDelayPermanentStopsImmediately(t *testing.T) {
	calls := 0
	failure := errors.New("bad request")
	err := RetryFixedDelay(context.Background(), func() error {
		calls++
		return Permanent(failure)
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 1, calls)
}

func TestRetryFixedDelayFormatErrorStopsImmediately(t *testing.T) {
	calls := 0
	err := RetryFixedDelay(context.Background(), func() error {
		calls++
		return &FormatError{Reason: "missing data array"}
	}, 3, time.Millisecond)

	var formatErr *FormatError
	assert.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 1, calls)
}

func TestRetryFixedDelayContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryFixedDelay(ctx, func() error {
		calls++
		return errors.New("transient")
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
