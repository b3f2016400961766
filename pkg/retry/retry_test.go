package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}, Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("still down")
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, boom
	}, Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls, "the last transient failure ends the run")
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(errors.New("bad request"))
	}, Policy{MaxAttempts: 5, BaseDelay: time.Millisecond})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent failures never retry")
}

func TestDoDefaultsToOneAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("nope")
	}, Policy{})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoAppliesAttemptTimeout(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			return 1, nil
		}
	}, Policy{MaxAttempts: 2, AttemptTimeout: 10 * time.Millisecond, BaseDelay: time.Millisecond})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls, "each attempt gets its own deadline")
}

func TestDoHonoursParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	}, Policy{MaxAttempts: 5, BaseDelay: time.Second})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "no retry once the parent context is gone")
}

func TestDefaultClassifier(t *testing.T) {
	assert.Equal(t, ClassPermanent, DefaultClassifier(Permanent(errors.New("x"))))
	assert.Equal(t, ClassPermanent, DefaultClassifier(Permanent(context.DeadlineExceeded)))
	assert.Equal(t, ClassTransient, DefaultClassifier(context.DeadlineExceeded))
	assert.Equal(t, ClassTransient, DefaultClassifier(errors.New("connection refused")))
}

func TestDelayGrowth(t *testing.T) {
	linear := Policy{BaseDelay: 100 * time.Millisecond, Backoff: BackoffLinear}
	assert.Equal(t, 100*time.Millisecond, delay(linear, 1))
	assert.Equal(t, 200*time.Millisecond, delay(linear, 2))
	assert.Equal(t, 300*time.Millisecond, delay(linear, 3))

	exp := Policy{BaseDelay: 100 * time.Millisecond, Backoff: BackoffExponential}
	assert.Equal(t, 100*time.Millisecond, delay(exp, 1))
	assert.Equal(t, 200*time.Millisecond, delay(exp, 2))
	assert.Equal(t, 400*time.Millisecond, delay(exp, 3))

	assert.Equal(t, 100*time.Millisecond, delay(Policy{}, 1), "base delay defaults")
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
