package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFail = errors.New("fail")

func TestRetrier_Do(t *testing.T) {
	tests := []struct {
		name         string
		maxRetries   int
		failures     int
		wantErr      bool
		wantAttempts int
	}{
		{name: "first attempt", maxRetries: 3, failures: 0, wantAttempts: 1},
		{name: "after retries", maxRetries: 3, failures: 2, wantAttempts: 3},
		{name: "exhausted", maxRetries: 2, failures: 10, wantErr: true, wantAttempts: 3},
		{name: "no retries", maxRetries: 0, failures: 1, wantErr: true, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithMaxRetries(tt.maxRetries), WithInitialInterval(time.Millisecond))
			attempts := 0
			err := r.Do(context.Background(), func(ctx context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return errFail
				}
				return nil
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, errFail)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestRetrier_ContextCancelled(t *testing.T) {
	r := New(WithMaxRetries(5), WithInitialInterval(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := r.Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errFail
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDoWithData(t *testing.T) {
	r := New(WithMaxRetries(1), WithInitialInterval(time.Millisecond))

	val, err := DoWithData(r, context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)

	_, err = DoWithData(r, context.Background(), func(ctx context.Context) (int, error) {
		return 0, errFail
	})
	assert.ErrorIs(t, err, errFail)
}

func TestRetrier_Permanent(t *testing.T) {
	r := New(WithMaxRetries(5), WithInitialInterval(time.Millisecond))
	base := errors.New("bad symbol")
	attempts := 0

	err := r.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(base)
	})
	assert.Same(t, base, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestRetrier_OnRetry(t *testing.T) {
	var waits []time.Duration
	r := New(
		WithMaxRetries(3),
		WithInitialInterval(time.Millisecond),
		WithMaxInterval(3*time.Millisecond),
		WithJitter(0),
		WithOnRetry(func(attempt int, wait time.Duration, err error) {
			waits = append(waits, wait)
			assert.ErrorIs(t, err, errFail)
		}),
	)

	err := r.Do(context.Background(), func(ctx context.Context) error {
		return errFail
	})
	assert.Error(t, err)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, waits)
}
