// Public domain.

package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtisa1/icqsplitter/internal/retry"
)

func fast() retry.Config {
	c := retry.DefaultConfig()
	c.InitialDelay = time.Millisecond
	c.MaxDelay = 2 * time.Millisecond
	return c
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	n := 0
	err := retry.Do(context.Background(), fast(), func() error {
		n++
		if n < 3 {
			return errors.New("busy")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDoGivesUp(t *testing.T) {
	busy := errors.New("busy")
	n := 0
	err := retry.Do(context.Background(), fast(), func() error {
		n++
		return busy
	})
	assert.ErrorIs(t, err, busy)
	assert.Equal(t, 3, n)
}

func TestDoNotRetryable(t *testing.T) {
	transient := errors.New("transient")
	other := errors.New("other")
	cfg := fast()
	cfg.Retryable = []error{transient}
	n := 0
	err := retry.Do(context.Background(), cfg, func() error {
		n++
		return other
	})
	assert.ErrorIs(t, err, other)
	assert.Equal(t, 1, n)
}

func TestRetryableWrapped(t *testing.T) {
	transient := errors.New("transient")
	cfg := fast()
	cfg.Retryable = []error{transient}
	n := 0
	err := retry.Do(context.Background(), cfg, func() error {
		n++
		if n < 3 {
			return fmt.Errorf("call %d: %w", n, transient)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDoCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := 0
	err := retry.Do(ctx, fast(), func() error {
		n++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestDoWithResult(t *testing.T) {
	n := 0
	v, err := retry.DoWithResult(context.Background(), fast(), func() (int, error) {
		n++
		if n == 1 {
			return 0, errors.New("busy")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
