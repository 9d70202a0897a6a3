package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/ignatij/memoflow/internal/testutil"
	"github.com/ignatij/memoflow/pkg/lock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator(t *testing.T) {
	ctx := context.Background()

	t.Run("DegradedModeRunsBody", func(t *testing.T) {
		var c *lock.Coordinator
		ran := false
		err := c.WithLock(ctx, "resource", func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.False(t, c.Enabled())
	})

	t.Run("ReleasesOnSuccess", func(t *testing.T) {
		c, backend := testutil.SetupLockCoordinator(t, 10*time.Second)

		err := c.WithLock(ctx, "resource", func(ctx context.Context) error { return nil })
		require.NoError(t, err)

		// Lock is free again.
		h, err := backend.Acquire(ctx, "resource", time.Second)
		require.NoError(t, err)
		require.NoError(t, backend.Release(ctx, h))
	})

	t.Run("ReleasesOnErrorAndPropagates", func(t *testing.T) {
		c, backend := testutil.SetupLockCoordinator(t, 10*time.Second)

		bodyErr := errors.New("boom")
		err := c.WithLock(ctx, "resource", func(ctx context.Context) error { return bodyErr })
		assert.True(t, errors.Is(err, bodyErr))

		h, err := backend.Acquire(ctx, "resource", time.Second)
		require.NoError(t, err)
		require.NoError(t, backend.Release(ctx, h))
	})

	t.Run("CollisionFailsFast", func(t *testing.T) {
		c, backend := testutil.SetupLockCoordinator(t, 10*time.Second)

		h, err := backend.Acquire(ctx, "resource", 10*time.Second)
		require.NoError(t, err)
		defer func() { _ = backend.Release(ctx, h) }()

		ran := false
		err = c.WithLock(ctx, "resource", func(ctx context.Context) error {
			ran = true
			return nil
		})
		assert.True(t, errors.Is(err, lock.ErrCollision))
		assert.False(t, ran)
	})

	t.Run("ReleasesWithCancelledContext", func(t *testing.T) {
		c, backend := testutil.SetupLockCoordinator(t, 10*time.Second)

		cancelCtx, cancel := context.WithCancel(ctx)
		err := c.WithLock(cancelCtx, "resource", func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		})
		assert.Error(t, err)

		// The handle was released even though the body context was cancelled.
		h, err := backend.Acquire(ctx, "resource", time.Second)
		require.NoError(t, err)
		require.NoError(t, backend.Release(ctx, h))
	})
}
