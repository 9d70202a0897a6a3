package lock

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrCollision is returned when a resource key is already held by a live,
// unexpired lease.
var ErrCollision = errors.New("lock collision: resource is held by another process")

// Handle represents a claim on a resource key for the duration of a lease.
// The token identifies the holder; release and extend only act when the
// backend still maps the key to this token.
type Handle struct {
	Key   string
	Token string
	Lease time.Duration
}

// Backend is the keyed mutual-exclusion service the coordinator drives.
// Acquire returns ErrCollision when the key is already held. Release is
// idempotent. Extend reports whether the lease was still held.
type Backend interface {
	Acquire(ctx context.Context, key string, lease time.Duration) (*Handle, error)
	Release(ctx context.Context, h *Handle) error
	Extend(ctx context.Context, h *Handle, lease time.Duration) (bool, error)
}

// Logger defines the logging interface for the lock package.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Coordinator wraps critical sections with acquire/execute/release semantics.
// A nil Coordinator (or one without a backend) degrades to running the body
// uncoordinated.
type Coordinator struct {
	backend Backend
	lease   time.Duration
	logger  Logger
}

func NewCoordinator(backend Backend, lease time.Duration, logger Logger) *Coordinator {
	return &Coordinator{backend: backend, lease: lease, logger: logger}
}

// Enabled reports whether cross-process coordination is configured.
func (c *Coordinator) Enabled() bool {
	return c != nil && c.backend != nil
}

// Lease returns the configured lease duration.
func (c *Coordinator) Lease() time.Duration {
	if c == nil {
		return 0
	}
	return c.lease
}

// WithLock acquires the resource key, runs body and releases the handle on
// every exit path, including panics. The body must complete within the lease
// window or the lease is considered abandoned and may be reclaimed.
func (c *Coordinator) WithLock(ctx context.Context, key string, body func(ctx context.Context) error) error {
	if !c.Enabled() {
		return body(ctx)
	}
	h, err := c.backend.Acquire(ctx, key, c.lease)
	if err != nil {
		return errors.Wrapf(err, "acquire lock for %s", key)
	}
	defer func() {
		// Release must survive a cancelled body context.
		if releaseErr := c.backend.Release(context.WithoutCancel(ctx), h); releaseErr != nil {
			if c.logger != nil {
				c.logger.Errorf("Failed to release lock for %s: %v", key, releaseErr)
			}
		}
	}()
	return body(ctx)
}
