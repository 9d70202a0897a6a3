package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ignatij/memoflow/internal/log"
	"github.com/ignatij/memoflow/pkg/lock"
	"github.com/redis/go-redis/v9"
)

// SetupRedisBackend starts an in-process redis and returns a lock backend
// connected to it, together with the server for clock manipulation.
func SetupRedisBackend(t *testing.T) (*lock.RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	backend := lock.NewRedisBackend(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	t.Cleanup(func() {
		if err := backend.Close(); err != nil {
			t.Errorf("Failed to close redis backend: %v", err)
		}
	})
	return backend, s
}

// SetupLockCoordinator wraps SetupRedisBackend in a coordinator with the
// given lease. The backend is returned alongside so tests can contend for
// keys directly.
func SetupLockCoordinator(t *testing.T, lease time.Duration) (*lock.Coordinator, *lock.RedisBackend) {
	t.Helper()
	backend, _ := SetupRedisBackend(t)
	return lock.NewCoordinator(backend, lease, log.GetLogger()), backend
}
