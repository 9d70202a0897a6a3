package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Release and extend compare the stored token so an expired-and-reacquired
// lease is never touched by the previous holder.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisBackend implements Backend on top of a single redis instance using
// SET NX with a TTL lease.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// NewRedisBackendFromAddr connects to redis at host:port. An empty host
// means locking is disabled; callers should not construct a backend at all.
func NewRedisBackendFromAddr(host string, port int) *RedisBackend {
	return &RedisBackend{client: redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
	})}
}

func (b *RedisBackend) Acquire(ctx context.Context, key string, lease time.Duration) (*Handle, error) {
	token := uuid.NewString()
	ok, err := b.client.SetNX(ctx, key, token, lease).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "SETNX %s", key)
	}
	if !ok {
		return nil, ErrCollision
	}
	return &Handle{Key: key, Token: token, Lease: lease}, nil
}

func (b *RedisBackend) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, b.client, []string{h.Key}, h.Token).Err(); err != nil {
		return errors.Wrapf(err, "release %s", h.Key)
	}
	return nil
}

func (b *RedisBackend) Extend(ctx context.Context, h *Handle, lease time.Duration) (bool, error) {
	if h == nil {
		return false, nil
	}
	res, err := extendScript.Run(ctx, b.client, []string{h.Key}, h.Token, lease.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrapf(err, "extend %s", h.Key)
	}
	return res == 1, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
