package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned by a Locker when another run holds the key.
var ErrLockNotObtained = errors.New("provisioning lock not obtained")

// Locker serializes provisioning runs for the same key. Release must be safe
// to call once after a successful Lock.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(context.Context), err error)
}

// NopLocker never blocks.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(context.Context), error) {
	return func(context.Context) {}, nil
}

// RedisLocker holds a short-lived Redis lock per user.
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	backoff time.Duration
	retries int
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:  redislock.New(rdb),
		ttl:     ttl,
		backoff: 100 * time.Millisecond,
		retries: 20,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context), error) {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	}
	lock, err := l.client.Obtain(ctx, "lock:provision:"+key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain provisioning lock: %w", err)
	}
	return func(ctx context.Context) { _ = lock.Release(ctx) }, nil
}
