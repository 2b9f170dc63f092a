package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
)

// ErrNotObtained is retryable: someone else holds the key.
var ErrNotObtained = apperror.New(apperror.KindConflict, "another change for this employee is in progress, retry shortly")

// Release gives the lock back. Releasing an expired lock is not an error.
type Release func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// EmployeeKey scopes a lock to one tenant+employee pair.
func EmployeeKey(scope, tenantID, employeeID string) string {
	return fmt.Sprintf("lock:%s:%s:%s", scope, tenantID, employeeID)
}

type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker waits up to about retries*backoff for a busy key before giving up.
func NewRedisLocker(client redislock.RedisClient, ttl time.Duration, backoff time.Duration, retries int) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(backoff), retries),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	lk, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, apperror.WithContext(ErrNotObtained, "key", key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
