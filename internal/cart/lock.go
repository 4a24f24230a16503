package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oms-labs/oms-backend/pkg/config"
	pkgerrors "github.com/oms-labs/oms-backend/pkg/errors"
	"github.com/sethvargo/go-retry"
)

const lockScope = "cart"

// Locker serializes reconciliation per user. Acquire blocks until the lease
// is held or the retry window elapses, and returns the release func.
type Locker interface {
	Acquire(ctx context.Context, userID string) (func(context.Context), error)
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope, id string) string
}

type redisLocker struct {
	store leaseStore
	cfg   config.CartLockConfig
}

// NewRedisLocker builds a Redis-backed per-user lease.
func NewRedisLocker(store leaseStore, cfg config.CartLockConfig) Locker {
	return &redisLocker{store: store, cfg: cfg}
}

// Acquire takes the user's lease via SETNX with a TTL so a crashed holder
// cannot wedge the cart forever. Contention is retried with exponential
// backoff until MaxWait elapses.
func (l *redisLocker) Acquire(ctx context.Context, userID string) (func(context.Context), error) {
	key := l.store.LockKey(lockScope, userID)
	token := uuid.NewString()

	backoff := retry.NewExponential(l.cfg.RetryBase)
	backoff = retry.WithMaxRetries(uint64(l.cfg.MaxAttempts), backoff)
	backoff = retry.WithMaxDuration(l.cfg.MaxWait, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.store.SetNX(ctx, key, token, l.cfg.TTL)
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(pkgerrors.New(pkgerrors.CodeConflict, "cart is busy"))
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lease")
	}

	release := func(ctx context.Context) {
		// Only drop the lease we still own; an expired lease may have been
		// re-acquired by another request.
		current, err := l.store.Get(ctx, key)
		if err != nil || current != token {
			return
		}
		_ = l.store.Del(ctx, key)
	}
	return release, nil
}
