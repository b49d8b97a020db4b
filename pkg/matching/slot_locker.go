package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/lock"
)

// RedisSlotLocker adapts the distributed lock manager to the coordinator's
// SlotLocker contract.
type RedisSlotLocker struct {
	manager   *lock.Manager
	ttl       time.Duration
	retries   int
	retryWait time.Duration
}

func NewRedisSlotLocker(manager *lock.Manager, ttl time.Duration, retries int, retryWait time.Duration) *RedisSlotLocker {
	return &RedisSlotLocker{
		manager:   manager,
		ttl:       ttl,
		retries:   retries,
		retryWait: retryWait,
	}
}

func (l *RedisSlotLocker) LockSlot(ctx context.Context, slot time.Time) (func(), error) {
	acquired, err := l.manager.AcquireWithRetry(ctx, lock.SlotKey(slot), l.ttl, l.retries, l.retryWait)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, fmt.Errorf("%w: %s", ErrSlotBusy, slot.Format(time.RFC3339))
	}
	if err != nil {
		return nil, err
	}

	release := func() {
		if err := acquired.Release(context.Background()); err != nil {
			logger.Log.WithError(err).WithField("slot", slot.Format(time.RFC3339)).
				Error("failed to release slot lock")
		}
	}
	return release, nil
}
