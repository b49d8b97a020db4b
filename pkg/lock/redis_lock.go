package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotAcquired = errors.New("lock not acquired")
	ErrNotHeld     = errors.New("lock not held")
)

// Lock is a single acquired Redis lock. Only the owner that set the value
// can release or extend it.
type Lock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// Manager hands out per-key distributed locks backed by SET NX.
type Manager struct {
	client *redis.Client
	owner  string
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{
		client: client,
		owner:  uuid.New().String(),
	}
}

// SlotKey builds the lock key guarding one bookable slot.
func SlotKey(slot time.Time) string {
	return fmt.Sprintf("matching:lock:%s", slot.UTC().Format(time.RFC3339))
}

func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	value := fmt.Sprintf("%s:%s", m.owner, uuid.New().String())
	success, err := m.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, err
	}

	if !success {
		return nil, ErrNotAcquired
	}

	return &Lock{
		client: m.client,
		key:    key,
		value:  value,
		ttl:    ttl,
	}, nil
}

// AcquireWithRetry retries a bounded number of times before giving up with
// ErrNotAcquired. Context cancellation aborts the wait.
func (m *Manager) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryInterval time.Duration) (*Lock, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	for i := 0; i < maxRetries; i++ {
		lock, err := m.Acquire(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}

		if !errors.Is(err, ErrNotAcquired) {
			return nil, err
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryInterval):
			}
		}
	}

	return nil, ErrNotAcquired
}

// Release deletes the lock only if this instance still owns it.
func (l *Lock) Release(ctx context.Context) error {
	script := redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`)

	result, err := script.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrNotHeld
	}

	return nil
}

// Extend pushes the TTL out for long critical sections.
func (l *Lock) Extend(ctx context.Context, extension time.Duration) error {
	script := redis.NewScript(`
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)

	result, err := script.Run(ctx, l.client, []string{l.key}, l.value, extension.Milliseconds()).Int()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrNotHeld
	}

	l.ttl = extension
	return nil
}

// IsHeld reports whether the lock value in Redis is still ours.
func (l *Lock) IsHeld(ctx context.Context) (bool, error) {
	value, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return value == l.value, nil
}
