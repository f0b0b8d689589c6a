package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/a11ybridge/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

var (
	// ErrLockAcquire is returned when the lock cannot be acquired.
	ErrLockAcquire = errors.New("failed to acquire tree ownership lock")
	// ErrLockLost is returned by Keepalive once another owner holds the key.
	ErrLockLost = errors.New("tree ownership lock lost")
)

const (
	unlockScript = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`
	extendScript = `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`
)

// Locker implements ports.OwnerLocker using Redis.
// Each lock value is a random token, so only the holder can release or
// extend it.
type Locker struct {
	client *backend.Client
	prefix string
	retry  time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

var _ ports.OwnerLocker = (*Locker)(nil)

// NewLocker creates a new Redis locker.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
		retry:  100 * time.Millisecond,
		tokens: make(map[string]string),
	}
}

func (l *Locker) key(key string) string {
	return l.prefix + "lock:" + key
}

// Lock acquires ownership of key using Redis SET NX PX, polling until the
// context ends.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.key(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrLockAcquire, err)
		}
		if ok {
			l.mu.Lock()
			l.tokens[key] = token
			l.mu.Unlock()
			return func(ctx context.Context) error {
				l.mu.Lock()
				delete(l.tokens, key)
				l.mu.Unlock()
				return l.client.Eval(ctx, unlockScript, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Keepalive extends the TTL of an owned key every ttl/3 until the context
// ends. It returns ErrLockLost if the key is no longer held by this Locker.
func (l *Locker) Keepalive(ctx context.Context, key string, ttl time.Duration) error {
	interval := max(ttl/3, 10*time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		l.mu.Lock()
		token, ok := l.tokens[key]
		l.mu.Unlock()
		if !ok {
			return ErrLockLost
		}

		n, err := l.client.Eval(ctx, extendScript, []string{l.key(key)}, token, ttl.Milliseconds()).Int()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("redis error extending lock: %w", err)
		}
		if n == 0 {
			return ErrLockLost
		}
	}
}
