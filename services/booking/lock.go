package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrSlotLockNotAcquired means another commit holds the slot's critical
// section right now.
var ErrSlotLockNotAcquired = errors.New("slot lock not acquired")

// SlotLocker guards the commit coordinator's capacity re-check per
// doctor/date/session slot.
type SlotLocker interface {
	WithSlotLock(ctx context.Context, doctorID, date, sessionID string, fn func(ctx context.Context) error) error
}

type redisSlotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotLocker creates a locker backed by a per-slot Redis key.
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) SlotLocker {
	return &redisSlotLocker{client: client, ttl: ttl}
}

func (l *redisSlotLocker) WithSlotLock(ctx context.Context, doctorID, date, sessionID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:slot:%s:%s:%s", doctorID, date, sessionID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return ErrSlotLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

// Only the holder of the token may delete the key.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}

// MemorySlotLocker is an in-process SlotLocker for tests.
type MemorySlotLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemorySlotLocker() *MemorySlotLocker {
	return &MemorySlotLocker{held: make(map[string]bool)}
}

func (l *MemorySlotLocker) WithSlotLock(ctx context.Context, doctorID, date, sessionID string, fn func(ctx context.Context) error) error {
	key := doctorID + "|" + date + "|" + sessionID
	l.mu.Lock()
	if l.held[key] {
		l.mu.Unlock()
		return ErrSlotLockNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}
