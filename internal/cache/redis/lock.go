package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avelsh/crossarb/internal/domain"
)

// Lua scripts guarding the lock token so one holder can never release or
// extend another holder's lock.
const (
	unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`
	extendLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`
)

// LockManager hands out process-exclusive leases backed by Redis SETNX with a
// TTL. The engine takes the trading lease at startup so two instances pointed
// at the same venues can never quote or execute concurrently.
type LockManager struct {
	rdb      *redis.Client
	unlockSc *redis.Script
	extendSc *redis.Script
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:      c.Underlying(),
		unlockSc: redis.NewScript(unlockLua),
		extendSc: redis.NewScript(extendLua),
	}
}

func lockKey(key string) string {
	return "crossarb:lock:" + key
}

// Acquire attempts to obtain the lease for key with the given TTL. It returns
// domain.ErrLockHeld when another process holds it.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()
	lk := lockKey(key)

	ok, err := lm.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}
	return &Lease{lm: lm, key: lk, token: token, ttl: ttl}, nil
}

// Lease is a held lock. Release is safe to call more than once.
type Lease struct {
	lm       *LockManager
	key      string
	token    string
	ttl      time.Duration
	released bool
}

// KeepAlive extends the lease every ttl/3 until ctx is cancelled. It returns
// an error if the lease was lost, which means another process may now be
// trading; the caller should treat that as fatal.
func (l *Lease) KeepAlive(ctx context.Context) error {
	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := l.lm.extendSc.Run(ctx, l.lm.rdb, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
			if err != nil {
				return fmt.Errorf("redis: extend lock %s: %w", l.key, err)
			}
			if n == 0 {
				return fmt.Errorf("redis: lock %s: %w", l.key, domain.ErrLockHeld)
			}
		}
	}
}

// Release gives the lease back. It uses a background context so the unlock
// succeeds even when the caller's context is already cancelled.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = l.lm.unlockSc.Run(ctx, l.lm.rdb, []string{l.key}, l.token).Err()
}
