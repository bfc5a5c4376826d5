package memory

import (
	"context"
	"sync"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
)

// LockManager is an in-process domain.LockManager. It ignores the TTL; locks
// are released only by the unlock function.
type LockManager struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]bool)}
}

// Acquire takes the lock for key, or fails with ErrLockHeld.
func (l *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}
