// Package lock serializes work on a shared key, such as occurrence
// generation for one mass.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when the key is already held by another holder.
var ErrBusy = errors.New("lock busy")

// Locker acquires a named lock for at most ttl. The returned release func
// must be called once the work is done.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// MemoryLocker is a process-local Locker used when no redis server is configured.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewMemoryLocker returns an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time), clock: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, ErrBusy
	}
	exp := now.Add(ttl)
	l.held[key] = exp
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// an expired lock may have been taken over by someone else
		if l.held[key].Equal(exp) {
			delete(l.held, key)
		}
	}, nil
}
