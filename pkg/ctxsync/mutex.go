// Package ctxsync contains synchronization primitives whose lock operations
// can be abandoned through a [context.Context].
package ctxsync

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// writerWeight is the semaphore weight held by a writer. Readers hold 1, so at
// most writerWeight readers can hold the lock at once.
const writerWeight = 1 << 30

// RWMutex is a reader/writer mutual exclusion lock. Waiters are served in
// arrival order, so a waiting writer blocks readers that arrive after it.
type RWMutex struct {
	sem *semaphore.Weighted
}

// NewRWMutex creates a new unlocked RWMutex.
func NewRWMutex() *RWMutex {
	return &RWMutex{sem: semaphore.NewWeighted(writerWeight)}
}

// Lock locks m for writing with a context.Background().
func (m *RWMutex) Lock() {
	_ = m.LockWithContext(context.Background())
}

// LockWithContext locks m for writing, waiting until every holder is gone or
// ctx is done.
func (m *RWMutex) LockWithContext(ctx context.Context) error {
	return m.sem.Acquire(ctx, writerWeight)
}

// TryLock tries to lock m for writing and reports whether it succeeded.
func (m *RWMutex) TryLock() bool {
	return m.sem.TryAcquire(writerWeight)
}

// Unlock unlocks m for writing. It panics if m is not write locked.
func (m *RWMutex) Unlock() {
	m.sem.Release(writerWeight)
}

// RLockWithContext locks m for reading, waiting while a writer holds or
// waits for the lock.
func (m *RWMutex) RLockWithContext(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// TryRLock tries to lock m for reading and reports whether it succeeded.
func (m *RWMutex) TryRLock() bool {
	return m.sem.TryAcquire(1)
}

// RUnlock undoes a single RLockWithContext call. It panics if m is not read
// locked.
func (m *RWMutex) RUnlock() {
	m.sem.Release(1)
}
