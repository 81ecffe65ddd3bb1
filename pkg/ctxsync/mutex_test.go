package ctxsync_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vinicius-lino-figueiredo/docq/pkg/ctxsync"
)

// Multiple goroutines should not be able to hold the write lock together.
func TestLock(t *testing.T) {
	workers := 1000

	n := 0
	mu := ctxsync.NewRWMutex()

	getReady := sync.WaitGroup{}
	add := sync.WaitGroup{}

	getReady.Add(workers)
	add.Add(workers)

	ch := make(chan struct{})

	for range workers {
		go func() {
			defer add.Done()
			getReady.Done()
			<-ch
			mu.Lock()
			defer mu.Unlock()
			n++
		}()
	}

	getReady.Wait()
	close(ch)
	add.Wait()

	assert.Equal(t, workers, n)
}

// Readers should share the lock.
func TestReadersShare(t *testing.T) {
	ctx := context.Background()
	mu := ctxsync.NewRWMutex()

	assert.NoError(t, mu.RLockWithContext(ctx))
	assert.NoError(t, mu.RLockWithContext(ctx))
	assert.True(t, mu.TryRLock())
	assert.False(t, mu.TryLock())

	mu.RUnlock()
	mu.RUnlock()
	mu.RUnlock()

	assert.True(t, mu.TryLock())
	assert.False(t, mu.TryRLock())
	mu.Unlock()
}

// A waiting writer should get the lock before readers that arrive later.
func TestWriterNotStarved(t *testing.T) {
	ctx := context.Background()
	mu := ctxsync.NewRWMutex()

	assert.NoError(t, mu.RLockWithContext(ctx))

	var order []string
	var orderMu sync.Mutex
	record := func(s string) {
		orderMu.Lock()
		defer orderMu.Unlock()
		order = append(order, s)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		mu.Lock()
		record("writer")
		mu.Unlock()
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		_ = mu.RLockWithContext(ctx)
		record("reader")
		mu.RUnlock()
	}()
	time.Sleep(10 * time.Millisecond)

	mu.RUnlock()
	wg.Wait()

	assert.Equal(t, []string{"writer", "reader"}, order)
}

// Should return error when context is canceled while waiting.
func TestCanceling(t *testing.T) {
	mu := ctxsync.NewRWMutex()
	mu.Lock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, mu.LockWithContext(ctx), context.DeadlineExceeded)
	assert.ErrorIs(t, mu.RLockWithContext(ctx), context.DeadlineExceeded)

	mu.Unlock()
	assert.True(t, mu.TryLock())
	mu.Unlock()
}

// A Lock called with a canceled context should not affect other Lock calls.
func TestIndependentCancelling(t *testing.T) {
	workers := 100

	var errCount, okCount atomic.Int64
	mu := ctxsync.NewRWMutex()
	wg := sync.WaitGroup{}

	mu.Lock()

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			if i%2 == 0 {
				c, cancel := context.WithCancel(ctx)
				cancel()
				ctx = c
			}
			if err := mu.LockWithContext(ctx); err != nil {
				errCount.Add(1)
				return
			}
			okCount.Add(1)
			mu.Unlock()
		}()
	}

	time.Sleep(time.Millisecond)
	mu.Unlock()
	wg.Wait()

	assert.Equal(t, int64(workers/2), errCount.Load())
	assert.Equal(t, int64(workers/2), okCount.Load())
}

// Should panic if Unlock is called before Lock.
func TestUnlockWithoutLock(t *testing.T) {
	mu := ctxsync.NewRWMutex()
	assert.Panics(t, func() {
		mu.Unlock()
	})
	assert.Panics(t, func() {
		mu.RUnlock()
	})
}

// BenchmarkRLockRUnlock tests performance for concurrent readers.
func BenchmarkRLockRUnlock(b *testing.B) {
	mu := ctxsync.NewRWMutex()
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = mu.RLockWithContext(ctx)
			mu.RUnlock()
		}
	})
}
