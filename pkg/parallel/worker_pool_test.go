package parallel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolBasicOperations(t *testing.T) {
	pool, err := NewWorkerPool(4, nil)
	require.NoError(t, err)

	executed := false
	assert.True(t, pool.Submit(func() { executed = true }))

	pool.Close()
	assert.True(t, executed, "task was not executed")
}

func TestWorkerPoolConcurrentSubmissions(t *testing.T) {
	pool, err := NewWorkerPool(10, nil)
	require.NoError(t, err)

	numTasks := 100
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < numTasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() {
				atomic.AddInt64(&counter, 1)
			})
		}()
	}

	wg.Wait()
	pool.Close()

	assert.Equal(t, int64(numTasks), counter)
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool, err := NewWorkerPool(2, nil)
	require.NoError(t, err)
	pool.Close()
	pool.Close()

	assert.False(t, pool.Submit(func() {}))
}

func TestWorkerPoolWithPanic(t *testing.T) {
	pool, err := NewWorkerPool(2, nil)
	require.NoError(t, err)

	var ran int64
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { atomic.AddInt64(&ran, 1) })
	pool.Close()

	assert.Equal(t, int64(1), ran)
	assert.Equal(t, 1, pool.Panics())
}

func TestWorkerPoolSizing(t *testing.T) {
	pool, err := NewWorkerPool(0, nil)
	require.NoError(t, err)
	defer pool.Close()
	assert.GreaterOrEqual(t, pool.Workers(), 1)

	_, err = NewWorkerPool(MaxWorkers+1, nil)
	assert.ErrorIs(t, err, ErrTooManyWorkers)
}

func TestForEach(t *testing.T) {
	seen := make([]int64, 50)
	err := ForEach(context.Background(), 4, len(seen), nil, func(i int) {
		atomic.AddInt64(&seen[i], 1)
	})
	require.NoError(t, err)
	for i, n := range seen {
		assert.Equal(t, int64(1), n, "index %d", i)
	}
}

func TestForEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran int64
	err := ForEach(ctx, 1, 100, nil, func(i int) {
		if atomic.AddInt64(&ran, 1) == 3 {
			cancel()
		}
		time.Sleep(time.Millisecond)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, atomic.LoadInt64(&ran), int64(100))
}

func BenchmarkWorkerPoolThroughput(b *testing.B) {
	pool, _ := NewWorkerPool(4, nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Submit(func() {})
	}
	pool.Close()
}
