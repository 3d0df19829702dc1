// Package parallel provides the bounded worker pool used to fan CPU-bound
// work (shortest-path passes, per-chunk aggregation) out across cores.
package parallel

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// WorkerPool manages a pool of worker goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu
	logger    logging.Logger
	panics    int
	panicsMu  sync.Mutex
}

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// NewWorkerPool creates a new worker pool with specified number of workers.
// A non-positive count means runtime.GOMAXPROCS(0). Returns an error if the
// worker count exceeds MaxWorkers.
func NewWorkerPool(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Prevent overflow in buffer size calculation
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2), // Buffer for 2x workers
		logger:    logger.With(logging.Component("worker_pool")),
	}

	pool.start()
	return pool, nil
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.workers }

// start initializes the worker goroutines
func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// worker processes tasks from the queue
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		wp.runTask(task)
	}
}

func (wp *WorkerPool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			wp.panicsMu.Lock()
			wp.panics++
			wp.panicsMu.Unlock()
			wp.logger.Error("worker panic recovered", logging.Any("panic", r))
		}
	}()
	task()
}

// Panics returns the number of tasks that panicked.
func (wp *WorkerPool) Panics() int {
	wp.panicsMu.Lock()
	defer wp.panicsMu.Unlock()
	return wp.panics
}

// Submit adds a task to the worker pool
// Returns false if the pool is closed, true if task was submitted
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}

	wp.taskQueue <- task
	return true
}

// Close shuts down the worker pool and waits for queued tasks.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// ForEach runs fn(i) for i in [0, n) on a temporary pool of the given size
// and blocks until every call has returned. Calls still queued when ctx is
// done are skipped; the returned error is ctx.Err() in that case.
func ForEach(ctx context.Context, workers, n int, logger logging.Logger, fn func(i int)) error {
	if n <= 0 {
		return ctx.Err()
	}
	if workers <= 0 || workers > n {
		workers = min(runtime.GOMAXPROCS(0), n)
	}
	pool, err := NewWorkerPool(workers, logger)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if !pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			fn(i)
		}) {
			break
		}
	}
	pool.Close()
	if pool.Panics() > 0 {
		return fmt.Errorf("parallel: %d task(s) panicked", pool.Panics())
	}
	return ctx.Err()
}
