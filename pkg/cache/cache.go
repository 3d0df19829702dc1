// Package cache memoises expensive per-snapshot computations (graph builds,
// centrality runs). Each key is populated at most once at a time: the first
// caller computes while concurrent callers wait on the same entry.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// DefaultMaxEntries bounds the number of completed entries kept per cache.
const DefaultMaxEntries = 64

// Key identifies one cached computation.
type Key struct {
	Window      records.TimeWindow
	Fingerprint string
	Kind        string
}

func (k Key) String() string {
	fp := k.Fingerprint
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return fmt.Sprintf("%s/%s/%s", k.Kind, k.Window, fp)
}

// Observer receives cache events. The metrics registry implements it.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheEviction(cache string)
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Computations uint64 `json:"computations"`
	Failures     uint64 `json:"failures"`
	Evictions    uint64 `json:"evictions"`
	Entries      int    `json:"entries"`
	InFlight     int    `json:"in_flight"`
}

// entry is a future for one key. done is closed once value/err are set.
type entry[V any] struct {
	key     Key
	done    chan struct{}
	value   V
	err     error
	element *list.Element // nil while in flight
}

// Cache is a bounded, LRU-evicted table of per-key futures.
type Cache[V any] struct {
	name       string
	maxEntries int
	keep       func(V) bool
	logger     logging.Logger
	observer   Observer

	mu      sync.Mutex
	entries map[Key]*entry[V]
	lru     *list.List

	hits         atomic.Uint64
	misses       atomic.Uint64
	computations atomic.Uint64
	failures     atomic.Uint64
	evictions    atomic.Uint64
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithMaxEntries bounds the number of completed entries. Non-positive means
// DefaultMaxEntries.
func WithMaxEntries[V any](n int) Option[V] {
	return func(c *Cache[V]) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithKeep sets a predicate deciding whether a successfully computed value is
// published. Values it rejects are returned to the callers that waited for
// them but are not retained.
func WithKeep[V any](keep func(V) bool) Option[V] {
	return func(c *Cache[V]) { c.keep = keep }
}

// WithLogger sets the logger.
func WithLogger[V any](logger logging.Logger) Option[V] {
	return func(c *Cache[V]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver sets the event observer.
func WithObserver[V any](o Observer) Option[V] {
	return func(c *Cache[V]) { c.observer = o }
}

// New creates a cache. name labels logs and metrics.
func New[V any](name string, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		name:       name,
		maxEntries: DefaultMaxEntries,
		logger:     logging.NewNopLogger(),
		entries:    make(map[Key]*entry[V]),
		lru:        list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.Component("cache"), logging.String("cache", name))
	return c
}

// ComputeFunc produces the value of a key.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Get returns the value of key, computing it with compute when absent. hit
// reports whether this call was served without running compute itself.
//
// Concurrent callers for the same missing key share one computation. A
// waiter whose ctx ends stops waiting and gets ctx.Err(); the computation
// continues for the others. Failed computations are never retained; if the
// computing caller's context was cancelled, waiters with a live context
// retry.
func (c *Cache[V]) Get(ctx context.Context, key Key, compute ComputeFunc[V]) (value V, hit bool, err error) {
	for {
		c.mu.Lock()
		e, ok := c.entries[key]
		if !ok {
			break // c.mu held
		}
		if e.element != nil {
			c.lru.MoveToFront(e.element)
			c.mu.Unlock()
			c.recordHit()
			return e.value, true, nil
		}
		c.mu.Unlock()

		select {
		case <-e.done:
		case <-ctx.Done():
			var zero V
			return zero, false, ctx.Err()
		}
		if e.err == nil {
			c.recordHit()
			return e.value, true, nil
		}
		if isContextError(e.err) && ctx.Err() == nil {
			continue
		}
		var zero V
		return zero, false, e.err
	}

	e := &entry[V]{key: key, done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	c.recordMiss()
	c.computations.Add(1)
	c.run(ctx, e, compute)
	return e.value, false, e.err
}

func (c *Cache[V]) run(ctx context.Context, e *entry[V], compute ComputeFunc[V]) {
	defer func() {
		if r := recover(); r != nil {
			e.err = fmt.Errorf("cache %s: computation for %s panicked: %v", c.name, e.key, r)
		}
		c.publish(e)
	}()
	e.value, e.err = compute(ctx)
}

// publish completes e and retains or drops it.
func (c *Cache[V]) publish(e *entry[V]) {
	c.mu.Lock()
	current := c.entries[e.key] == e
	retain := current && e.err == nil && (c.keep == nil || c.keep(e.value))
	switch {
	case retain:
		e.element = c.lru.PushFront(e)
		c.evictLocked()
	case current:
		delete(c.entries, e.key)
	}
	c.mu.Unlock()
	close(e.done)

	if e.err != nil {
		c.failures.Add(1)
		c.logger.Warn("computation failed", logging.String("key", e.key.String()), logging.Error(e.err))
	} else if !retain {
		c.logger.Debug("computed value not retained", logging.String("key", e.key.String()))
	}
}

func (c *Cache[V]) evictLocked() {
	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		victim := oldest.Value.(*entry[V])
		c.lru.Remove(oldest)
		delete(c.entries, victim.key)
		c.evictions.Add(1)
		if c.observer != nil {
			c.observer.CacheEviction(c.name)
		}
	}
}

// Peek returns a completed value without computing or waiting.
func (c *Cache[V]) Peek(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.element == nil {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate drops every entry of window, including in-flight ones: their
// results are still delivered to waiting callers but not retained. It
// returns the number of entries removed.
func (c *Cache[V]) Invalidate(window records.TimeWindow) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, e := range c.entries {
		if key.Window != window {
			continue
		}
		c.removeLocked(key, e)
		removed++
	}
	if removed > 0 {
		c.logger.Info("invalidated", logging.Window(string(window)), logging.Count(removed))
	}
	return removed
}

// InvalidateAll drops every entry.
func (c *Cache[V]) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := len(c.entries)
	for key, e := range c.entries {
		c.removeLocked(key, e)
	}
	if removed > 0 {
		c.logger.Info("invalidated all", logging.Count(removed))
	}
	return removed
}

func (c *Cache[V]) removeLocked(key Key, e *entry[V]) {
	if e.element != nil {
		c.lru.Remove(e.element)
		e.element = nil
	}
	delete(c.entries, key)
}

// Len returns the number of completed entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	entries := c.lru.Len()
	inFlight := len(c.entries) - entries
	c.mu.Unlock()
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Failures:     c.failures.Load(),
		Evictions:    c.evictions.Load(),
		Entries:      entries,
		InFlight:     inFlight,
	}
}

func (c *Cache[V]) recordHit() {
	c.hits.Add(1)
	if c.observer != nil {
		c.observer.CacheHit(c.name)
	}
}

func (c *Cache[V]) recordMiss() {
	c.misses.Add(1)
	if c.observer != nil {
		c.observer.CacheMiss(c.name)
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
