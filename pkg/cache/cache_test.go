package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

func key(window records.TimeWindow, fp string) Key {
	return Key{Window: window, Fingerprint: fp, Kind: "test"}
}

type countingObserver struct {
	hits, misses, evictions atomic.Int64
}

func (o *countingObserver) CacheHit(string)      { o.hits.Add(1) }
func (o *countingObserver) CacheMiss(string)     { o.misses.Add(1) }
func (o *countingObserver) CacheEviction(string) { o.evictions.Add(1) }

func TestGet_ComputesOnceForConcurrentCallers(t *testing.T) {
	c := New[int]("test")
	var calls atomic.Int64
	release := make(chan struct{})

	compute := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const callers = 32
	var wg sync.WaitGroup
	results := make([]int, callers)
	hits := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, hit, err := c.Get(context.Background(), key(records.Window7d, "fp"), compute)
			assert.NoError(t, err)
			results[i], hits[i] = v, hit
		}(i)
	}

	// Let every caller reach the table before releasing the computation.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	misses := 0
	for i := range results {
		assert.Equal(t, 42, results[i])
		if !hits[i] {
			misses++
		}
	}
	assert.Equal(t, 1, misses)
	assert.Equal(t, uint64(1), c.Stats().Computations)
	assert.Equal(t, 1, c.Len())
}

func TestGet_FailuresAreNotCached(t *testing.T) {
	c := New[int]("test")
	boom := errors.New("boom")
	var calls int

	_, _, err := c.Get(context.Background(), key(records.Window30d, "fp"), func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, hit, err := c.Get(context.Background(), key(records.Window30d, "fp"), func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(1), c.Stats().Failures)
}

func TestGet_KeepPredicate(t *testing.T) {
	c := New[int]("test", WithKeep(func(v int) bool { return v > 0 }))

	v, _, err := c.Get(context.Background(), key(records.Window7d, "a"), func(context.Context) (int, error) { return -1, nil })
	require.NoError(t, err)
	assert.Equal(t, -1, v)
	assert.Equal(t, 0, c.Len())

	_, _, err = c.Get(context.Background(), key(records.Window7d, "b"), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, ok := c.Peek(key(records.Window7d, "b"))
	assert.True(t, ok)
}

func TestGet_HitAfterPublish(t *testing.T) {
	obs := &countingObserver{}
	c := New[string]("test", WithObserver[string](obs))
	k := key(records.WindowAll, "fp")

	_, hit, err := c.Get(context.Background(), k, func(context.Context) (string, error) { return "v", nil })
	require.NoError(t, err)
	assert.False(t, hit)

	v, hit, err := c.Get(context.Background(), k, func(context.Context) (string, error) {
		t.Fatal("compute must not run on a hit")
		return "", nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", v)
	assert.Equal(t, int64(1), obs.hits.Load())
	assert.Equal(t, int64(1), obs.misses.Load())
}

func TestGet_WaiterContextCancelled(t *testing.T) {
	c := New[int]("test")
	k := key(records.Window7d, "fp")
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _, _ = c.Get(context.Background(), k, func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := c.Get(ctx, k, func(context.Context) (int, error) { return 2, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, time.Millisecond)
	v, ok := c.Peek(k)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestGet_WaiterRetriesWhenLeaderCancelled(t *testing.T) {
	c := New[int]("test")
	k := key(records.Window7d, "fp")
	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	started := make(chan struct{})

	go func() {
		_, _, _ = c.Get(leaderCtx, k, func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		})
	}()
	<-started

	done := make(chan int)
	go func() {
		v, _, err := c.Get(context.Background(), k, func(context.Context) (int, error) { return 9, nil })
		assert.NoError(t, err)
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	cancelLeader()
	select {
	case v := <-done:
		assert.Equal(t, 9, v)
	case <-time.After(time.Second):
		t.Fatal("waiter did not retry")
	}
}

func TestInvalidate(t *testing.T) {
	c := New[int]("test")
	ctx := context.Background()
	for _, k := range []Key{key(records.Window7d, "a"), key(records.Window7d, "b"), key(records.Window30d, "a")} {
		_, _, err := c.Get(ctx, k, func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Invalidate(records.Window7d))
	assert.Equal(t, 1, c.Len())
	_, ok := c.Peek(key(records.Window30d, "a"))
	assert.True(t, ok)

	assert.Equal(t, 1, c.InvalidateAll())
	assert.Equal(t, 0, c.Len())
}

func TestInvalidate_InFlightResultIsNotRetained(t *testing.T) {
	c := New[int]("test")
	k := key(records.Window7d, "fp")
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int)

	go func() {
		v, _, _ := c.Get(context.Background(), k, func(context.Context) (int, error) {
			close(started)
			<-release
			return 5, nil
		})
		done <- v
	}()
	<-started
	c.Invalidate(records.Window7d)
	close(release)

	assert.Equal(t, 5, <-done)
	assert.Equal(t, 0, c.Len())
}

func TestEviction(t *testing.T) {
	obs := &countingObserver{}
	c := New[int]("test", WithMaxEntries[int](2), WithObserver[int](obs))
	ctx := context.Background()
	for _, fp := range []string{"a", "b", "c"} {
		_, _, err := c.Get(ctx, key(records.Window7d, fp), func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Peek(key(records.Window7d, "a"))
	assert.False(t, ok, "least recently used entry should be evicted")
	assert.Equal(t, int64(1), obs.evictions.Load())
}

func TestGet_PanicBecomesError(t *testing.T) {
	c := New[int]("test")
	_, _, err := c.Get(context.Background(), key(records.Window7d, "fp"), func(context.Context) (int, error) {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, 0, c.Len())
}

func TestKeyString(t *testing.T) {
	k := Key{Window: records.Window30d, Fingerprint: "0123456789abcdef", Kind: "graph"}
	assert.Equal(t, "graph/30d/0123456789ab", k.String())
}
