package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"harperls.dev/harper-ls/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestScheduleRunsJob(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(2, func(ctx context.Context, key string) {
		assert.Equal(t, "file:///a.txt", key)
		runs.Add(1)
	})
	defer s.Close()

	require.NoError(t, s.Schedule("file:///a.txt"))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, tick)
}

func TestScheduleCancelsAndCoalesces(t *testing.T) {
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	var cancelled, completed atomic.Int32

	s := scheduler.New(1, func(ctx context.Context, key string) {
		started <- struct{}{}
		select {
		case <-ctx.Done():
			cancelled.Add(1)
		case <-release:
			completed.Add(1)
		}
	})
	defer s.Close()

	require.NoError(t, s.Schedule("k"))
	<-started

	// Three requests while the first run is in flight cancel it and queue a
	// single rerun.
	for range 3 {
		require.NoError(t, s.Schedule("k"))
	}
	require.Eventually(t, func() bool { return cancelled.Load() == 1 }, waitFor, tick)

	<-started
	close(release)
	require.Eventually(t, func() bool { return completed.Load() == 1 }, waitFor, tick)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), cancelled.Load())
	assert.Equal(t, int32(1), completed.Load())
	assert.Empty(t, started, "no run beyond the coalesced one")
}

func TestOneJobPerKey(t *testing.T) {
	var mu sync.Mutex
	active := map[string]int{}
	var overlap atomic.Bool
	var runs atomic.Int32

	s := scheduler.New(4, func(ctx context.Context, key string) {
		mu.Lock()
		active[key]++
		if active[key] > 1 {
			overlap.Store(true)
		}
		mu.Unlock()

		time.Sleep(2 * time.Millisecond)

		mu.Lock()
		active[key]--
		mu.Unlock()
		runs.Add(1)
	})
	defer s.Close()

	for i := range 40 {
		key := []string{"a", "b", "c"}[i%3]
		require.NoError(t, s.Schedule(key))
		time.Sleep(time.Millisecond)
	}
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, waitFor, tick)
	assert.False(t, overlap.Load())
}

func TestParallelismBound(t *testing.T) {
	var current, peak atomic.Int32
	var done atomic.Int32
	s := scheduler.New(2, func(ctx context.Context, key string) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		done.Add(1)
	})
	defer s.Close()

	for _, k := range []string{"a", "b", "c", "d", "e", "f"} {
		require.NoError(t, s.Schedule(k))
	}
	require.Eventually(t, func() bool { return done.Load() == 6 }, waitFor, tick)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestStopCancelsKey(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s := scheduler.New(1, func(ctx context.Context, key string) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})
	defer s.Close()

	require.NoError(t, s.Schedule("k"))
	<-started
	s.Stop("k")
	require.Eventually(t, cancelled.Load, waitFor, tick)
	assert.Empty(t, s.Keys())
}

func TestJobPanicDoesNotKillWorker(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(1, func(ctx context.Context, key string) {
		if runs.Add(1) == 1 {
			panic("boom")
		}
	})
	defer s.Close()

	require.NoError(t, s.Schedule("k"))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, waitFor, tick)
	require.NoError(t, s.Schedule("k"))
	require.Eventually(t, func() bool { return runs.Load() == 2 }, waitFor, tick)
}

func TestClose(t *testing.T) {
	s := scheduler.New(1, func(ctx context.Context, key string) { <-ctx.Done() })
	require.NoError(t, s.Schedule("a"))
	require.NoError(t, s.Schedule("b"))

	s.Close()
	s.Close()
	assert.ErrorIs(t, s.Schedule("a"), scheduler.ErrClosed)
}
