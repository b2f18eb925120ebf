// Package scheduler runs lint jobs per key with at most one job in flight
// per key. Scheduling a key while its job runs cancels that job and queues
// exactly one rerun, however many times the key was scheduled meanwhile.
package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"harperls.dev/harper-ls/internal/log"
)

// ErrClosed is returned when scheduling on a closed scheduler.
var ErrClosed = errors.New("scheduler closed")

// Job is the work run for one key.
type Job func(ctx context.Context, key string)

// Scheduler owns one worker goroutine per active key. Workers across keys
// run in parallel, bounded by a weighted semaphore.
type Scheduler struct {
	job Job
	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
	wg      sync.WaitGroup
}

type worker struct {
	pending chan struct{}
	stop    chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a scheduler running at most parallelism jobs at once. A
// parallelism below one uses GOMAXPROCS.
func New(parallelism int, job Job) *Scheduler {
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		job:     job,
		sem:     semaphore.NewWeighted(int64(parallelism)),
		ctx:     ctx,
		cancel:  cancel,
		workers: map[string]*worker{},
	}
}

// Schedule requests a run for key. It never blocks on the job.
func (s *Scheduler) Schedule(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	w, ok := s.workers[key]
	if !ok {
		w = &worker{pending: make(chan struct{}, 1), stop: make(chan struct{})}
		s.workers[key] = w
		s.wg.Add(1)
		go s.run(key, w)
	}

	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	select {
	case w.pending <- struct{}{}:
	default:
	}
	return nil
}

// Keys returns the keys that currently have a worker.
func (s *Scheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.workers))
	for k := range s.workers {
		keys = append(keys, k)
	}
	return keys
}

// Stop cancels any job for key and ends its worker. It does not wait for a
// cancelled job to return.
func (s *Scheduler) Stop(key string) {
	s.mu.Lock()
	w, ok := s.workers[key]
	if ok {
		delete(s.workers, key)
	}
	s.mu.Unlock()

	if ok {
		w.halt()
	}
}

// Close stops every worker and waits for them to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	workers := s.workers
	s.workers = map[string]*worker{}
	s.mu.Unlock()

	s.cancel()
	for _, w := range workers {
		w.halt()
	}
	s.wg.Wait()
}

func (w *worker) halt() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()
	close(w.stop)
}

func (s *Scheduler) run(key string, w *worker) {
	defer s.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case <-w.pending:
		}

		ctx, cancel := context.WithCancel(s.ctx)
		w.mu.Lock()
		w.cancel = cancel
		w.mu.Unlock()

		s.runOnce(ctx, key, w)

		w.mu.Lock()
		w.cancel = nil
		w.mu.Unlock()
		cancel()
	}
}

func (s *Scheduler) runOnce(ctx context.Context, key string, w *worker) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Lint job for %s panicked: %v", key, r)
		}
	}()

	select {
	case <-w.stop:
		return
	default:
	}
	s.job(ctx, key)
}
