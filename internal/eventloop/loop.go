// Package eventloop runs page tasks one at a time on a single goroutine, in
// submission order, the way a browser event loop runs dispatches.
package eventloop

import (
	"context"
	"errors"
	"sync"

	"github.com/gyaneshwarpardhi/clicktrail/internal/metrics"
)

var (
	// ErrQueueFull is returned when a task cannot be queued without blocking.
	ErrQueueFull = errors.New("event loop queue full")
	// ErrClosed is returned for tasks submitted after Drain.
	ErrClosed = errors.New("event loop closed")
)

// Task is a unit of work run on the loop goroutine.
type Task func(ctx context.Context) error

type job struct {
	task Task
	done chan error // nil for fire-and-forget tasks
}

// Loop is a single-goroutine task queue with bounded depth.
type Loop struct {
	queue   chan job
	onError func(error)
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts a loop with the given queue capacity. onError receives errors
// from tasks submitted with Submit; it may be nil.
func New(ctx context.Context, depth int, onError func(error)) *Loop {
	if depth < 1 {
		depth = 1
	}
	l := &Loop{
		queue:   make(chan job, depth),
		onError: onError,
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run(ctx)
	}()
	return l
}

func (l *Loop) run(ctx context.Context) {
	for {
		select {
		case j, ok := <-l.queue:
			if !ok {
				return
			}
			metrics.LoopUtilization.Set(l.Utilization())
			err := j.task(ctx)
			if j.done != nil {
				j.done <- err
			} else if err != nil && l.onError != nil {
				l.onError(err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (l *Loop) enqueue(j job) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.queue <- j:
		metrics.DispatchesEnqueued.Inc()
		metrics.LoopUtilization.Set(l.Utilization())
		return nil
	default:
		metrics.DispatchesDropped.Inc()
		metrics.LoopUtilization.Set(l.Utilization())
		return ErrQueueFull
	}
}

// Submit enqueues t without blocking. It returns false if the queue is full
// or the loop is closed.
func (l *Loop) Submit(t Task) bool {
	return l.enqueue(job{task: t}) == nil
}

// Do enqueues t and waits for it to finish, returning its error.
func (l *Loop) Do(ctx context.Context, t Task) error {
	done := make(chan error, 1)
	if err := l.enqueue(job{task: t, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain stops accepting tasks, runs what is queued and waits for the loop
// goroutine to exit.
func (l *Loop) Drain() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	l.wg.Wait()
}

// Len returns how many tasks are queued.
func (l *Loop) Len() int { return len(l.queue) }

// Cap returns the queue capacity.
func (l *Loop) Cap() int { return cap(l.queue) }

// Utilization returns queued / capacity (0–1).
func (l *Loop) Utilization() float64 {
	return float64(l.Len()) / float64(l.Cap())
}
