// Package concurrency provides the bounded limiter used to throttle event
// handler dispatch and embedding calls. Waiters are served strictly FIFO.
package concurrency

import (
	"context"
	"sync"
)

// DefaultCapacity is the limiter capacity used when none is configured.
const DefaultCapacity = 10

// Limiter is a counting semaphore with a FIFO wait queue.
//
// Unlike golang.org/x/sync/semaphore it hands released permits directly to
// the head of the queue and exposes active/pending counters for stats.
type Limiter struct {
	mu       sync.Mutex
	capacity int
	active   int
	waiters  []chan struct{}
}

// New creates a limiter with the given capacity. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Limiter{capacity: capacity}
}

// Capacity returns the configured permit count.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Active returns the number of permits currently held.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Pending returns the number of callers waiting for a permit.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

// Acquire obtains a permit, blocking in FIFO order when the limiter is at
// capacity. The returned release function is idempotent and must be called
// exactly when the caller is done with the permit.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	if l.active < l.capacity {
		l.active++
		l.mu.Unlock()
		return l.releaseFunc(), nil
	}

	ready := make(chan struct{})
	l.waiters = append(l.waiters, ready)
	l.mu.Unlock()

	select {
	case <-ready:
		// Permit was handed off by a releasing holder; active was already
		// accounted for during the handoff.
		return l.releaseFunc(), nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, w := range l.waiters {
			if w == ready {
				l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
				l.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		l.mu.Unlock()
		// The handoff raced with cancellation and already signalled us; the
		// permit is ours, so give it back before reporting the error.
		<-ready
		l.release()
		return nil, ctx.Err()
	}
}

// Run executes fn under a permit.
func (l *Limiter) Run(ctx context.Context, fn func() error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (l *Limiter) releaseFunc() func() {
	var once sync.Once
	return func() {
		once.Do(l.release)
	}
}

func (l *Limiter) release() {
	l.mu.Lock()
	if len(l.waiters) > 0 {
		// Hand the permit to the head of the queue; active is unchanged.
		head := l.waiters[0]
		l.waiters = l.waiters[1:]
		l.mu.Unlock()
		close(head)
		return
	}
	l.active--
	l.mu.Unlock()
}
