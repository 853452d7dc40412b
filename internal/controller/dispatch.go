package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/liveresults/internal/queue"
)

// Dispatcher is the consumer context: the one place where the controller
// swaps its snapshot and calls the change handler.
//
// Sync runs fn on the consumer context and waits for it to finish. It
// returns false if fn did not run (the context is gone).
type Dispatcher interface {
	Sync(fn func()) bool
}

// Inline runs work on the calling goroutine. The change handler then runs
// on the provider's notification goroutine. Suitable for tests, CLIs and
// consumers that do their own synchronization.
type Inline struct{}

// Sync runs fn immediately.
func (Inline) Sync(fn func()) bool {
	fn()
	return true
}

// Loop is a single-goroutine consumer context, the Go counterpart of a UI
// event loop. Run must be called from exactly one goroutine; Post and Sync
// are safe from any goroutine other than the Run goroutine itself.
type Loop struct {
	queue    *queue.Queue[func()]
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a Loop. Call Run to start it.
func NewLoop() *Loop {
	return &Loop{
		queue:   queue.New[func()](16),
		stopped: make(chan struct{}),
	}
}

// Run processes posted work in FIFO order until ctx is cancelled or Stop
// is called. Work posted before Stop still runs.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.stopped) })

	for {
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn, ok := l.queue.TryDequeue()
			if !ok {
				break
			}
			l.run(fn)
		}

		if l.queue.Closed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.queue.Wait():
		}
	}
}

// run executes one task. A panicking task is logged and does not stop the
// loop.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("consumer task panicked", "panic", r)
		}
	}()
	fn()
}

// Post queues fn without waiting. Returns false if the loop was stopped.
func (l *Loop) Post(fn func()) bool {
	return l.queue.Enqueue(fn)
}

// Sync queues fn and waits until it has run.
func (l *Loop) Sync(fn func()) bool {
	done := make(chan struct{})
	if !l.queue.Enqueue(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-l.stopped:
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

// Stop closes the loop to new work. Run returns once queued work is done.
func (l *Loop) Stop() {
	l.queue.Close()
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}
