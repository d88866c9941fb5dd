// Package loop provides the single logical event loop the engine runs on.
//
// All engine state is owned by the loop goroutine. Asynchronous work runs on
// its own goroutine and posts its completion back with Post; other goroutines
// read state consistently with Do.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned by Do once the loop has stopped.
var ErrStopped = errors.New("event loop stopped")

// Poster schedules a task on the loop.
type Poster interface {
	Post(fn func()) bool
}

// Loop is a serial task dispatcher with an unbounded queue.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool

	done   chan struct{}
	cancel context.CancelFunc
	logger *zap.Logger
}

// New creates a loop. Call Start before posting work.
func New(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start runs the loop until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
}

// Stop halts the loop and waits for the running task to finish. Queued tasks are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		<-l.done
	}
}

// Post queues fn. It never blocks and returns false if the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to return.
// It must not be called from a task already running on the loop.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.queue = nil
			l.mu.Unlock()
			return
		case <-l.wake:
		}
		for {
			l.mu.Lock()
			if len(l.queue) == 0 || l.stopped {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	fn()
}
