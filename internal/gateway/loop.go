package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Loop runs tasks one at a time, in the order they were posted. Every subscription callback
// is delivered on the gateway's loop, so subscribers never observe concurrent callbacks.
type Loop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
	logger *zap.Logger
}

// NewLoop starts a loop goroutine.
func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	loop := &Loop{
		done:   make(chan struct{}),
		logger: logger,
	}
	loop.cond = sync.NewCond(&loop.mu)
	go loop.run()
	return loop
}

// Post enqueues task. It reports false once the loop is closed.
func (l *Loop) Post(task func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, task)
	l.cond.Signal()
	return true
}

// Wait blocks until every task posted before the call has run.
func (l *Loop) Wait(ctx context.Context) error {
	reached := make(chan struct{})
	if !l.Post(func() { close(reached) }) {
		return nil
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued tasks and stops the loop. It must not be called from a task.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	l.cond.Broadcast()
	l.mu.Unlock()
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		l.execute(task)
	}
}

func (l *Loop) execute(task func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.logger.Error("gateway loop task panicked", zap.Any("panic", recovered))
		}
	}()
	task()
}
