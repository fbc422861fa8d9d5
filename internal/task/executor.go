package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// SerialExecutor runs work items on one dedicated goroutine in FIFO order.
// Its queue is unbounded, so Execute never blocks the caller.
type SerialExecutor struct {
	// queue holds items waiting for the executor goroutine
	queue *WorkQueue

	// terminated is closed when the goroutine exits after Shutdown
	terminated chan struct{}

	shutdownOnce sync.Once

	// logger for structured logging
	logger *slog.Logger
}

// NewSerialExecutor creates a SerialExecutor and starts its goroutine
func NewSerialExecutor(logger *slog.Logger) *SerialExecutor {
	if logger == nil {
		logger = slog.Default()
	}

	e := &SerialExecutor{
		queue:      NewWorkQueue(logger),
		terminated: make(chan struct{}),
		logger:     logger,
	}

	go e.run()

	return e
}

// DefaultExecutorFactory builds a SerialExecutor for every Worker
func DefaultExecutorFactory(logger *slog.Logger) Executor {
	return NewSerialExecutor(logger)
}

// Execute queues item for execution on the executor goroutine.
// Returns an error wrapping ErrExecutorClosed after Shutdown.
func (e *SerialExecutor) Execute(item func()) error {
	if item == nil {
		return nil
	}
	if err := e.queue.Enqueue(item); err != nil {
		return fmt.Errorf("%w: %w", ErrExecutorClosed, err)
	}
	return nil
}

// Shutdown stops accepting new items; queued items still run.
func (e *SerialExecutor) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.logger.Debug("executor shutting down", "queued", e.queue.Len())
		e.queue.Close()
	})
}

// Terminated returns a channel that is closed once the executor goroutine exits
func (e *SerialExecutor) Terminated() <-chan struct{} {
	return e.terminated
}

// AwaitTermination blocks until the executor goroutine exits or ctx is done.
func (e *SerialExecutor) AwaitTermination(ctx context.Context) error {
	select {
	case <-e.terminated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Queued returns the number of items waiting to run
func (e *SerialExecutor) Queued() int {
	return e.queue.Len()
}

// run drains the queue until it is closed and empty
func (e *SerialExecutor) run() {
	defer close(e.terminated)

	e.logger.Debug("executor started")

	for {
		item, ok := e.queue.Next()
		if !ok {
			e.logger.Debug("executor queue drained, stopping")
			return
		}
		e.runItem(item)
	}
}

// runItem executes one item; a panic is logged and does not stop the executor
func (e *SerialExecutor) runItem(item func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("work item panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	item()
}

// ensure SerialExecutor implements Executor
var _ Executor = (*SerialExecutor)(nil)
