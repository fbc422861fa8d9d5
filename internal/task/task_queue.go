package task

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("work queue is closed")

// WorkQueue is an unbounded FIFO of work items with a single consumer.
// Enqueue never blocks; Next blocks until an item is available or the queue
// is closed and drained.
type WorkQueue struct {
	mu     sync.Mutex
	items  []func()
	closed bool

	// ready holds at most one wake-up token for the consumer
	ready chan struct{}

	logger *slog.Logger
}

// NewWorkQueue creates an empty, open work queue
func NewWorkQueue(logger *slog.Logger) *WorkQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkQueue{
		ready:  make(chan struct{}, 1),
		logger: logger,
	}
}

// Enqueue appends an item to the tail of the queue.
// Returns ErrQueueClosed if the queue has been closed.
func (q *WorkQueue) Enqueue(item func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, item)
	queueLen := len(q.items)
	q.mu.Unlock()

	q.wake()
	q.logger.Debug("work item enqueued", "queue_len", queueLen)
	return nil
}

// Next removes and returns the head of the queue, blocking while the queue is
// empty. It returns false once the queue is closed and every item was handed out.
// Only one goroutine may call Next.
func (q *WorkQueue) Next() (func(), bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}
		<-q.ready
	}
}

// Close prevents further Enqueue calls. Items already queued remain available to Next.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	remaining := len(q.items)
	q.mu.Unlock()

	q.wake()
	q.logger.Debug("work queue closed", "remaining", remaining)
}

// Len returns the number of queued items
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *WorkQueue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
