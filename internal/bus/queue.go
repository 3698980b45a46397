package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"execgate/internal/transport"
	"execgate/pkg/exception"
)

// Queue is a bounded, non-blocking frame queue with a single consumer.
type Queue struct {
	mu     sync.RWMutex
	ch     chan transport.Frame
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan transport.Frame, capacity)}
}

// TryPublish enqueues a frame without blocking.
func (q *Queue) TryPublish(f transport.Frame) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if atomic.LoadUint32(&q.closed) != 0 {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- f:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Len returns the number of frames waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new frames. Queued frames are still delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes frames in arrival order until the context is done or the queue is
// closed and drained.
func (q *Queue) Run(ctx context.Context, handler func(transport.Frame)) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-q.ch:
			if !ok {
				return
			}
			handler(f)
		}
	}
}
