package taskq

import (
	"context"
	"sync"
)

// Task is one unit of serialized work.
type Task func(ctx context.Context) error

// Queue runs tasks strictly one at a time, in the order Do was called.
// The zero value is ready to use.
type Queue struct {
	mu   sync.Mutex
	tail chan struct{}
}

// Do enqueues fn and blocks until it has run, returning fn's error. Tasks
// execute in FIFO order with no overlap. If ctx is cancelled while the task
// is still waiting for its turn, Do returns the context error and fn never
// runs; tasks behind it are unaffected.
func (q *Queue) Do(ctx context.Context, fn Task) error {
	q.mu.Lock()
	prev := q.tail
	done := make(chan struct{})
	q.tail = done
	q.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Release our slot only once the predecessor finishes, so a
			// cancelled waiter can never let the task behind it overlap
			// with the one still running.
			go func() {
				<-prev
				close(done)
			}()
			return ctx.Err()
		}
	}

	defer close(done)
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Wait blocks until every task enqueued before the call has finished.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	tail := q.tail
	q.mu.Unlock()

	if tail == nil {
		return nil
	}
	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
