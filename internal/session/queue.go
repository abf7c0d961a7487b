package session

import (
	"context"
	"sync"
)

// task is one queued unit of work. run executes on the worker goroutine
// and resolves the caller's Future itself.
type task struct {
	seq int64
	op  string
	run func(ctx context.Context)
}

// taskQueue is an unbounded FIFO drained by the session worker.
//
// Callers never block on a full queue. The buffered signal channel (size 1)
// coalesces wake-ups; Close closes it so the worker drains the remaining
// tasks and then stops.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []task
	closed bool
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]task, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends t. Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front task without blocking.
func (q *taskQueue) TryDequeue() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return task{}, false
	}
	t := q.tasks[0]
	q.tasks[0] = task{} // release the closure
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, true
}

// Dequeue blocks until a task is available. It returns false once the
// queue is closed and empty.
func (q *taskQueue) Dequeue() (task, bool) {
	for {
		if t, ok := q.TryDequeue(); ok {
			return t, true
		}
		q.mu.Lock()
		drained := q.closed && len(q.tasks) == 0
		q.mu.Unlock()
		if drained {
			return task{}, false
		}
		<-q.signal
	}
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops further enqueues. Already queued tasks are still delivered.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
