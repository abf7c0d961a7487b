package session

import "context"

// Future is the pending result of a queued operation. It resolves exactly
// once, after the operation's database action has finished (and, for
// writes, committed or rolled back).
type Future[T any] struct {
	seq  int64
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any](seq int64) *Future[T] {
	return &Future[T]{seq: seq, done: make(chan struct{})}
}

// failed returns an already resolved Future that was never queued.
func failed[T any](err error) *Future[T] {
	f := newFuture[T](0)
	var zero T
	f.resolve(zero, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Seq is the operation's position in the session queue. Zero means the
// operation was rejected before being queued.
func (f *Future[T]) Seq() int64 { return f.seq }

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available or ctx ends. Giving up on the
// wait does not cancel the operation; it still runs in queue order.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the result is available.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}
