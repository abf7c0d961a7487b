package session

import "sync/atomic"

// Sequencer hands out queue positions. Implementations must return strictly
// increasing values and be safe for concurrent use.
type Sequencer interface {
	Next() int64
}

// Clock is the default Sequencer: an atomic counter starting at 0, so the
// first operation (the open) gets seq 1.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments and returns the sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
