package testutil

import (
	"slices"
	"sync"
)

// DeterministicClock is a session.Sequencer for tests. It starts from a
// known value and remembers every number it hands out, so tests can assert
// queue positions exactly, even when several sessions share one clock.
type DeterministicClock struct {
	mu     sync.Mutex
	start  int64
	last   int64
	issued []int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockFrom(0)
}

// NewDeterministicClockFrom creates a clock whose first Next returns
// start+1.
func NewDeterministicClockFrom(start int64) *DeterministicClock {
	return &DeterministicClock{start: start, last: start}
}

func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last++
	c.issued = append(c.issued, c.last)
	return c.last
}

// Current returns the last issued number, or the start value if none.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Issued returns every number handed out so far, in issue order.
func (c *DeterministicClock) Issued() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.issued)
}

// Reset rewinds the clock to its start value and forgets issued numbers.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = c.start
	c.issued = nil
}
