package entity

import "sync/atomic"

// Sequencer issues commit seqs. Next must be strictly increasing.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock for document revisions.
//
// Every commit attempt is stamped with a strictly increasing seq. Wall-clock
// time is never used for ordering, so replays of the commit log come out in
// the same order.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start.
// Used when a document is reloaded from the store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
