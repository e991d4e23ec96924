package engine

import "sync/atomic"

// Clock is the monotonic logical step counter for one execution.
//
// Every executed statement is stamped with a strictly increasing seq from
// this clock. This ensures:
// - Deterministic ordering (no wall-clock involvement)
// - Journal records sort in execution order
// - Runtime errors name the exact step that failed
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// However, the single-writer walk means only one goroutine typically
// calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used when appending steps to an existing journal run.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
