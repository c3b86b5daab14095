package engine

import "sync/atomic"

// Clock is the logical clock that numbers transitions.
//
// Every transition is stamped with a strictly increasing seq. The
// transition log is ordered by seq, never by wall-clock time.
//
// Clock is safe for concurrent use, although only the Run loop calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start, typically the last
// seq found in the transition log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
