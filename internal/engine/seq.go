package engine

import (
	"sync/atomic"
	"time"
)

// Sequence numbers work items in the order the scan creates them.
// The journal sorts by seq, never by enqueue time, since two items can share
// a wall-clock instant.
type Sequence struct {
	last atomic.Int64
}

// ResumeSequence returns a Sequence whose next value is last+1.
// Pass the highest seq already journaled, or 0 for a fresh run.
func ResumeSequence(last int64) *Sequence {
	s := &Sequence{}
	s.last.Store(last)
	return s
}

// Next reserves the next seq.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// Last returns the most recently reserved seq.
func (s *Sequence) Last() int64 {
	return s.last.Load()
}

// stamp reserves a seq and reads now, in that order.
func (s *Sequence) stamp(now func() time.Time) (int64, time.Time) {
	seq := s.Next()
	return seq, now()
}
