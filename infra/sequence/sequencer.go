// Package sequence allocates monotonic identifiers for tape records.
package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers, safe for
// concurrent callers.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1. Pass the
// highest sequence already present in the outbox to continue a tape.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
