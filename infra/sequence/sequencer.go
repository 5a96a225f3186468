// Package sequence provides monotonic counters shared between the writer
// (frames per session) and the outbox (durable event keys).
package sequence

import "sync/atomic"

// Sequencer generates strictly monotonic sequence IDs.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer starting from a given value.
// On fresh start → start = 0
// On recovery → start = last persisted seq
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence ID.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer to a specific value. Used when a writer opens
// a new session or an outbox reloads its high-water mark.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
