package moderation

import "sync/atomic"

// Sequencer tags requests so that only the response to the most recently
// issued request is delivered. A slow earlier fetch can no longer overwrite
// the result of a faster later one.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a ticket newer than every ticket issued before it.
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// Current reports whether ticket is still the latest one issued.
func (s *Sequencer) Current(ticket uint64) bool {
	return s.latest.Load() == ticket
}
