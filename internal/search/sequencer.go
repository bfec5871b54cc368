package search

import "sync/atomic"

// Ticket tags one search request.
type Ticket uint64

// Sequencer hands out request tickets so that a response arriving after a
// newer search started can be recognized and dropped. The zero value is
// ready to use.
type Sequencer struct {
	latest atomic.Uint64
}

// Next starts a new request and returns its ticket. Every earlier ticket
// becomes stale.
func (s *Sequencer) Next() Ticket {
	return Ticket(s.latest.Add(1))
}

// Current reports whether t belongs to the most recent request.
func (s *Sequencer) Current(t Ticket) bool {
	return uint64(t) == s.latest.Load()
}
