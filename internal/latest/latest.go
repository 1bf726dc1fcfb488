// Package latest tracks request generations for a single state slot so that
// only the most recently requested fetch may apply its result.
package latest

import (
	"context"
	"errors"
	"sync"
)

// ErrStale is returned by Commit when a newer request has been started or
// the slot has been closed. Callers drop the result silently.
var ErrStale = errors.New("stale response")

// Ticket identifies one request started on a Slot.
type Ticket struct {
	gen uint64
}

// Generation returns the request generation number.
func (t *Ticket) Generation() uint64 { return t.gen }

// Slot orders requests by the time they were started, not the time they
// completed. A Slot is safe for concurrent use. The zero value is ready.
type Slot struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

// Begin starts a new request generation. The previous in-flight request's
// context is cancelled. The returned context is derived from ctx and is
// cancelled when a newer request begins or the slot is closed. If the slot
// is already closed the returned context is cancelled immediately.
func (s *Slot) Begin(ctx context.Context) (*Ticket, context.Context) {
	reqCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	t := &Ticket{gen: s.gen}

	if s.closed {
		cancel()
		return t, reqCtx
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	return t, reqCtx
}

// Commit runs apply if t is still the latest request and the slot is open.
// apply runs under the slot lock; it must not call back into the Slot.
// The ticket's context is released once Commit returns.
func (s *Slot) Commit(t *Ticket, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || t.gen != s.gen {
		return ErrStale
	}
	if apply != nil {
		apply()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

// Current reports whether t is still the latest request of an open slot.
func (s *Slot) Current(t *Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && t.gen == s.gen
}

// Close cancels the in-flight request and rejects all later commits.
// Close is idempotent.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Closed reports whether Close has been called.
func (s *Slot) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Group closes several slots together, as one teardown.
type Group []*Slot

// Close closes every slot in the group.
func (g Group) Close() {
	for _, s := range g {
		s.Close()
	}
}
