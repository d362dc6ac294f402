package helpdesk

import (
	"context"
	"sync"
)

// ListFunc fetches the full authorized ticket list.
type ListFunc func(ctx context.Context) ([]Ticket, error)

// Syncer holds a client's local view of tickets: the list backing a
// dashboard or board, and at most one "open" ticket backing a detail view.
// Reconciliation is by refetch-and-replace, never by merging: a global
// list-change event triggers a full list refetch, and a ticket-scoped
// update replaces the open ticket wholesale. Failed refetches leave the
// previous cache intact.
type Syncer struct {
	list ListFunc

	mu      sync.RWMutex
	tickets []Ticket
	open    *Ticket

	// OnChange, when set, is invoked after every cache change.
	OnChange func()
}

// NewSyncer creates a syncer fetching through list.
func NewSyncer(list ListFunc) *Syncer {
	return &Syncer{list: list}
}

// Tickets returns a snapshot of the local ticket list.
func (s *Syncer) Tickets() []Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

// Open returns a copy of the currently open ticket, if any.
func (s *Syncer) Open() (Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.open == nil {
		return Ticket{}, false
	}
	return *s.open, true
}

// SetOpen marks a ticket as the detail view target.
func (s *Syncer) SetOpen(ticket Ticket) {
	s.mu.Lock()
	s.open = &ticket
	s.mu.Unlock()
	s.notify()
}

// ClearOpen drops the detail view target.
func (s *Syncer) ClearOpen() {
	s.mu.Lock()
	s.open = nil
	s.mu.Unlock()
	s.notify()
}

// Refresh refetches the authorized list and replaces the local copy. On
// error the previous list is kept.
func (s *Syncer) Refresh(ctx context.Context) error {
	tickets, err := s.list(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.tickets = tickets
	s.mu.Unlock()
	s.notify()
	return nil
}

// handleMessage applies one pushed event to the cache.
func (s *Syncer) handleMessage(ctx context.Context, msg serverMessage) {
	switch msg.Type {
	case messageTicketsChanged:
		_ = s.Refresh(ctx)
	case messageTicketUpdated:
		if msg.Ticket == nil {
			return
		}
		s.mu.Lock()
		if s.open == nil || s.open.ID != msg.Ticket.ID {
			s.mu.Unlock()
			return
		}
		ticket := *msg.Ticket
		s.open = &ticket
		s.mu.Unlock()
		s.notify()
	}
}

func (s *Syncer) notify() {
	if s.OnChange != nil {
		s.OnChange()
	}
}
