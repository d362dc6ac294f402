package helpdesk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncer_TicketsChangedRefreshesList(t *testing.T) {
	calls := 0
	s := NewSyncer(func(context.Context) ([]Ticket, error) {
		calls++
		return []Ticket{{ID: "t1", Subject: "Printer down"}}, nil
	})

	var notified int
	s.OnChange = func() { notified++ }

	s.handleMessage(context.Background(), serverMessage{Type: messageTicketsChanged})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, notified)
	tickets := s.Tickets()
	require.Len(t, tickets, 1)
	assert.Equal(t, "t1", tickets[0].ID)
}

func TestSyncer_FailedRefreshKeepsPreviousList(t *testing.T) {
	var fail bool
	s := NewSyncer(func(context.Context) ([]Ticket, error) {
		if fail {
			return nil, errors.New("server unavailable")
		}
		return []Ticket{{ID: "t1"}}, nil
	})

	require.NoError(t, s.Refresh(context.Background()))
	require.Len(t, s.Tickets(), 1)

	fail = true
	s.handleMessage(context.Background(), serverMessage{Type: messageTicketsChanged})

	assert.Len(t, s.Tickets(), 1)
}

func TestSyncer_TicketUpdatedReplacesOpenTicket(t *testing.T) {
	s := NewSyncer(func(context.Context) ([]Ticket, error) { return nil, nil })
	s.SetOpen(Ticket{ID: "t1", Status: "OPEN"})

	var notified int
	s.OnChange = func() { notified++ }

	s.handleMessage(context.Background(), serverMessage{
		Type:   messageTicketUpdated,
		Ticket: &Ticket{ID: "t1", Status: "IN_PROGRESS", Comments: []Comment{{Text: "on it"}}},
	})

	open, ok := s.Open()
	require.True(t, ok)
	assert.Equal(t, "IN_PROGRESS", open.Status)
	require.Len(t, open.Comments, 1)
	assert.Equal(t, 1, notified)
}

func TestSyncer_TicketUpdatedIgnoresOtherTickets(t *testing.T) {
	s := NewSyncer(func(context.Context) ([]Ticket, error) { return nil, nil })
	s.SetOpen(Ticket{ID: "t1", Status: "OPEN"})

	s.handleMessage(context.Background(), serverMessage{
		Type:   messageTicketUpdated,
		Ticket: &Ticket{ID: "t2", Status: "RESOLVED"},
	})

	open, ok := s.Open()
	require.True(t, ok)
	assert.Equal(t, "OPEN", open.Status)
}

func TestSyncer_TicketUpdatedWithNoOpenTicket(t *testing.T) {
	s := NewSyncer(func(context.Context) ([]Ticket, error) { return nil, nil })

	assert.NotPanics(t, func() {
		s.handleMessage(context.Background(), serverMessage{
			Type:   messageTicketUpdated,
			Ticket: &Ticket{ID: "t1"},
		})
	})

	_, ok := s.Open()
	assert.False(t, ok)
}

func TestSyncer_ClearOpen(t *testing.T) {
	s := NewSyncer(func(context.Context) ([]Ticket, error) { return nil, nil })
	s.SetOpen(Ticket{ID: "t1"})
	s.ClearOpen()

	_, ok := s.Open()
	assert.False(t, ok)
}
