package realtime

import (
	"encoding/json"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Server-pushed message types.
const (
	MessageTicketsChanged = "ticketsChanged"
	MessageTicketUpdated  = "ticketUpdated"
)

// Client command actions.
const (
	ActionJoinTicketRoom  = "joinTicketRoom"
	ActionLeaveTicketRoom = "leaveTicketRoom"
)

// ServerMessage is pushed to connected clients. ticketsChanged carries no
// payload and triggers a full re-fetch; ticketUpdated carries the whole
// updated ticket for room subscribers.
type ServerMessage struct {
	Type   string         `json:"type"`
	Ticket *domain.Ticket `json:"ticket,omitempty"`
}

// ClientCommand is sent by clients to manage their room subscriptions.
type ClientCommand struct {
	Action   string `json:"action"`
	TicketID string `json:"ticket_id"`
}

func encodeTicketsChanged() []byte {
	data, _ := json.Marshal(ServerMessage{Type: MessageTicketsChanged})
	return data
}

func encodeTicketUpdated(ticket *domain.Ticket) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MessageTicketUpdated, Ticket: ticket})
}
