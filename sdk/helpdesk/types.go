package helpdesk

import "time"

// Ticket mirrors the server's ticket document.
type Ticket struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Status      string    `json:"status"`
	Comments    []Comment `json:"comments"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Comment mirrors one entry of a ticket thread.
type Comment struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Session mirrors the login response.
type Session struct {
	Identity        string    `json:"identity"`
	DisplayName     string    `json:"displayName"`
	Role            string    `json:"role"`
	CredentialToken string    `json:"credentialToken"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// Server-pushed message types.
const (
	messageTicketsChanged = "ticketsChanged"
	messageTicketUpdated  = "ticketUpdated"
)

// serverMessage is a pushed realtime event.
type serverMessage struct {
	Type   string  `json:"type"`
	Ticket *Ticket `json:"ticket,omitempty"`
}

// clientCommand manages room subscriptions.
type clientCommand struct {
	Action   string `json:"action"`
	TicketID string `json:"ticket_id"`
}

const (
	actionJoinTicketRoom  = "joinTicketRoom"
	actionLeaveTicketRoom = "leaveTicketRoom"
)

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
