package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
)

// ValidStatus reports whether s is one of the three enumerated states.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// Comment is a single entry in a ticket's thread. Comments are append-only
// and immutable once stored. IsAdmin captures whether the author held the
// admin role at posting time; it is never recomputed afterwards.
type Comment struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket is the aggregate for support requests. Subject, description and
// owner are fixed at creation; status and the comment thread change only
// through the ticket service.
type Ticket struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Owner       string       `json:"owner"`
	Status      TicketStatus `json:"status"`
	Comments    []Comment    `json:"comments"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
