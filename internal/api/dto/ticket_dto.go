package dto

import "github.com/spec-kit/helpdesk-service/internal/domain"

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// MessageResponse carries a short confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}
