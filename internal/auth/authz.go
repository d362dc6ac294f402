package auth

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Capability names a permission checked by the authorization gate.
type Capability string

const (
	CapabilityRead       Capability = "read"
	CapabilityCreate     Capability = "create"
	CapabilityTransition Capability = "transition"
	CapabilityComment    Capability = "comment"
	CapabilityDelete     Capability = "delete"
)

// Authorize is the single authorization gate: it decides whether actor may
// exercise cap against ticket. The ticket argument is nil for operations
// that do not target an existing ticket (create, listing). Callers must
// invoke the gate before any store mutation.
func Authorize(actor domain.Actor, cap Capability, ticket *domain.Ticket) error {
	switch cap {
	case CapabilityCreate, CapabilityComment:
		return nil
	case CapabilityRead:
		if actor.IsAdmin() {
			return nil
		}
		if ticket == nil || ticket.Owner == actor.Email {
			return nil
		}
		return apperrors.NewForbidden("ticket belongs to another user")
	case CapabilityTransition, CapabilityDelete:
		if actor.IsAdmin() {
			return nil
		}
		return apperrors.NewForbidden("admin role required")
	default:
		return apperrors.NewForbidden("unknown capability")
	}
}
