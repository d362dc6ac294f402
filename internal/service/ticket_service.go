package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService is the single writer for tickets: every mutation passes the
// authorization gate, applies to the store, and emits a domain event only
// after the write has succeeded.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{tickets: tickets, dispatcher: dispatcher}
}

// Create files a new ticket owned by the actor. Tickets always start OPEN
// with an empty comment thread.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, subject, description string) (*domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.CapabilityCreate, nil); err != nil {
		return nil, err
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}

	ticket := &domain.Ticket{
		Subject:     subject,
		Description: strings.TrimSpace(description),
		Owner:       actor.Email,
		Status:      domain.TicketStatusOpen,
		Comments:    []domain.Comment{},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor.Email,
		Ticket:   ticket,
	})
	return ticket, nil
}

// List returns the tickets visible to the actor, newest first. Admins see
// every ticket; users see only their own.
func (s *TicketService) List(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.CapabilityRead, nil); err != nil {
		return nil, err
	}
	var (
		tickets []domain.Ticket
		err     error
	)
	if actor.IsAdmin() {
		tickets, err = s.tickets.ListAll(ctx)
	} else {
		tickets, err = s.tickets.ListByOwner(ctx, actor.Email)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Get fetches a single ticket, enforcing ownership for non-admins.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.CapabilityRead, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Transition moves a ticket to the target status. Any of the three statuses
// is a legal target, including the current one: the write still happens and
// still emits, so repeated calls converge without special-casing.
func (s *TicketService) Transition(ctx context.Context, actor domain.Actor, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.CapabilityTransition, nil); err != nil {
		return nil, err
	}
	if !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(status)})
	}

	ticket, err := s.tickets.SetStatus(ctx, id, status)
	if err != nil {
		return nil, mapTicketError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor.Email,
		Ticket:   ticket,
	})
	return ticket, nil
}

// Comment appends to the ticket thread. The comment records whether the
// author held the admin role at posting time.
func (s *TicketService) Comment(ctx context.Context, actor domain.Actor, id, text string) (*domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.CapabilityComment, nil); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text required", nil)
	}

	comment := domain.Comment{
		Author:    actor.Name,
		Text:      text,
		IsAdmin:   actor.IsAdmin(),
		CreatedAt: time.Now().UTC(),
	}
	ticket, err := s.tickets.AppendComment(ctx, id, comment)
	if err != nil {
		return nil, mapTicketError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    actor.Email,
		Ticket:   ticket,
	})
	return ticket, nil
}

// Delete removes a ticket permanently. There is no soft delete.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := auth.Authorize(actor, auth.CapabilityDelete, nil); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return mapTicketError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Actor:    actor.Email,
	})
	return nil
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapTicketError(err)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapTicketError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", nil)
	}
	return apperrors.MapError(err)
}
