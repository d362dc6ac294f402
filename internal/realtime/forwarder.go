package realtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// Forwarder translates domain events into fan-out messages. It is the only
// bridge between the ticket service and the connection layer, so the state
// machine stays testable without live connections.
type Forwarder struct {
	hub     *Hub
	bridge  *Bridge
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewForwarder constructs a forwarder. bridge may be nil for
// single-instance deployments.
func NewForwarder(hub *Hub, bridge *Bridge, metrics *observability.Metrics, logger *zap.Logger) *Forwarder {
	return &Forwarder{hub: hub, bridge: bridge, metrics: metrics, logger: logger}
}

// RegisterHandlers subscribes the forwarder to the dispatcher.
func (f *Forwarder) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, f.handleListChanged)
	dispatcher.Subscribe(events.EventTicketDeleted, f.handleListChanged)
	dispatcher.Subscribe(events.EventTicketStatusChanged, f.handleStatusChanged)
	dispatcher.Subscribe(events.EventTicketCommentAdded, f.handleTicketUpdated)
}

// handleListChanged fans out a global re-fetch trigger.
func (f *Forwarder) handleListChanged(ctx context.Context, event events.Event) error {
	f.metrics.RecordEvent(string(event.Type))
	f.publishGlobal(ctx, encodeTicketsChanged())
	return nil
}

// handleStatusChanged fans out the updated ticket to its room and a
// re-fetch trigger to everyone, since status changes move board columns.
func (f *Forwarder) handleStatusChanged(ctx context.Context, event events.Event) error {
	f.metrics.RecordEvent(string(event.Type))
	if err := f.publishTicket(ctx, event); err != nil {
		return err
	}
	f.publishGlobal(ctx, encodeTicketsChanged())
	return nil
}

// handleTicketUpdated fans out the updated ticket to its room only.
func (f *Forwarder) handleTicketUpdated(ctx context.Context, event events.Event) error {
	f.metrics.RecordEvent(string(event.Type))
	return f.publishTicket(ctx, event)
}

func (f *Forwarder) publishTicket(ctx context.Context, event events.Event) error {
	if event.Ticket == nil {
		return nil
	}
	message, err := encodeTicketUpdated(event.Ticket)
	if err != nil {
		f.logger.Warn("encode ticket update", zap.Error(err))
		return err
	}
	f.hub.Publish(event.TicketID, message)
	if f.bridge != nil {
		_ = f.bridge.PublishTicket(ctx, event.TicketID, message)
	}
	return nil
}

func (f *Forwarder) publishGlobal(ctx context.Context, message []byte) {
	f.hub.PublishGlobal(message)
	if f.bridge != nil {
		_ = f.bridge.PublishGlobal(ctx, message)
	}
}
