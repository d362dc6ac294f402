package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const bridgeChannel = "helpdesk:realtime"

// Envelope wraps a wire message for cross-instance relay over Redis
// pub/sub. TicketID is empty for global messages. InstanceID identifies the
// publishing instance so it can skip its own relayed messages.
type Envelope struct {
	InstanceID string          `json:"instance_id"`
	TicketID   string          `json:"ticket_id,omitempty"`
	Message    json.RawMessage `json:"message"`
}

// Bridge relays fan-out messages between service instances through Redis
// pub/sub, so clients connected to one instance see mutations made through
// another.
type Bridge struct {
	client     *redis.Client
	hub        *Hub
	logger     *zap.Logger
	instanceID string
}

// NewBridge creates a bridge bound to a local hub.
func NewBridge(client *redis.Client, hub *Hub, logger *zap.Logger) *Bridge {
	return &Bridge{
		client:     client,
		hub:        hub,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// PublishTicket relays a room-scoped message to other instances.
func (b *Bridge) PublishTicket(ctx context.Context, ticketID string, message []byte) error {
	return b.publish(ctx, Envelope{
		InstanceID: b.instanceID,
		TicketID:   ticketID,
		Message:    message,
	})
}

// PublishGlobal relays a global message to other instances.
func (b *Bridge) PublishGlobal(ctx context.Context, message []byte) error {
	return b.publish(ctx, Envelope{
		InstanceID: b.instanceID,
		Message:    message,
	})
}

func (b *Bridge) publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal realtime envelope: %w", err)
	}
	if err := b.client.Publish(ctx, bridgeChannel, data).Err(); err != nil {
		b.logger.Warn("publish realtime envelope", zap.Error(err))
		return fmt.Errorf("publish realtime envelope: %w", err)
	}
	return nil
}

// Run subscribes to the bridge channel and rebroadcasts remote messages to
// the local hub until ctx is cancelled. Subscription failures trigger a
// resubscribe with exponential backoff.
func (b *Bridge) Run(ctx context.Context) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		err := b.subscribe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warn("realtime bridge disconnected, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (b *Bridge) subscribe(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, bridgeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			b.dispatch([]byte(msg.Payload))
		}
	}
}

func (b *Bridge) dispatch(payload []byte) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.logger.Warn("unmarshal realtime envelope", zap.Error(err))
		return
	}
	// Skip envelopes published by this instance; the hub already delivered
	// them locally.
	if env.InstanceID == b.instanceID {
		return
	}
	if env.TicketID != "" {
		b.hub.Publish(env.TicketID, env.Message)
		return
	}
	b.hub.PublishGlobal(env.Message)
}
