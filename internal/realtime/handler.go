package realtime

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler serves the websocket endpoint and runs the per-connection pumps.
type Handler struct {
	hub    *Hub
	logger *zap.Logger
}

// NewHandler constructs the handler.
func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// Upgrade gates the route so only websocket upgrade requests reach the
// connection handler.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve returns the connection handler. The auth middleware has already
// stored the Actor in request locals before the upgrade.
func (h *Handler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		actor, ok := conn.Locals(auth.ActorLocalKey).(domain.Actor)
		if !ok {
			_ = conn.Close()
			return
		}

		client := h.hub.NewClient(actor)
		h.hub.Register(client)
		defer h.hub.Unregister(client)

		go h.writePump(conn, client)
		h.readLoop(conn, client)
	})
}

// readLoop processes join/leave commands until the connection drops.
// Unregistering on exit clears every room subscription the client held.
func (h *Handler) readLoop(conn *websocket.Conn, client *Client) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.logger.Debug("ignoring malformed realtime command",
				zap.String("client_id", client.ID), zap.Error(err))
			continue
		}

		switch cmd.Action {
		case ActionJoinTicketRoom:
			h.hub.Subscribe(client, cmd.TicketID)
		case ActionLeaveTicketRoom:
			h.hub.Unsubscribe(client, cmd.TicketID)
		}
	}
}

// writePump drains the client's send channel onto the connection and keeps
// it alive with pings. Closing the send channel ends the pump.
func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
