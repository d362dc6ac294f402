package helpdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// RealtimeSession is a live connection to the server's fan-out hub. It
// forwards pushed events into a Syncer and lets the caller join and leave
// ticket rooms.
type RealtimeSession struct {
	conn   *websocket.Conn
	syncer *Syncer
	send   chan clientCommand
	done   chan struct{}
}

// Connect dials the realtime endpoint and performs an initial list fetch,
// so the cache starts from current state rather than waiting for an event.
func (c *Client) Connect(ctx context.Context) (*RealtimeSession, error) {
	wsURL, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed: status=%d, err=%w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	session := &RealtimeSession{
		conn:   conn,
		syncer: NewSyncer(c.ListTickets),
		send:   make(chan clientCommand, 16),
		done:   make(chan struct{}),
	}

	if err := session.syncer.Refresh(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go session.readLoop(ctx)
	go session.writeLoop()
	return session, nil
}

// Syncer exposes the session's local cache.
func (s *RealtimeSession) Syncer() *Syncer {
	return s.syncer
}

// JoinTicket subscribes to a ticket's room and marks it open locally.
func (s *RealtimeSession) JoinTicket(ticket Ticket) {
	s.syncer.SetOpen(ticket)
	s.enqueue(clientCommand{Action: actionJoinTicketRoom, TicketID: ticket.ID})
}

// LeaveTicket unsubscribes from a ticket's room and clears the open ticket.
func (s *RealtimeSession) LeaveTicket(ticketID string) {
	s.syncer.ClearOpen()
	s.enqueue(clientCommand{Action: actionLeaveTicketRoom, TicketID: ticketID})
}

// Close tears down the connection.
func (s *RealtimeSession) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.conn.Close()
}

// Done is closed when the connection ends.
func (s *RealtimeSession) Done() <-chan struct{} {
	return s.done
}

func (s *RealtimeSession) enqueue(cmd clientCommand) {
	select {
	case s.send <- cmd:
	case <-s.done:
	}
}

func (s *RealtimeSession) readLoop(ctx context.Context) {
	defer s.Close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.syncer.handleMessage(ctx, msg)
	}
}

func (s *RealtimeSession) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case cmd := <-s.send:
			if err := s.conn.WriteJSON(cmd); err != nil {
				return
			}
		}
	}
}

func (c *Client) realtimeURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"

	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
