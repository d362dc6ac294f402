package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

func decodeAll(t *testing.T, raw [][]byte) []ServerMessage {
	t.Helper()
	out := make([]ServerMessage, 0, len(raw))
	for _, data := range raw {
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		out = append(out, msg)
	}
	return out
}

func newForwarderFixture(t *testing.T) (events.Dispatcher, *Hub, *observability.Metrics) {
	t.Helper()
	hub := NewHub(zap.NewNop(), 8)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	NewForwarder(hub, nil, metrics, zap.NewNop()).RegisterHandlers(dispatcher)
	return dispatcher, hub, metrics
}

func TestForwarder_StatusChangeFansOutRoomAndGlobal(t *testing.T) {
	dispatcher, hub, metrics := newForwarderFixture(t)

	viewer := hub.NewClient(domain.Actor{ID: "1"})
	bystander := hub.NewClient(domain.Actor{ID: "2"})
	hub.Register(viewer)
	hub.Register(bystander)
	hub.Subscribe(viewer, "t1")

	ticket := &domain.Ticket{ID: "t1", Subject: "Printer down", Status: domain.TicketStatusInProgress}
	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "t1",
		Ticket:   ticket,
	})
	require.NoError(t, err)

	viewerMsgs := decodeAll(t, drain(viewer))
	require.Len(t, viewerMsgs, 2)
	assert.Equal(t, MessageTicketUpdated, viewerMsgs[0].Type)
	require.NotNil(t, viewerMsgs[0].Ticket)
	assert.Equal(t, domain.TicketStatusInProgress, viewerMsgs[0].Ticket.Status)
	assert.Equal(t, MessageTicketsChanged, viewerMsgs[1].Type)

	bystanderMsgs := decodeAll(t, drain(bystander))
	require.Len(t, bystanderMsgs, 1)
	assert.Equal(t, MessageTicketsChanged, bystanderMsgs[0].Type)

	assert.Equal(t, int64(1), metrics.EventCount(string(events.EventTicketStatusChanged)))
}

func TestForwarder_CommentReachesRoomOnly(t *testing.T) {
	dispatcher, hub, _ := newForwarderFixture(t)

	viewer := hub.NewClient(domain.Actor{ID: "1"})
	bystander := hub.NewClient(domain.Actor{ID: "2"})
	hub.Register(viewer)
	hub.Register(bystander)
	hub.Subscribe(viewer, "t1")

	ticket := &domain.Ticket{ID: "t1", Comments: []domain.Comment{{Author: "Admin", Text: "on it", IsAdmin: true}}}
	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: "t1",
		Ticket:   ticket,
	})
	require.NoError(t, err)

	viewerMsgs := decodeAll(t, drain(viewer))
	require.Len(t, viewerMsgs, 1)
	assert.Equal(t, MessageTicketUpdated, viewerMsgs[0].Type)
	require.NotNil(t, viewerMsgs[0].Ticket)
	require.Len(t, viewerMsgs[0].Ticket.Comments, 1)
	assert.Equal(t, "on it", viewerMsgs[0].Ticket.Comments[0].Text)

	assert.Empty(t, drain(bystander))
}

func TestForwarder_CreateAndDeleteReachEveryone(t *testing.T) {
	dispatcher, hub, metrics := newForwarderFixture(t)

	a := hub.NewClient(domain.Actor{ID: "1"})
	b := hub.NewClient(domain.Actor{ID: "2"})
	hub.Register(a)
	hub.Register(b)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCreated,
		TicketID: "t1",
	}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: "t1",
	}))

	for _, c := range []*Client{a, b} {
		msgs := decodeAll(t, drain(c))
		require.Len(t, msgs, 2)
		assert.Equal(t, MessageTicketsChanged, msgs[0].Type)
		assert.Equal(t, MessageTicketsChanged, msgs[1].Type)
	}

	assert.Equal(t, int64(1), metrics.EventCount(string(events.EventTicketCreated)))
	assert.Equal(t, int64(1), metrics.EventCount(string(events.EventTicketDeleted)))
}

func TestForwarder_StatusEventWithoutTicketSkipsRoom(t *testing.T) {
	dispatcher, hub, _ := newForwarderFixture(t)

	viewer := hub.NewClient(domain.Actor{ID: "1"})
	hub.Register(viewer)
	hub.Subscribe(viewer, "t1")

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "t1",
	})
	require.NoError(t, err)

	msgs := decodeAll(t, drain(viewer))
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageTicketsChanged, msgs[0].Type)
}
