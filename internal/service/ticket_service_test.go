package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// fakeTicketRepo is an in-memory TicketRepository with the same contract as
// the Postgres implementation: pgx.ErrNoRows for absent ids, newest-first
// listings, updated_at bumped on every mutation.
type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ticket.ID = fmt.Sprintf("t-%d", f.seq)
	now := time.Unix(int64(1700000000+f.seq), 0).UTC()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	f.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (f *fakeTicketRepo) ListAll(_ context.Context) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collect(func(*domain.Ticket) bool { return true }), nil
}

func (f *fakeTicketRepo) ListByOwner(_ context.Context, owner string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collect(func(t *domain.Ticket) bool { return t.Owner == owner }), nil
}

func (f *fakeTicketRepo) AppendComment(_ context.Context, id string, comment domain.Comment) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Comments = append(ticket.Comments, comment)
	ticket.UpdatedAt = ticket.UpdatedAt.Add(time.Second)
	return cloneTicket(ticket), nil
}

func (f *fakeTicketRepo) SetStatus(_ context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.UpdatedAt = ticket.UpdatedAt.Add(time.Second)
	return cloneTicket(ticket), nil
}

func (f *fakeTicketRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.tickets, id)
	return nil
}

func (f *fakeTicketRepo) collect(keep func(*domain.Ticket) bool) []domain.Ticket {
	result := []domain.Ticket{}
	for _, ticket := range f.tickets {
		if keep(ticket) {
			result = append(result, *cloneTicket(ticket))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	out := *t
	out.Comments = append([]domain.Comment{}, t.Comments...)
	return &out
}

// captureDispatcher records every published event.
type captureDispatcher struct {
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) ofType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var (
	adminActor = domain.Actor{ID: "u-admin", Email: "admin@example.com", Name: "Admin", Role: domain.RoleAdmin}
	userActor  = domain.Actor{ID: "u-user", Email: "a@x.com", Name: "Alice", Role: domain.RoleUser}
	otherActor = domain.Actor{ID: "u-other", Email: "b@x.com", Name: "Bob", Role: domain.RoleUser}
)

func newTestService() (*TicketService, *fakeTicketRepo, *captureDispatcher) {
	repo := newFakeTicketRepo()
	dispatcher := &captureDispatcher{}
	return NewTicketService(repo, dispatcher), repo, dispatcher
}

func TestCreate_NewTicketStartsOpen(t *testing.T) {
	svc, _, dispatcher := newTestService()

	ticket, err := svc.Create(context.Background(), userActor, "Printer down", "no toner")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "a@x.com", ticket.Owner)
	assert.Equal(t, "Printer down", ticket.Subject)
	assert.Empty(t, ticket.Comments)
	require.Len(t, dispatcher.ofType(events.EventTicketCreated), 1)
}

func TestCreate_RequiresSubject(t *testing.T) {
	svc, _, dispatcher := newTestService()

	_, err := svc.Create(context.Background(), userActor, "   ", "desc")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	assert.Empty(t, dispatcher.events)
}

func TestTransition_AdminMovesTicket(t *testing.T) {
	svc, _, dispatcher := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "no toner")
	require.NoError(t, err)

	updated, err := svc.Transition(context.Background(), adminActor, created.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	// both the admin view and the owner view observe the new status
	adminList, err := svc.List(context.Background(), adminActor)
	require.NoError(t, err)
	ownerList, err := svc.List(context.Background(), userActor)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, adminList[0].Status)
	assert.Equal(t, domain.TicketStatusInProgress, ownerList[0].Status)

	statusEvents := dispatcher.ofType(events.EventTicketStatusChanged)
	require.Len(t, statusEvents, 1)
	require.NotNil(t, statusEvents[0].Ticket)
	assert.Equal(t, domain.TicketStatusInProgress, statusEvents[0].Ticket.Status)
}

func TestTransition_AnyOfThreeStatesIsLegal(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "")
	require.NoError(t, err)

	// resolved tickets are not terminal; reopening is allowed
	for _, status := range []domain.TicketStatus{
		domain.TicketStatusResolved,
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
	} {
		updated, err := svc.Transition(context.Background(), adminActor, created.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		assert.True(t, domain.ValidStatus(updated.Status))
	}
}

func TestTransition_IdempotentAndOneEventPerCall(t *testing.T) {
	svc, _, dispatcher := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "")
	require.NoError(t, err)

	first, err := svc.Transition(context.Background(), adminActor, created.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	second, err := svc.Transition(context.Background(), adminActor, created.ID, domain.TicketStatusOpen)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Len(t, dispatcher.ofType(events.EventTicketStatusChanged), 2)
}

func TestTransition_InvalidStatusRejected(t *testing.T) {
	svc, _, dispatcher := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "")
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), adminActor, created.ID, domain.TicketStatus("ARCHIVED"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	assert.Empty(t, dispatcher.ofType(events.EventTicketStatusChanged))

	unchanged, err := svc.Get(context.Background(), adminActor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, unchanged.Status)
}

func TestTransition_NonAdminForbiddenAndStateUntouched(t *testing.T) {
	svc, _, dispatcher := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "no toner")
	require.NoError(t, err)
	before, err := svc.Get(context.Background(), userActor, created.ID)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), userActor, created.ID, domain.TicketStatusInProgress)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	after, err := svc.Get(context.Background(), userActor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, dispatcher.ofType(events.EventTicketStatusChanged))
}

func TestTransition_MissingTicket(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Transition(context.Background(), adminActor, "absent", domain.TicketStatusOpen)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestComment_AppendsWithRoleCaptured(t *testing.T) {
	svc, _, dispatcher := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "no toner")
	require.NoError(t, err)

	withUser, err := svc.Comment(context.Background(), userActor, created.ID, "still broken")
	require.NoError(t, err)
	withAdmin, err := svc.Comment(context.Background(), adminActor, created.ID, "ordering toner")
	require.NoError(t, err)

	// append-only and monotonic: earlier comments are untouched
	require.Len(t, withAdmin.Comments, 2)
	assert.Equal(t, withUser.Comments[0], withAdmin.Comments[0])
	assert.False(t, withAdmin.Comments[0].IsAdmin)

	last := withAdmin.Comments[len(withAdmin.Comments)-1]
	assert.Equal(t, "ordering toner", last.Text)
	assert.Equal(t, "Admin", last.Author)
	assert.True(t, last.IsAdmin)

	commentEvents := dispatcher.ofType(events.EventTicketCommentAdded)
	require.Len(t, commentEvents, 2)
	require.NotNil(t, commentEvents[1].Ticket)
	assert.Equal(t, "ordering toner", commentEvents[1].Ticket.Comments[1].Text)
}

func TestComment_EmptyTextRejected(t *testing.T) {
	svc, _, dispatcher := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "")
	require.NoError(t, err)

	_, err = svc.Comment(context.Background(), userActor, created.ID, "   \t\n")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	assert.Empty(t, dispatcher.ofType(events.EventTicketCommentAdded))

	unchanged, err := svc.Get(context.Background(), userActor, created.ID)
	require.NoError(t, err)
	assert.Empty(t, unchanged.Comments)
}

func TestDelete_AdminRemovesTicket(t *testing.T) {
	svc, _, dispatcher := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), adminActor, created.ID))

	_, err = svc.Get(context.Background(), adminActor, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	require.Len(t, dispatcher.ofType(events.EventTicketDeleted), 1)
}

func TestDelete_NonAdminForbidden(t *testing.T) {
	svc, _, dispatcher := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "")
	require.NoError(t, err)

	err = svc.Delete(context.Background(), userActor, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	assert.Empty(t, dispatcher.ofType(events.EventTicketDeleted))

	_, err = svc.Get(context.Background(), userActor, created.ID)
	assert.NoError(t, err)
}

func TestList_ScopedByOwnerNewestFirst(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, userActor, "first", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, otherActor, "foreign", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, userActor, "second", "")
	require.NoError(t, err)

	userList, err := svc.List(ctx, userActor)
	require.NoError(t, err)
	require.Len(t, userList, 2)
	assert.Equal(t, "second", userList[0].Subject)
	for _, ticket := range userList {
		assert.Equal(t, userActor.Email, ticket.Owner)
	}

	adminList, err := svc.List(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, adminList, 3)
}

func TestGet_OwnershipEnforced(t *testing.T) {
	svc, _, _ := newTestService()
	created, err := svc.Create(context.Background(), userActor, "Printer down", "")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), otherActor, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = svc.Get(context.Background(), adminActor, created.ID)
	assert.NoError(t, err)
}
