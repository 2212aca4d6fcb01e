package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
	"github.com/helpdeskhq/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util"
)

type ticketFixture struct {
	store   *repository.MemoryStore
	service *TicketService

	requester domain.Principal
	other     domain.Principal
	agent     domain.Principal
	admin     domain.Principal
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()

	store := repository.NewMemoryStore()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		UserRepo:    store.Users(),
		HistoryRepo: store.History(),
	})

	fixture := &ticketFixture{store: store, service: svc}
	fixture.requester = seedUser(t, store, "alice@example.com", domain.RoleUser)
	fixture.other = seedUser(t, store, "bob@example.com", domain.RoleUser)
	fixture.agent = seedUser(t, store, "carol@example.com", domain.RoleSupport)
	fixture.admin = seedUser(t, store, "dave@example.com", domain.RoleAdmin)
	return fixture
}

func seedUser(t *testing.T, store *repository.MemoryStore, email string, role domain.Role) domain.Principal {
	t.Helper()

	user := &domain.User{
		Email:  email,
		Name:   email,
		Role:   role,
		Status: domain.UserStatusActive,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user.Principal()
}

func (f *ticketFixture) createTicket(t *testing.T, creator domain.Principal) *domain.Ticket {
	t.Helper()

	ticket, err := f.service.CreateTicket(context.Background(), creator, TicketCreateInput{
		Subject:     "VPN drops every hour",
		Description: "connection resets at the top of the hour",
	})
	require.NoError(t, err)
	return ticket
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func TestCreateTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	t.Run("defaults applied", func(t *testing.T) {
		ticket, err := f.service.CreateTicket(ctx, f.requester, TicketCreateInput{
			Subject:     "  laptop will not boot  ",
			Description: "black screen since this morning",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, ticket.ID)
		assert.Equal(t, "laptop will not boot", ticket.Subject)
		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
		assert.Equal(t, f.requester.ID, ticket.CreatedBy)
		assert.Nil(t, ticket.AssignedTo)
		assert.Nil(t, ticket.Rating)
		assert.Equal(t, int64(1), ticket.Version)
	})

	t.Run("explicit priority kept", func(t *testing.T) {
		ticket, err := f.service.CreateTicket(ctx, f.requester, TicketCreateInput{
			Subject:     "prod database down",
			Description: "all queries time out",
			Priority:    domain.TicketPriorityUrgent,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	})

	t.Run("blank subject rejected", func(t *testing.T) {
		_, err := f.service.CreateTicket(ctx, f.requester, TicketCreateInput{
			Subject:     "   ",
			Description: "something",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("unknown priority rejected", func(t *testing.T) {
		_, err := f.service.CreateTicket(ctx, f.requester, TicketCreateInput{
			Subject:     "subject",
			Description: "description",
			Priority:    domain.TicketPriority("SEV0"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	})
}

func TestGetTicketVisibility(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.requester)

	t.Run("creator reads own ticket", func(t *testing.T) {
		got, comments, err := f.service.GetTicket(ctx, f.requester, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, got.ID)
		assert.Empty(t, comments)
	})

	t.Run("other user gets not found, not forbidden", func(t *testing.T) {
		_, _, err := f.service.GetTicket(ctx, f.other, ticket.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})

	t.Run("unassigned support gets not found", func(t *testing.T) {
		_, _, err := f.service.GetTicket(ctx, f.agent, ticket.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})

	t.Run("assigned support reads the ticket", func(t *testing.T) {
		_, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr(f.agent.ID),
		})
		require.NoError(t, err)

		got, _, err := f.service.GetTicket(ctx, f.agent, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, got.ID)
	})

	t.Run("admin reads any ticket", func(t *testing.T) {
		_, _, err := f.service.GetTicket(ctx, f.admin, ticket.ID)
		require.NoError(t, err)
	})

	t.Run("missing ticket is not found", func(t *testing.T) {
		_, _, err := f.service.GetTicket(ctx, f.admin, "no-such-ticket")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})

	t.Run("reads do not bump the version", func(t *testing.T) {
		before, _, err := f.service.GetTicket(ctx, f.admin, ticket.ID)
		require.NoError(t, err)
		after, _, err := f.service.GetTicket(ctx, f.admin, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, before.Version, after.Version)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	})
}

func TestListTickets(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	mine := f.createTicket(t, f.requester)
	theirs := f.createTicket(t, f.other)
	assigned := f.createTicket(t, f.other)
	_, err := f.service.UpdateTicket(ctx, f.admin, assigned.ID, TicketUpdateInput{
		AssignedTo: strPtr(f.agent.ID),
	})
	require.NoError(t, err)

	t.Run("user sees only own tickets", func(t *testing.T) {
		tickets, err := f.service.ListTickets(ctx, f.requester, TicketListFilter{})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, mine.ID, tickets[0].ID)
	})

	t.Run("support sees created or assigned", func(t *testing.T) {
		tickets, err := f.service.ListTickets(ctx, f.agent, TicketListFilter{})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, assigned.ID, tickets[0].ID)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		tickets, err := f.service.ListTickets(ctx, f.admin, TicketListFilter{})
		require.NoError(t, err)
		assert.Len(t, tickets, 3)
	})

	t.Run("status filter applies on top of visibility", func(t *testing.T) {
		_, err := f.service.UpdateTicket(ctx, f.admin, theirs.ID, TicketUpdateInput{
			Status: statusPtr(domain.TicketStatusClosed),
		})
		require.NoError(t, err)

		tickets, err := f.service.ListTickets(ctx, f.admin, TicketListFilter{
			Statuses: []domain.TicketStatus{domain.TicketStatusClosed},
		})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, theirs.ID, tickets[0].ID)
	})
}

func TestUpdateTicketFieldFiltering(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	t.Run("user status change is dropped, description applied", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		updated, err := f.service.UpdateTicket(ctx, f.requester, ticket.ID, TicketUpdateInput{
			Status:      statusPtr(domain.TicketStatusClosed),
			Description: strPtr("fixed after router reboot"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, updated.Status)
		assert.Equal(t, "fixed after router reboot", updated.Description)
	})

	t.Run("user cannot grab assignment or priority", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		updated, err := f.service.UpdateTicket(ctx, f.requester, ticket.ID, TicketUpdateInput{
			Priority:   priorityPtr(domain.TicketPriorityUrgent),
			AssignedTo: strPtr(f.agent.ID),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityMedium, updated.Priority)
		assert.Nil(t, updated.AssignedTo)
	})

	t.Run("invisible ticket update reported as not found", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		_, err := f.service.UpdateTicket(ctx, f.other, ticket.ID, TicketUpdateInput{
			Subject: strPtr("hijacked"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})

	t.Run("empty subject rejected even for creator", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		_, err := f.service.UpdateTicket(ctx, f.requester, ticket.ID, TicketUpdateInput{
			Subject: strPtr("   "),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	})
}

func TestUpdateTicketLifecycle(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	t.Run("admin walks open to closed", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		for _, status := range []domain.TicketStatus{
			domain.TicketStatusInProgress,
			domain.TicketStatusResolved,
			domain.TicketStatusClosed,
		} {
			updated, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
				Status: statusPtr(status),
			})
			require.NoError(t, err)
			assert.Equal(t, status, updated.Status)
		}
	})

	t.Run("resolved cannot reopen directly", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		_, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			Status: statusPtr(domain.TicketStatusResolved),
		})
		require.NoError(t, err)

		_, err = f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			Status: statusPtr(domain.TicketStatusOpen),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
	})

	t.Run("closed is terminal", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		_, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			Status: statusPtr(domain.TicketStatusClosed),
		})
		require.NoError(t, err)

		_, err = f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			Status: statusPtr(domain.TicketStatusInProgress),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
	})

	t.Run("no-op status accepted", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		updated, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			Status: statusPtr(domain.TicketStatusOpen),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	})
}

func TestUpdateTicketAssignment(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	t.Run("assign to support then clear", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		updated, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr(f.agent.ID),
		})
		require.NoError(t, err)
		require.NotNil(t, updated.AssignedTo)
		assert.Equal(t, f.agent.ID, *updated.AssignedTo)

		updated, err = f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr(""),
		})
		require.NoError(t, err)
		assert.Nil(t, updated.AssignedTo)
	})

	t.Run("regular user is not a valid assignee", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		_, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr(f.other.ID),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidAssignee))
	})

	t.Run("unknown account is not a valid assignee", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		_, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			AssignedTo: strPtr("ghost-id"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidAssignee))
	})
}

func TestSubmitRating(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	resolve := func(t *testing.T, ticketID string) {
		t.Helper()
		_, err := f.service.UpdateTicket(ctx, f.admin, ticketID, TicketUpdateInput{
			Status: statusPtr(domain.TicketStatusResolved),
		})
		require.NoError(t, err)
	}

	t.Run("creator rates a resolved ticket once", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		resolve(t, ticket.ID)

		rated, err := f.service.SubmitRating(ctx, f.requester, ticket.ID, 5)
		require.NoError(t, err)
		require.NotNil(t, rated.Rating)
		assert.Equal(t, 5, *rated.Rating)

		_, err = f.service.SubmitRating(ctx, f.requester, ticket.ID, 3)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeAlreadyRated))

		stored, _, err := f.service.GetTicket(ctx, f.requester, ticket.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.Rating)
		assert.Equal(t, 5, *stored.Rating)
	})

	t.Run("admin cannot rate on the creator's behalf", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		resolve(t, ticket.ID)

		_, err := f.service.SubmitRating(ctx, f.admin, ticket.ID, 4)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	})

	t.Run("unresolved ticket refuses the rating", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		_, err := f.service.SubmitRating(ctx, f.requester, ticket.ID, 4)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotYetResolved))
	})

	t.Run("out-of-range value leaves rating unset", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		resolve(t, ticket.ID)

		for _, value := range []int{0, 6, -1} {
			_, err := f.service.SubmitRating(ctx, f.requester, ticket.ID, value)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidRating))
		}

		stored, _, err := f.service.GetTicket(ctx, f.requester, ticket.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Rating)

		rated, err := f.service.SubmitRating(ctx, f.requester, ticket.ID, 1)
		require.NoError(t, err)
		require.NotNil(t, rated.Rating)
		assert.Equal(t, 1, *rated.Rating)
	})

	t.Run("non-creator cannot even see the ticket", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		resolve(t, ticket.ID)

		_, err := f.service.SubmitRating(ctx, f.other, ticket.ID, 5)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})

	t.Run("rating survives a later close", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		resolve(t, ticket.ID)

		_, err := f.service.SubmitRating(ctx, f.requester, ticket.ID, 2)
		require.NoError(t, err)

		closed, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
			Status: statusPtr(domain.TicketStatusClosed),
		})
		require.NoError(t, err)
		require.NotNil(t, closed.Rating)
		assert.Equal(t, 2, *closed.Rating)
	})
}

func TestAddComment(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	t.Run("comments append in order", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		first, err := f.service.AddComment(ctx, f.requester, ticket.ID, "any update?")
		require.NoError(t, err)
		second, err := f.service.AddComment(ctx, f.admin, ticket.ID, "looking into it")
		require.NoError(t, err)

		_, comments, err := f.service.GetTicket(ctx, f.requester, ticket.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, first.ID, comments[0].ID)
		assert.Equal(t, second.ID, comments[1].ID)
		assert.Equal(t, domain.RoleUser, comments[0].AuthorRole)
		assert.Equal(t, domain.RoleAdmin, comments[1].AuthorRole)
	})

	t.Run("comment does not move updated_at", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)
		before, _, err := f.service.GetTicket(ctx, f.requester, ticket.ID)
		require.NoError(t, err)

		_, err = f.service.AddComment(ctx, f.requester, ticket.ID, "bump")
		require.NoError(t, err)

		after, _, err := f.service.GetTicket(ctx, f.requester, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
		assert.Equal(t, before.Version, after.Version)
		assert.True(t, after.LastActivityAt.After(before.LastActivityAt))
	})

	t.Run("blank comment rejected", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		_, err := f.service.AddComment(ctx, f.requester, ticket.ID, "  \n ")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("invisible ticket cannot be commented", func(t *testing.T) {
		ticket := f.createTicket(t, f.requester)

		_, err := f.service.AddComment(ctx, f.other, ticket.ID, "let me in")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestListHistory(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t, f.requester)

	_, err := f.service.UpdateTicket(ctx, f.admin, ticket.ID, TicketUpdateInput{
		Status:   statusPtr(domain.TicketStatusResolved),
		Priority: priorityPtr(domain.TicketPriorityHigh),
	})
	require.NoError(t, err)
	_, err = f.service.SubmitRating(ctx, f.requester, ticket.ID, 4)
	require.NoError(t, err)

	t.Run("entries recorded per change", func(t *testing.T) {
		entries, err := f.service.ListHistory(ctx, f.requester, ticket.ID)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		types := make([]domain.TicketChangeType, 0, len(entries))
		for _, entry := range entries {
			types = append(types, entry.ChangeType)
		}
		assert.Contains(t, types, domain.ChangeTypeStatus)
		assert.Contains(t, types, domain.ChangeTypePriority)
		assert.Contains(t, types, domain.ChangeTypeRating)
	})

	t.Run("history hidden with the ticket", func(t *testing.T) {
		_, err := f.service.ListHistory(ctx, f.other, ticket.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

// racingTicketRepo interleaves a conflicting write between the service's
// read and its subsequent update, reproducing two clients racing on the
// same ticket.
type racingTicketRepo struct {
	repository.TicketRepository
	interleave func()
	fired      bool
}

func (r *racingTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := r.TicketRepository.GetByID(ctx, id)
	if err == nil && !r.fired && r.interleave != nil {
		r.fired = true
		r.interleave()
	}
	return ticket, err
}

func TestUpdateTicketConcurrentConflict(t *testing.T) {
	store := repository.NewMemoryStore()
	racing := &racingTicketRepo{TicketRepository: store.Tickets()}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  racing,
		CommentRepo: store.Comments(),
		UserRepo:    store.Users(),
		HistoryRepo: store.History(),
	})

	ctx := context.Background()
	admin := seedUser(t, store, "root@example.com", domain.RoleAdmin)

	ticket, err := svc.CreateTicket(ctx, admin, TicketCreateInput{
		Subject:     "flaky wifi on floor 3",
		Description: "drops every few minutes",
	})
	require.NoError(t, err)

	// The second writer lands between this update's read and write.
	racing.interleave = func() {
		other, err := store.Tickets().GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		other.Priority = domain.TicketPriorityHigh
		require.NoError(t, store.Tickets().Update(ctx, other))
	}

	_, err = svc.UpdateTicket(ctx, admin, ticket.ID, TicketUpdateInput{
		Status: statusPtr(domain.TicketStatusInProgress),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.True(t, domainErr.Retryable())

	// The interleaved write stuck; the losing update changed nothing.
	stored, _, err := svc.GetTicket(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, stored.Priority)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}
