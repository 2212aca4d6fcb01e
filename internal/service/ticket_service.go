package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdeskhq/helpdesk-service/internal/authz"
	"github.com/helpdeskhq/helpdesk-service/internal/domain"
	"github.com/helpdeskhq/helpdesk-service/internal/events"
	"github.com/helpdeskhq/helpdesk-service/internal/lifecycle"
	"github.com/helpdeskhq/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util"
)

const (
	ratingMin = 1
	ratingMax = 5
)

// TicketService coordinates ticket workflows: creation, visibility-gated
// reads, field-filtered updates, the one-shot rating flow, and comment
// appends. Every mutation authorizes against the policy before touching
// the store.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
}

// TicketUpdateInput is a field-addressable update payload. Nil pointers
// leave the field untouched. AssignedTo pointing at an empty string clears
// the assignment.
type TicketUpdateInput struct {
	Subject     *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AssignedTo  *string
}

// TicketListFilter describes listing filters applied on top of the
// role-derived visibility predicate.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket opens a new ticket on behalf of any authenticated principal.
func (s *TicketService) CreateTicket(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if err := lifecycle.ValidatePriority(priority); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Subject:     subject,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatedBy:   principal.ID,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, storeError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorFor(principal),
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket fetches a single ticket with its comment thread. Tickets the
// principal may not see are reported as not found.
func (s *TicketService) GetTicket(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.visibleTicket(ctx, principal, ticketID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, storeError(err)
	}
	return ticket, comments, nil
}

// ListTickets returns the tickets accessible to the principal: all of them
// for admins, created-or-assigned for support, created-only for users.
func (s *TicketService) ListTickets(ctx context.Context, principal domain.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	switch principal.Role {
	case domain.RoleAdmin:
		// unrestricted
	case domain.RoleSupport:
		id := principal.ID
		repoFilter.ParticipantID = &id
	default:
		id := principal.ID
		repoFilter.RequesterID = &id
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, storeError(err)
	}
	return tickets, nil
}

// UpdateTicket applies a field-addressable update. Fields outside the
// principal's mutable set are silently dropped, never merged. Status moves
// are validated against the lifecycle edge set, and assignment targets
// must be support or admin accounts.
func (s *TicketService) UpdateTicket(ctx context.Context, principal domain.Principal, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err)
	}
	decision := authz.Decide(principal, ticket)
	if !decision.Visible {
		return nil, apperrors.NewNotFound("ticket", nil)
	}

	changes := make([]domain.TicketHistory, 0, 3)
	pending := make([]events.Event, 0, 3)

	if input.Subject != nil && decision.MutableFields.Contains(authz.FieldSubject) {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return nil, apperrors.NewValidationError("subject cannot be empty", nil)
		}
		ticket.Subject = subject
	}
	if input.Description != nil && decision.MutableFields.Contains(authz.FieldDescription) {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, apperrors.NewValidationError("description cannot be empty", nil)
		}
		ticket.Description = description
	}
	if input.Status != nil && decision.MutableFields.Contains(authz.FieldStatus) {
		if err := lifecycle.ValidateStatus(ticket.Status, *input.Status); err != nil {
			return nil, err
		}
		if *input.Status != ticket.Status {
			oldStatus := ticket.Status
			ticket.Status = *input.Status
			changes = append(changes, domain.TicketHistory{
				ChangeType: domain.ChangeTypeStatus,
				OldValue:   map[string]any{"status": oldStatus},
				NewValue:   map[string]any{"status": ticket.Status},
			})
			pending = append(pending, events.Event{
				Type:    events.EventTicketStatusChanged,
				Payload: events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: ticket.Status},
			})
		}
	}
	if input.Priority != nil && decision.MutableFields.Contains(authz.FieldPriority) {
		if err := lifecycle.ValidatePriority(*input.Priority); err != nil {
			return nil, err
		}
		if *input.Priority != ticket.Priority {
			oldPriority := ticket.Priority
			ticket.Priority = *input.Priority
			changes = append(changes, domain.TicketHistory{
				ChangeType: domain.ChangeTypePriority,
				OldValue:   map[string]any{"priority": oldPriority},
				NewValue:   map[string]any{"priority": ticket.Priority},
			})
			pending = append(pending, events.Event{
				Type:    events.EventTicketPriorityChanged,
				Payload: events.TicketPriorityChangedPayload{OldPriority: oldPriority, NewPriority: ticket.Priority},
			})
		}
	}
	if input.AssignedTo != nil && decision.MutableFields.Contains(authz.FieldAssignedTo) {
		newAssignee, err := s.resolveAssignee(ctx, *input.AssignedTo)
		if err != nil {
			return nil, err
		}
		if !assigneeEqual(ticket.AssignedTo, newAssignee) {
			oldAssignee := ticket.AssignedTo
			ticket.AssignedTo = newAssignee
			changes = append(changes, domain.TicketHistory{
				ChangeType: domain.ChangeTypeAssignment,
				OldValue:   map[string]any{"assigned_to": oldAssignee},
				NewValue:   map[string]any{"assigned_to": ticket.AssignedTo},
			})
			pending = append(pending, events.Event{
				Type:    events.EventTicketAssigned,
				Payload: events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo},
			})
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, storeError(err)
	}

	for _, change := range changes {
		change.TicketID = ticket.ID
		change.ChangedBy = principal.ID
		s.recordHistory(ctx, change)
	}
	for _, event := range pending {
		event.TicketID = ticket.ID
		event.Actor = actorFor(principal)
		s.publishEvent(ctx, event)
	}
	return ticket, nil
}

// SubmitRating applies the one-shot satisfaction rating. Preconditions are
// checked in order, each with its own failure: creator-only (an ownership
// check, not a role check; admins are refused too), resolved-only,
// write-once, and range.
func (s *TicketService) SubmitRating(ctx context.Context, principal domain.Principal, ticketID string, value int) (*domain.Ticket, error) {
	ticket, err := s.visibleTicket(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CreatedBy != principal.ID {
		return nil, apperrors.NewForbidden("only the ticket creator can rate")
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewNotYetResolved()
	}
	if ticket.Rating != nil {
		return nil, apperrors.NewAlreadyRated()
	}
	if value < ratingMin || value > ratingMax {
		return nil, apperrors.NewInvalidRating(value)
	}

	ticket.Rating = &value
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, storeError(err)
	}

	s.recordHistory(ctx, domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangedBy:  principal.ID,
		ChangeType: domain.ChangeTypeRating,
		NewValue:   map[string]any{"rating": value},
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketRated,
		TicketID: ticket.ID,
		Actor:    actorFor(principal),
		Payload:  events.TicketRatedPayload{Rating: value},
	})
	return ticket, nil
}

// AddComment appends to the ticket's discussion thread. The thread is
// append-only; the ticket's UpdatedAt is deliberately left alone and only
// LastActivityAt moves.
func (s *TicketService) AddComment(ctx context.Context, principal domain.Principal, ticketID, content string) (*domain.Comment, error) {
	ticket, err := s.visibleTicket(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content required", nil)
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   principal.ID,
		AuthorRole: principal.Role,
		Content:    content,
	}
	if err := s.comments.Append(ctx, comment); err != nil {
		return nil, storeError(err)
	}
	if err := s.tickets.TouchActivity(ctx, ticket.ID); err != nil {
		return nil, storeError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    actorFor(principal),
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorRole:  comment.AuthorRole,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

// ListHistory returns audit entries for a ticket, gated by the same
// visibility predicate as the ticket itself.
func (s *TicketService) ListHistory(ctx context.Context, principal domain.Principal, ticketID string) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	ticket, err := s.visibleTicket(ctx, principal, ticketID)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return entries, nil
}

// visibleTicket loads a ticket and applies the visibility rule. A denied
// principal gets the same not-found outcome as a missing ticket.
func (s *TicketService) visibleTicket(ctx context.Context, principal domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err)
	}
	if !authz.Visible(principal, ticket) {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

// resolveAssignee maps the wire form of an assignment ("" clears it) to a
// validated assignee reference.
func (s *TicketService) resolveAssignee(ctx context.Context, assigneeID string) (*string, error) {
	if assigneeID == "" {
		return nil, nil
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidAssignee("assignee does not exist")
		}
		return nil, storeError(err)
	}
	if err := lifecycle.ValidateAssignee(assignee); err != nil {
		return nil, err
	}
	return &assignee.ID, nil
}

func (s *TicketService) recordHistory(ctx context.Context, entry domain.TicketHistory) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, &entry)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// storeError maps storage failures onto the caller-facing error kinds:
// missing rows become not-found, lost optimistic races become retryable
// conflicts, and anything else is a transient store failure.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound("ticket", nil)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("ticket was modified concurrently; retry", nil)
	default:
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			return err
		}
		return apperrors.NewStoreUnavailable(err)
	}
}

func actorFor(principal domain.Principal) events.Actor {
	return events.Actor{ID: principal.ID, Role: principal.Role}
}

func assigneeEqual(current, next *string) bool {
	if current == nil || next == nil {
		return current == next
	}
	return *current == *next
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
