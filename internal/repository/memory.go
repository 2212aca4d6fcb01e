package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

// MemoryStore is an in-memory implementation of the repository interfaces.
// It backs unit tests and DSN-less development runs. All ticket mutations
// funnel through a single mutex and the same optimistic version check the
// Postgres repository relies on, so concurrent writers observe identical
// conflict semantics.
type MemoryStore struct {
	mu       sync.RWMutex
	tickets  map[string]domain.Ticket
	comments map[string][]domain.Comment
	history  map[string][]domain.TicketHistory
	users    map[string]domain.User
	resets   map[string]PasswordResetToken
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[string]domain.Ticket),
		comments: make(map[string][]domain.Comment),
		history:  make(map[string][]domain.TicketHistory),
		users:    make(map[string]domain.User),
		resets:   make(map[string]PasswordResetToken),
	}
}

// Tickets returns the TicketRepository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return (*memoryTicketRepo)(s) }

// Comments returns the CommentRepository view of the store.
func (s *MemoryStore) Comments() CommentRepository { return (*memoryCommentRepo)(s) }

// History returns the TicketHistoryRepository view of the store.
func (s *MemoryStore) History() TicketHistoryRepository { return (*memoryHistoryRepo)(s) }

// Users returns the UserRepository view of the store.
func (s *MemoryStore) Users() UserRepository { return (*memoryUserRepo)(s) }

// PasswordResets returns the PasswordResetRepository view of the store.
func (s *MemoryStore) PasswordResets() PasswordResetRepository { return (*memoryResetRepo)(s) }

// monotonicAfter returns a timestamp strictly later than prev even when the
// wall clock has not visibly advanced between two mutations.
func monotonicAfter(prev time.Time) time.Time {
	now := time.Now()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

type memoryTicketRepo MemoryStore

func (s *memoryTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	ticket.LastActivityAt = now
	s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (s *memoryTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = monotonicAfter(stored.UpdatedAt)
	// LastActivityAt is owned by TouchActivity; keep the stored value.
	ticket.LastActivityAt = stored.LastActivityAt
	s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (s *memoryTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := cloneTicket(stored)
	return &copied, nil
}

func (s *memoryTicketRepo) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Ticket
	for _, stored := range s.tickets {
		if filter.RequesterID != nil && stored.CreatedBy != *filter.RequesterID {
			continue
		}
		if filter.ParticipantID != nil &&
			stored.CreatedBy != *filter.ParticipantID && !stored.IsAssignedTo(*filter.ParticipantID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, stored.Priority) {
			continue
		}
		result = append(result, cloneTicket(stored))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	if offset+limit > len(result) {
		limit = len(result) - offset
	}
	return result[offset : offset+limit], nil
}

func (s *memoryTicketRepo) TouchActivity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.LastActivityAt = monotonicAfter(stored.LastActivityAt)
	s.tickets[id] = stored
	return nil
}

type memoryCommentRepo MemoryStore

func (s *memoryCommentRepo) Append(_ context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now()
	s.comments[comment.TicketID] = append(s.comments[comment.TicketID], *comment)
	return nil
}

func (s *memoryCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.comments[ticketID]
	result := make([]domain.Comment, len(stored))
	copy(result, stored)
	return result, nil
}

type memoryHistoryRepo MemoryStore

func (s *memoryHistoryRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history.ID = uuid.NewString()
	history.CreatedAt = time.Now()
	s.history[history.TicketID] = append(s.history[history.TicketID], *history)
	return nil
}

func (s *memoryHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.history[ticketID]
	result := make([]domain.TicketHistory, len(stored))
	copy(result, stored)
	return result, nil
}

type memoryUserRepo MemoryStore

func (s *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = monotonicAfter(stored.UpdatedAt)
	s.users[user.ID] = *user
	return nil
}

func (s *memoryUserRepo) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.users, id)
	return nil
}

func (s *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (s *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, stored := range s.users {
		if strings.EqualFold(stored.Email, email) {
			copied := stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memoryUserRepo) List(_ context.Context, roles ...domain.Role) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.User
	for _, stored := range s.users {
		if len(roles) > 0 && !containsRole(roles, stored.Role) {
			continue
		}
		result = append(result, stored)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type memoryResetRepo MemoryStore

func (s *memoryResetRepo) Create(_ context.Context, token *PasswordResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	s.resets[token.Token] = *token
	return nil
}

func (s *memoryResetRepo) GetByToken(_ context.Context, tokenStr string) (*PasswordResetToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.resets[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (s *memoryResetRepo) MarkUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, stored := range s.resets {
		if stored.ID == id {
			now := time.Now()
			stored.UsedAt = &now
			s.resets[key] = stored
			return nil
		}
	}
	return pgx.ErrNoRows
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		t.AssignedTo = &assignee
	}
	if t.Rating != nil {
		rating := *t.Rating
		t.Rating = &rating
	}
	return t
}

func containsStatus(set []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

func containsPriority(set []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, candidate := range set {
		if candidate == priority {
			return true
		}
	}
	return false
}

func containsRole(set []domain.Role, role domain.Role) bool {
	for _, candidate := range set {
		if candidate == role {
			return true
		}
	}
	return false
}
