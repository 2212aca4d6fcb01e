package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether the priority is a known level.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// CreatedBy and CreatedAt never change after creation. UpdatedAt moves only
// on accepted field mutations; comment traffic is stamped on LastActivityAt
// instead, so the two stay distinguishable. Rating is write-once. Version
// backs the store's per-record optimistic concurrency check.
type Ticket struct {
	ID             string
	Subject        string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	CreatedBy      string
	AssignedTo     *string
	Rating         *int
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastActivityAt time.Time
}

// IsAssignedTo reports whether the ticket is assigned to the given principal.
func (t *Ticket) IsAssignedTo(principalID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == principalID
}
