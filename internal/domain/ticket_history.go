package domain

import "time"

// TicketChangeType categorizes audit entries.
type TicketChangeType string

const (
	ChangeTypeStatus     TicketChangeType = "STATUS"
	ChangeTypePriority   TicketChangeType = "PRIORITY"
	ChangeTypeAssignment TicketChangeType = "ASSIGNMENT"
	ChangeTypeRating     TicketChangeType = "RATING"
)

// TicketHistory records a single audited change to a ticket.
type TicketHistory struct {
	ID         string
	TicketID   string
	ChangedBy  string
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
