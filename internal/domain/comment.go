package domain

import "time"

// Comment is a single entry in a ticket's discussion thread. Comments are
// append-only: once accepted they are never edited, reordered, or removed.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorRole Role
	Content    string
	CreatedAt  time.Time
}
