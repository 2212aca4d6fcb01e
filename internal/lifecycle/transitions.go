// Package lifecycle validates ticket state machine moves: status edges,
// priority levels, and assignment targets.
package lifecycle

import (
	"github.com/helpdeskhq/helpdesk-service/internal/domain"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util"
)

// allowedTransitions is the directed edge set of the status machine.
// CLOSED is terminal; RESOLVED may reopen to IN_PROGRESS but never
// directly back to OPEN.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

// CanTransition reports whether the status machine permits current → next.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidateStatus checks a requested status change against the edge set.
// A no-op (next == current) is accepted without consulting the edges.
func ValidateStatus(current, next domain.TicketStatus) error {
	if !next.Valid() {
		return apperrors.NewValidationError("unknown ticket status", map[string]any{"status": string(next)})
	}
	if next == current {
		return nil
	}
	if !CanTransition(current, next) {
		return apperrors.NewInvalidTransition(string(current), string(next))
	}
	return nil
}

// ValidatePriority checks a requested priority value. Priority has no
// transition constraints; any known level may replace any other.
func ValidatePriority(next domain.TicketPriority) error {
	if !next.Valid() {
		return apperrors.NewValidationError("unknown ticket priority", map[string]any{"priority": string(next)})
	}
	return nil
}

// ValidateAssignee checks that a new assignee may hold assignments.
// A nil assignee clears the assignment and is always permitted.
func ValidateAssignee(assignee *domain.User) error {
	if assignee == nil {
		return nil
	}
	if !assignee.Role.CanBeAssignee() {
		return apperrors.NewInvalidAssignee("tickets can only be assigned to support or admin principals")
	}
	return nil
}
