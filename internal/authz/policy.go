// Package authz holds the pure ticket authorization policy: who may see a
// ticket and which of its fields they may change. Decisions carry no side
// effects; callers apply them before touching storage.
package authz

import "github.com/helpdeskhq/helpdesk-service/internal/domain"

// Field names the policy and update payloads address individually.
const (
	FieldSubject     = "subject"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldAssignedTo  = "assigned_to"
)

// FieldSet is the subset of ticket fields a principal may mutate.
type FieldSet map[string]struct{}

// Contains reports whether the field is in the set.
func (f FieldSet) Contains(field string) bool {
	_, ok := f[field]
	return ok
}

func newFieldSet(fields ...string) FieldSet {
	set := make(FieldSet, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

var (
	agentFields     = newFieldSet(FieldSubject, FieldDescription, FieldStatus, FieldPriority, FieldAssignedTo)
	requesterFields = newFieldSet(FieldSubject, FieldDescription)
)

// Decision is the outcome of evaluating the policy for one principal and
// one ticket. When Visible is false the caller must report the ticket as
// not found, never as forbidden, so unauthorized principals cannot probe
// for ticket existence.
type Decision struct {
	Visible       bool
	MutableFields FieldSet
}

// Decide evaluates the policy. Rules are checked in priority order and the
// first matching role wins:
//
//	admin:   sees every ticket, full field access.
//	support: sees tickets it created or is assigned to, full field access.
//	user:    sees only tickets it created, subject/description only.
func Decide(principal domain.Principal, ticket *domain.Ticket) Decision {
	switch principal.Role {
	case domain.RoleAdmin:
		return Decision{Visible: true, MutableFields: agentFields}
	case domain.RoleSupport:
		if ticket.CreatedBy == principal.ID || ticket.IsAssignedTo(principal.ID) {
			return Decision{Visible: true, MutableFields: agentFields}
		}
	case domain.RoleUser:
		if ticket.CreatedBy == principal.ID {
			return Decision{Visible: true, MutableFields: requesterFields}
		}
	}
	return Decision{}
}

// Visible is a convenience wrapper for read paths and list predicates.
func Visible(principal domain.Principal, ticket *domain.Ticket) bool {
	return Decide(principal, ticket).Visible
}
