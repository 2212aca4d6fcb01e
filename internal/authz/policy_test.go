package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

func ticketFor(creator string, assignee *string) *domain.Ticket {
	return &domain.Ticket{
		ID:         "ticket-1",
		Subject:    "printer is on fire",
		Status:     domain.TicketStatusOpen,
		CreatedBy:  creator,
		AssignedTo: assignee,
	}
}

func TestDecideVisibility(t *testing.T) {
	agentID := "agent-1"
	cases := []struct {
		name      string
		principal domain.Principal
		ticket    *domain.Ticket
		visible   bool
	}{
		{
			name:      "user sees own ticket",
			principal: domain.Principal{ID: "user-1", Role: domain.RoleUser},
			ticket:    ticketFor("user-1", nil),
			visible:   true,
		},
		{
			name:      "user cannot see another user's ticket",
			principal: domain.Principal{ID: "user-2", Role: domain.RoleUser},
			ticket:    ticketFor("user-1", nil),
			visible:   false,
		},
		{
			name:      "support sees ticket assigned to them",
			principal: domain.Principal{ID: agentID, Role: domain.RoleSupport},
			ticket:    ticketFor("user-1", &agentID),
			visible:   true,
		},
		{
			name:      "support sees ticket they created",
			principal: domain.Principal{ID: agentID, Role: domain.RoleSupport},
			ticket:    ticketFor(agentID, nil),
			visible:   true,
		},
		{
			name:      "support cannot see unassigned ticket of another user",
			principal: domain.Principal{ID: agentID, Role: domain.RoleSupport},
			ticket:    ticketFor("user-1", nil),
			visible:   false,
		},
		{
			name:      "admin sees everything",
			principal: domain.Principal{ID: "admin-1", Role: domain.RoleAdmin},
			ticket:    ticketFor("user-1", &agentID),
			visible:   true,
		},
		{
			name:      "unknown role sees nothing",
			principal: domain.Principal{ID: "user-1", Role: domain.Role("AUDITOR")},
			ticket:    ticketFor("user-1", nil),
			visible:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(tc.principal, tc.ticket)
			assert.Equal(t, tc.visible, decision.Visible)
			assert.Equal(t, tc.visible, Visible(tc.principal, tc.ticket))
		})
	}
}

func TestDecideMutableFields(t *testing.T) {
	agentID := "agent-1"

	t.Run("requester may edit subject and description only", func(t *testing.T) {
		decision := Decide(domain.Principal{ID: "user-1", Role: domain.RoleUser}, ticketFor("user-1", nil))
		assert.True(t, decision.MutableFields.Contains(FieldSubject))
		assert.True(t, decision.MutableFields.Contains(FieldDescription))
		assert.False(t, decision.MutableFields.Contains(FieldStatus))
		assert.False(t, decision.MutableFields.Contains(FieldPriority))
		assert.False(t, decision.MutableFields.Contains(FieldAssignedTo))
	})

	t.Run("support assignee gets full field set", func(t *testing.T) {
		decision := Decide(domain.Principal{ID: agentID, Role: domain.RoleSupport}, ticketFor("user-1", &agentID))
		for _, field := range []string{FieldSubject, FieldDescription, FieldStatus, FieldPriority, FieldAssignedTo} {
			assert.True(t, decision.MutableFields.Contains(field), field)
		}
	})

	t.Run("admin gets full field set", func(t *testing.T) {
		decision := Decide(domain.Principal{ID: "admin-1", Role: domain.RoleAdmin}, ticketFor("user-1", nil))
		for _, field := range []string{FieldSubject, FieldDescription, FieldStatus, FieldPriority, FieldAssignedTo} {
			assert.True(t, decision.MutableFields.Contains(field), field)
		}
	})

	t.Run("invisible ticket yields no mutable fields", func(t *testing.T) {
		decision := Decide(domain.Principal{ID: "user-2", Role: domain.RoleUser}, ticketFor("user-1", nil))
		assert.False(t, decision.Visible)
		assert.Empty(t, decision.MutableFields)
	})
}
