package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to domain.TicketStatus }{
		{domain.TicketStatusOpen, domain.TicketStatusInProgress},
		{domain.TicketStatusOpen, domain.TicketStatusResolved},
		{domain.TicketStatusOpen, domain.TicketStatusClosed},
		{domain.TicketStatusInProgress, domain.TicketStatusOpen},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved},
		{domain.TicketStatusInProgress, domain.TicketStatusClosed},
		{domain.TicketStatusResolved, domain.TicketStatusInProgress},
		{domain.TicketStatusResolved, domain.TicketStatusClosed},
	}
	for _, edge := range allowed {
		assert.True(t, CanTransition(edge.from, edge.to), "%s -> %s", edge.from, edge.to)
	}

	denied := []struct{ from, to domain.TicketStatus }{
		{domain.TicketStatusResolved, domain.TicketStatusOpen},
		{domain.TicketStatusClosed, domain.TicketStatusOpen},
		{domain.TicketStatusClosed, domain.TicketStatusInProgress},
		{domain.TicketStatusClosed, domain.TicketStatusResolved},
	}
	for _, edge := range denied {
		assert.False(t, CanTransition(edge.from, edge.to), "%s -> %s", edge.from, edge.to)
	}
}

func TestValidateStatus(t *testing.T) {
	t.Run("valid move passes", func(t *testing.T) {
		assert.NoError(t, ValidateStatus(domain.TicketStatusOpen, domain.TicketStatusInProgress))
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		assert.NoError(t, ValidateStatus(domain.TicketStatusClosed, domain.TicketStatusClosed))
	})

	t.Run("closed is terminal", func(t *testing.T) {
		err := ValidateStatus(domain.TicketStatusClosed, domain.TicketStatusOpen)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
	})

	t.Run("resolved cannot reopen directly", func(t *testing.T) {
		err := ValidateStatus(domain.TicketStatusResolved, domain.TicketStatusOpen)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		err := ValidateStatus(domain.TicketStatusOpen, domain.TicketStatus("ARCHIVED"))
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	})
}

func TestValidatePriority(t *testing.T) {
	for _, priority := range []domain.TicketPriority{
		domain.TicketPriorityLow, domain.TicketPriorityMedium,
		domain.TicketPriorityHigh, domain.TicketPriorityUrgent,
	} {
		assert.NoError(t, ValidatePriority(priority))
	}

	err := ValidatePriority(domain.TicketPriority("CRITICAL"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestValidateAssignee(t *testing.T) {
	t.Run("nil clears assignment", func(t *testing.T) {
		assert.NoError(t, ValidateAssignee(nil))
	})

	t.Run("support and admin accounts accepted", func(t *testing.T) {
		assert.NoError(t, ValidateAssignee(&domain.User{ID: "a", Role: domain.RoleSupport}))
		assert.NoError(t, ValidateAssignee(&domain.User{ID: "b", Role: domain.RoleAdmin}))
	})

	t.Run("regular user rejected", func(t *testing.T) {
		err := ValidateAssignee(&domain.User{ID: "c", Role: domain.RoleUser})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidAssignee))
	})
}
