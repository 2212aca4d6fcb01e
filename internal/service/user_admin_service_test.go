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

func TestUserAdminService(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewUserAdminService(store.Users(), 4)
	ctx := context.Background()

	t.Run("create with explicit role", func(t *testing.T) {
		agent, err := svc.CreateUser(ctx, UserCreateInput{
			Name:     "Erin Agent",
			Email:    "Erin@Example.com",
			Password: "agents-only",
			Role:     domain.RoleSupport,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleSupport, agent.Role)
		assert.Equal(t, "erin@example.com", agent.Email)
		assert.Equal(t, domain.UserStatusActive, agent.Status)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, UserCreateInput{
			Name:     "Erin Clone",
			Email:    "erin@example.com",
			Password: "whatever1",
			Role:     domain.RoleSupport,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, UserCreateInput{
			Name:     "Nobody",
			Email:    "nobody@example.com",
			Password: "whatever1",
			Role:     domain.Role("SUPERVISOR"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("agent directory lists support and admin only", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, UserCreateInput{
			Name:     "Frank Requester",
			Email:    "frank@example.com",
			Password: "whatever1",
			Role:     domain.RoleUser,
		})
		require.NoError(t, err)
		_, err = svc.CreateUser(ctx, UserCreateInput{
			Name:     "Grace Admin",
			Email:    "grace@example.com",
			Password: "whatever1",
			Role:     domain.RoleAdmin,
		})
		require.NoError(t, err)

		agents, err := svc.ListAgents(ctx)
		require.NoError(t, err)
		require.Len(t, agents, 2)
		for _, agent := range agents {
			assert.True(t, agent.Role.CanBeAssignee(), agent.Email)
		}

		users, err := svc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 3)
	})

	t.Run("update patches only the provided fields", func(t *testing.T) {
		role := domain.RoleAdmin
		agents, err := svc.ListAgents(ctx)
		require.NoError(t, err)
		target := agents[0]

		updated, err := svc.UpdateUser(ctx, target.ID, UserUpdateInput{Role: &role})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, updated.Role)
		assert.Equal(t, target.Name, updated.Name)
		assert.Equal(t, target.Email, updated.Email)
	})

	t.Run("delete then not found", func(t *testing.T) {
		users, err := svc.ListUsers(ctx)
		require.NoError(t, err)
		target := users[0]

		require.NoError(t, svc.DeleteUser(ctx, target.ID))
		err = svc.DeleteUser(ctx, target.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}
