package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/helpdesk-service/internal/config"
	"github.com/helpdeskhq/helpdesk-service/internal/domain"
	"github.com/helpdeskhq/helpdesk-service/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk-service/pkg/util"
)

func newAuthService(store *repository.MemoryStore) *AuthService {
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 60
	cfg.Auth.PasswordResetTTLMinutes = 30
	cfg.Auth.BcryptCost = 4

	return NewAuthService(cfg, AuthDependencies{
		UserRepo:          store.Users(),
		PasswordResetRepo: store.PasswordResets(),
	})
}

func TestRegisterAndLogin(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	t.Run("register yields a requester account and a token", func(t *testing.T) {
		user, token, _, err := svc.Register(ctx, "Alice", "Alice@Example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleUser, user.Role)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.NotEmpty(t, token)

		claims, err := svc.TokenManager().ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.SubjectID)
		assert.Equal(t, domain.RoleUser, claims.Role)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, _, _, err := svc.Register(ctx, "Alice Again", "alice@example.com", "hunter23")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	})

	t.Run("login with correct password", func(t *testing.T) {
		user, token, _, err := svc.Login(ctx, "alice@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "alice@example.com", "wrong")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("unknown email gets the same unauthorized answer", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "nobody@example.com", "whatever")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("suspended account cannot log in", func(t *testing.T) {
		user, _, _, err := svc.Register(ctx, "Mallory", "mallory@example.com", "hunter24")
		require.NoError(t, err)
		user.Status = domain.UserStatusSuspended
		require.NoError(t, store.Users().Update(ctx, user))

		_, _, _, err = svc.Login(ctx, "mallory@example.com", "hunter24")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})
}

func TestChangePassword(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "Bob", "bob@example.com", "original")
	require.NoError(t, err)

	t.Run("requires the current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user.Principal(), "nope", "updated")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("rotates the credential", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, user.Principal(), "original", "updated"))

		_, _, _, err := svc.Login(ctx, "bob@example.com", "original")
		require.Error(t, err)
		_, _, _, err = svc.Login(ctx, "bob@example.com", "updated")
		require.NoError(t, err)
	})
}

func TestPasswordReset(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newAuthService(store)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "Carol", "carol@example.com", "before")
	require.NoError(t, err)

	t.Run("token resets the password once", func(t *testing.T) {
		token, err := svc.RequestPasswordReset(ctx, "carol@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token.Token)

		require.NoError(t, svc.ConfirmPasswordReset(ctx, token.Token, "after"))
		_, _, _, err = svc.Login(ctx, "carol@example.com", "after")
		require.NoError(t, err)

		err = svc.ConfirmPasswordReset(ctx, token.Token, "again")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("bogus token is unauthorized", func(t *testing.T) {
		err := svc.ConfirmPasswordReset(ctx, "not-a-token", "whatever")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("unknown email reports not found to the caller layer", func(t *testing.T) {
		_, err := svc.RequestPasswordReset(ctx, "ghost@example.com")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}
