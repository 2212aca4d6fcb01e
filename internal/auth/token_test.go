package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

func TestTokenManager(t *testing.T) {
	manager := NewTokenManager("test-secret", 60)

	t.Run("round trip", func(t *testing.T) {
		token, expiresAt, err := manager.GenerateToken("user-1", domain.RoleSupport)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.True(t, expiresAt.After(time.Now()))

		claims, err := manager.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.SubjectID)
		assert.Equal(t, domain.RoleSupport, claims.Role)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, _, err := manager.GenerateToken("user-1", domain.RoleUser)
		require.NoError(t, err)

		other := NewTokenManager("different-secret", 60)
		_, err = other.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		token, _, err := manager.GenerateToken("user-1", domain.RoleUser)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		parts[1] = parts[1][:len(parts[1])-2] + "xx"
		_, err = manager.ParseToken(strings.Join(parts, "."))
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := manager.ParseToken("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, ComparePassword(hash, "correct horse battery staple"))
	assert.Error(t, ComparePassword(hash, "tr0ub4dor&3"))
}
