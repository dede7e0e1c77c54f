package authkit_test

import (
	"testing"
	"time"

	authkit "github.com/goliatone/go-authkit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	userID := uuid.New()
	session := authkit.NewSession(userID)

	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, userID, session.UserID)
	require.NotNil(t, session.CreatedAt)

	other := authkit.NewSession(userID)
	assert.NotEqual(t, session.ID, other.ID, "every session row gets its own id")
}

func TestConfirmationTokenPredicates(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	token := &authkit.ConfirmationToken{
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}

	assert.False(t, token.Consumed())
	assert.False(t, token.ExpiredAt(now))
	assert.False(t, token.ExpiredAt(now.Add(15*time.Minute)), "boundary instant is still live")
	assert.True(t, token.ExpiredAt(now.Add(15*time.Minute+time.Second)))

	confirmed := now.Add(time.Minute)
	token.ConfirmedAt = &confirmed
	assert.True(t, token.Consumed())
}

func TestPublicProfile(t *testing.T) {
	user := testUser("peppo@example.com")
	user.PasswordHash = "$2a$14$something-secret"

	profile := authkit.PublicProfile(user)

	assert.Equal(t, user.ID, profile.ID)
	assert.Equal(t, user.Email, profile.Email)
	assert.Equal(t, user.Role, profile.Role)
	assert.Equal(t, user.FirstName, profile.FirstName)
	assert.Equal(t, user.LastName, profile.LastName)
}

func TestRenderConfirmationEmail(t *testing.T) {
	html, err := authkit.RenderConfirmationEmail("Peppo", "/registration/confirm?token=abc123")
	require.NoError(t, err)

	assert.Contains(t, html, "Hello, Peppo,")
	assert.Contains(t, html, `href="/registration/confirm?token=abc123"`)
	assert.Contains(t, html, "Confirm Email")
}
