package authkit

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the payload carried by both token classes. Access tokens
// leave SessionID empty; refresh tokens must carry the bound session id.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID       string         `json:"uid,omitempty"`
	UserRole  string         `json:"role,omitempty"`
	SessionID string         `json:"sid,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"` // extension payload
}

// Subject returns the subject claim, the user's email.
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID, falling back to the subject.
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the user's role claim.
func (c *TokenClaims) Role() string {
	return c.UserRole
}

// Expires returns the expiry instant, zero if the claim is absent.
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issuance instant, zero if the claim is absent.
func (c *TokenClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// BoundSessionID parses the sid claim of a refresh token.
func (c *TokenClaims) BoundSessionID() (uuid.UUID, error) {
	return uuid.Parse(c.SessionID)
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}
}
