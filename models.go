package authkit

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest is a guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember is a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an owner role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

// User is the user model. Accounts start disabled and are enabled by the
// confirmation flow.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"password_hash,omitempty"`
	Enabled       bool       `bun:"enabled" json:"enabled,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Session is the durable record of one refresh session. The row's
// existence is the sole source of truth for refresh-token validity beyond
// signature and expiry: deleting it invalidates any refresh token string
// bound to its id.
type Session struct {
	bun.BaseModel `bun:"table:refresh_sessions,alias:rs"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NewSession creates an ACTIVE session row for the given user.
func NewSession(userID uuid.UUID) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: &now,
	}
}

// ConfirmationToken is the single-use, time-boxed token proving control of
// a registered email address. Rows are mutated exactly once (ConfirmedAt)
// and never deleted.
type ConfirmationToken struct {
	bun.BaseModel `bun:"table:confirmation_tokens,alias:ctk"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ConfirmedAt   *time.Time `bun:"confirmed_at,nullzero" json:"confirmed_at,omitempty"`
}

// Consumed reports whether the single confirm transition already happened.
func (t *ConfirmationToken) Consumed() bool {
	return t.ConfirmedAt != nil
}

// ExpiredAt reports whether the token is past its validity window at now.
func (t *ConfirmationToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPair is what a successful issue or refresh hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// PublicUser is the caller-facing projection of a User. It never carries
// the password hash.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
}

// PublicProfile builds the response projection for a user.
func PublicProfile(u *User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	if record.Username == "" {
		record.Username = usernameFromEmail(record.Email)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func usernameFromEmail(email string) string {
	if strings.Contains(email, "@") {
		return strings.Split(email, "@")[0]
	}
	return email
}
