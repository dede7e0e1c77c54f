package authkit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// UserDirectory is the store the core consults for identity and for
// marking an account confirmed.
type UserDirectory interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	Enable(ctx context.Context, email string) error
}

// RefreshSessionStore is the durable record of outstanding refresh
// sessions. A row's existence is what keeps a refresh token alive; deletes
// must be linearizable and deleting a missing row is a no-op, never an
// error.
type RefreshSessionStore interface {
	Save(ctx context.Context, session *Session) (*Session, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAllByUserID(ctx context.Context, userID uuid.UUID) error
}

// ConfirmationStore persists confirmation tokens. Rows are never deleted;
// expiry is enforced by timestamp comparison so consumed and expired
// tokens remain auditable. FindByToken hydrates the User relation so the
// confirm flow can reach the bound account without a second lookup.
type ConfirmationStore interface {
	Create(ctx context.Context, token *ConfirmationToken) (*ConfirmationToken, error)
	FindByToken(ctx context.Context, token string) (*ConfirmationToken, error)
	MarkConfirmed(ctx context.Context, token string, at time.Time) error
}

// PasswordVerifier checks credentials ahead of token issuance. It fails
// with ErrInvalidCredentials on a mismatch and with an infrastructure
// error for anything else, so callers branch on kind rather than message
// text.
type PasswordVerifier interface {
	Authenticate(ctx context.Context, email, password string) error
}

// EmailDispatcher delivers rendered mail. Fire and forget from the core's
// perspective: delivery failures are logged, never fatal.
type EmailDispatcher interface {
	Send(ctx context.Context, to, html string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHKIT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHKIT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHKIT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHKIT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
