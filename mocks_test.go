package authkit_test

import (
	"context"
	"sync"
	"time"

	authkit "github.com/goliatone/go-authkit"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

func newTestConfig(rotate bool) authkit.Config {
	return authkit.Config{
		AccessTokenKey:      []byte("access-signing-key-0123456789abcdef"),
		RefreshTokenKey:     []byte("refresh-signing-key-0123456789abcdef"),
		Issuer:              "authkit-test",
		Audience:            []string{"authkit-clients"},
		RotateRefreshTokens: rotate,
	}
}

func clockAt(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// memoryUsers is an in-memory UserDirectory keyed by email.
type memoryUsers struct {
	mu           sync.Mutex
	byEmail      map[string]*authkit.User
	failRegister error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: map[string]*authkit.User{}}
}

func (m *memoryUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*authkit.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	clone := *user
	return &clone, nil
}

func (m *memoryUsers) Register(_ context.Context, user *authkit.User) (*authkit.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRegister != nil {
		return nil, m.failRegister
	}
	clone := *user
	m.byEmail[user.Email] = &clone
	return user, nil
}

func (m *memoryUsers) Enable(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byEmail[email]
	if !ok {
		return goerrors.New("user not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	user.Enabled = true
	return nil
}

func (m *memoryUsers) findByID(id uuid.UUID) *authkit.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byEmail {
		if user.ID == id {
			clone := *user
			return &clone
		}
	}
	return nil
}

// memorySessions is an in-memory RefreshSessionStore.
type memorySessions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*authkit.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{rows: map[uuid.UUID]*authkit.Session{}}
}

func (m *memorySessions) Save(_ context.Context, session *authkit.Session) (*authkit.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	clone := *session
	m.rows[session.ID] = &clone
	return session, nil
}

func (m *memorySessions) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memorySessions) DeleteByID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memorySessions) DeleteAllByUserID(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.rows {
		if session.UserID == userID {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *memorySessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memorySessions) countForUser(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, session := range m.rows {
		if session.UserID == userID {
			n++
		}
	}
	return n
}

// memoryConfirmations is an in-memory ConfirmationStore. FindByToken
// hydrates the User relation from the linked user directory.
type memoryConfirmations struct {
	mu      sync.Mutex
	byToken map[string]*authkit.ConfirmationToken
	users   *memoryUsers
}

func newMemoryConfirmations(users *memoryUsers) *memoryConfirmations {
	return &memoryConfirmations{
		byToken: map[string]*authkit.ConfirmationToken{},
		users:   users,
	}
}

func (m *memoryConfirmations) Create(_ context.Context, token *authkit.ConfirmationToken) (*authkit.ConfirmationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *token
	m.byToken[token.Token] = &clone
	return token, nil
}

func (m *memoryConfirmations) FindByToken(_ context.Context, token string) (*authkit.ConfirmationToken, error) {
	m.mu.Lock()
	record, ok := m.byToken[token]
	m.mu.Unlock()
	if !ok {
		return nil, goerrors.New("confirmation token not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	clone := *record
	if m.users != nil {
		clone.User = m.users.findByID(clone.UserID)
	}
	return &clone, nil
}

func (m *memoryConfirmations) MarkConfirmed(_ context.Context, token string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.byToken[token]
	if !ok {
		return goerrors.New("confirmation token not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	if record.ConfirmedAt != nil {
		return authkit.ErrConfirmationAlreadyUsed
	}
	confirmed := at
	record.ConfirmedAt = &confirmed
	return nil
}

// captureDispatcher records outgoing confirmation emails.
type captureDispatcher struct {
	mu   sync.Mutex
	sent []capturedEmail
	fail error
}

type capturedEmail struct {
	To   string
	HTML string
}

func (d *captureDispatcher) Send(_ context.Context, to, html string) error {
	if d.fail != nil {
		return d.fail
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, capturedEmail{To: to, HTML: html})
	return nil
}

// capturingSink records activity events for assertions.
type capturingSink struct {
	mu     sync.Mutex
	events []authkit.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, event authkit.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingSink) types() []authkit.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]authkit.ActivityEventType, 0, len(c.events))
	for _, event := range c.events {
		out = append(out, event.EventType)
	}
	return out
}
