package authkit

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// RegisterMessage carries a registration request.
type RegisterMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	// UseHashid derives the user's UUID deterministically from the email.
	UseHashid bool `json:"-"`
}

func (e RegisterMessage) Type() string { return "user.register" }

// Validate checks the message before any collaborator is touched.
func (e RegisterMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(8, 200)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration request")
	}
	return nil
}

// LoginMessage carries a credential check request.
type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e LoginMessage) Type() string { return "user.login" }

func (e LoginMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login request")
	}
	return nil
}

// AuthResponse is what a successful login hands back: both token strings
// plus the public profile, never the password hash.
type AuthResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         PublicUser `json:"user"`
}

// Auther composes the token lifecycle into the top-level use cases:
// register, login, logout, logout-all, refresh, and confirm. It is
// request-scoped with no internal retries; collaborator failures propagate
// as infrastructure errors.
type Auther struct {
	users          UserDirectory
	sessions       *SessionManager
	confirmations  *ConfirmationManager
	verifier       PasswordVerifier
	mailer         EmailDispatcher
	activity       ActivitySink
	logger         Logger
	confirmBaseURL string
}

// NewAuther wires the orchestrator. The mailer defaults to a logging
// dispatcher; override it with WithEmailDispatcher for real delivery.
func NewAuther(users UserDirectory, sessions *SessionManager, confirmations *ConfirmationManager, verifier PasswordVerifier) *Auther {
	return &Auther{
		users:          users,
		sessions:       sessions,
		confirmations:  confirmations,
		verifier:       verifier,
		mailer:         logEmailDispatcher{logger: defLogger{}},
		activity:       noopActivitySink{},
		logger:         defLogger{},
		confirmBaseURL: "/registration/confirm",
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithEmailDispatcher overrides the confirmation email delivery.
func (s *Auther) WithEmailDispatcher(mailer EmailDispatcher) *Auther {
	if mailer != nil {
		s.mailer = mailer
	}
	return s
}

// WithActivitySink registers an audit consumer for auth events. Recording
// failures are logged and never abort the operation being audited.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithConfirmationBaseURL sets the link prefix embedded in confirmation
// emails.
func (s *Auther) WithConfirmationBaseURL(base string) *Auther {
	if base != "" {
		s.confirmBaseURL = base
	}
	return s
}

// Register creates a disabled user and issues its confirmation token. The
// email-existence check runs before any write. The confirmation email is
// fire and forget: delivery failure is logged, registration still
// succeeds. The user is not logged in.
func (s *Auther) Register(ctx context.Context, msg RegisterMessage) (*User, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, msg.Email)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to check email existence")
	}
	if exists {
		s.logger.Error("Register rejected duplicate email %s", msg.Email)
		return nil, ErrEmailAlreadyExists
	}

	hash, err := HashPassword(msg.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		FirstName:    msg.FirstName,
		LastName:     msg.LastName,
		Username:     msg.Username,
		Email:        msg.Email,
		Role:         msg.Role,
		PasswordHash: hash,
		Enabled:      false,
	}
	if msg.UseHashid {
		if id, err := hashid.NewUUID(msg.Email); err == nil {
			user.ID = id
		}
	}
	prepareUserDefaults(user)

	if user, err = s.users.Register(ctx, user); err != nil {
		// A duplicate slipping past the existence check is the only
		// conflict here; anything else is a store failure.
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict {
			return nil, ErrEmailAlreadyExists
		}
		return nil, wrapStoreErr(err, "could not create user")
	}

	token, err := s.confirmations.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.dispatchConfirmation(ctx, user, token)
	s.record(ctx, ActivityEventRegistered, user.ID.String(), user.Email, nil)

	return user, nil
}

// Login verifies credentials, refuses unconfirmed accounts, and issues a
// new session. Wrong email and wrong password are indistinguishable to the
// caller.
func (s *Auther) Login(ctx context.Context, msg LoginMessage) (*AuthResponse, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if err := s.verifier.Authenticate(ctx, msg.Email, msg.Password); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryAuth {
			s.logger.Error("Login credential check failed for %s", msg.Email)
			s.record(ctx, ActivityEventLoginFailure, "", msg.Email, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, wrapStoreErr(err, "credential verification failed")
	}

	user, err := s.users.FindByEmail(ctx, msg.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// Verifier passed but the row vanished; normalize anyway.
			s.logger.Error("Login verified user %s no longer present", msg.Email)
			return nil, ErrInvalidCredentials
		}
		return nil, wrapStoreErr(err, "failed to load user")
	}

	if !user.Enabled {
		s.logger.Warn("Login blocked for unconfirmed account %s", msg.Email)
		s.record(ctx, ActivityEventLoginFailure, user.ID.String(), msg.Email, map[string]any{
			"reason": "account_disabled",
		})
		return nil, ErrAccountDisabled
	}

	pair, err := s.sessions.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventLoginSuccess, user.ID.String(), user.Email, nil)

	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         PublicProfile(user),
	}, nil
}

// Logout revokes the single session bound to the refresh token.
func (s *Auther) Logout(ctx context.Context, refreshToken string) error {
	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		return err
	}
	s.record(ctx, ActivityEventLogout, "", "", nil)
	return nil
}

// LogoutAll revokes every session of the token's owner across devices.
func (s *Auther) LogoutAll(ctx context.Context, refreshToken string) error {
	if err := s.sessions.RevokeAll(ctx, refreshToken); err != nil {
		return err
	}
	s.record(ctx, ActivityEventLogoutAll, "", "", nil)
	return nil
}

// Refresh mints a fresh access token, rotating the refresh token when the
// configured policy says so.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	s.record(ctx, ActivityEventTokenRefreshed, "", "", nil)
	return pair, nil
}

// Confirm consumes a confirmation token and enables the bound account.
func (s *Auther) Confirm(ctx context.Context, token string) error {
	record, err := s.confirmations.Confirm(ctx, token)
	if err != nil {
		return err
	}

	if record.User == nil {
		s.logger.Error("Confirm could not resolve user %s", record.UserID)
		return ErrUserNotFound
	}

	if err := s.users.Enable(ctx, record.User.Email); err != nil {
		return wrapStoreErr(err, "failed to enable user account")
	}

	s.record(ctx, ActivityEventConfirmed, record.User.ID.String(), record.User.Email, nil)

	return nil
}

func (s *Auther) record(ctx context.Context, event ActivityEventType, userID, email string, meta map[string]any) {
	err := s.activity.Record(ctx, ActivityEvent{
		EventType:  event,
		UserID:     userID,
		Email:      email,
		Metadata:   meta,
		OccurredAt: time.Now(),
	})
	if err != nil {
		s.logger.Error("failed to record %s activity: %v", event, err)
	}
}

func (s *Auther) dispatchConfirmation(ctx context.Context, user *User, token *ConfirmationToken) {
	link := s.confirmBaseURL + "?token=" + token.Token

	html, err := RenderConfirmationEmail(user.FirstName, link)
	if err != nil {
		s.logger.Error("failed to render confirmation email: %v", err)
		return
	}

	if err := s.mailer.Send(ctx, user.Email, html); err != nil {
		s.logger.Error("failed to dispatch confirmation email to %s: %v", user.Email, err)
	}
}
