package authkit_test

import (
	"context"
	"strings"
	"testing"

	authkit "github.com/goliatone/go-authkit"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type autherFixture struct {
	users         *memoryUsers
	sessions      *memorySessions
	confirmations *memoryConfirmations
	mailer        *captureDispatcher
	sink          *capturingSink
	auther        *authkit.Auther
}

func newAutherFixture(t *testing.T, rotate bool) *autherFixture {
	t.Helper()

	config := newTestConfig(rotate)
	users := newMemoryUsers()
	sessions := newMemorySessions()
	confirmations := newMemoryConfirmations(users)
	mailer := &captureDispatcher{}
	sink := &capturingSink{}

	codec := authkit.NewTokenCodec(config).WithLogger(nopLogger{})
	sessionManager := authkit.NewSessionManager(codec, sessions, users, config).WithLogger(nopLogger{})
	confirmationManager := authkit.NewConfirmationManager(confirmations, config).WithLogger(nopLogger{})
	verifier := authkit.NewDirectoryVerifier(users).WithLogger(nopLogger{})

	auther := authkit.NewAuther(users, sessionManager, confirmationManager, verifier).
		WithLogger(nopLogger{}).
		WithEmailDispatcher(mailer).
		WithActivitySink(sink)

	return &autherFixture{
		users:         users,
		sessions:      sessions,
		confirmations: confirmations,
		mailer:        mailer,
		sink:          sink,
		auther:        auther,
	}
}

func registerMsg(email string) authkit.RegisterMessage {
	return authkit.RegisterMessage{
		FirstName: "Peppo",
		LastName:  "Pepperoni",
		Email:     email,
		Password:  "super-secret-1",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a disabled account and emails the token", func(t *testing.T) {
		fx := newAutherFixture(t, false)

		user, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
		require.NoError(t, err)

		assert.False(t, user.Enabled, "accounts start disabled")
		assert.Equal(t, authkit.RoleMember, user.Role)
		assert.Equal(t, "peppo", user.Username, "username derives from the email local part")
		assert.NotEmpty(t, user.PasswordHash)
		assert.NotEqual(t, "super-secret-1", user.PasswordHash)

		require.Len(t, fx.mailer.sent, 1)
		assert.Equal(t, "peppo@example.com", fx.mailer.sent[0].To)
		assert.Contains(t, fx.mailer.sent[0].HTML, "token=")
		assert.Contains(t, fx.mailer.sent[0].HTML, "Peppo")

		assert.Contains(t, fx.sink.types(), authkit.ActivityEventRegistered)
	})

	t.Run("rejects a duplicate email before any write", func(t *testing.T) {
		fx := newAutherFixture(t, false)

		_, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
		require.NoError(t, err)

		_, err = fx.auther.Register(ctx, registerMsg("peppo@example.com"))
		assert.ErrorIs(t, err, authkit.ErrEmailAlreadyExists)
		assert.Len(t, fx.mailer.sent, 1, "no second confirmation goes out")
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		fx := newAutherFixture(t, false)

		msg := registerMsg("not-an-email")
		_, err := fx.auther.Register(ctx, msg)
		require.Error(t, err)

		var rich *goerrors.Error
		require.True(t, goerrors.As(err, &rich))
		assert.Equal(t, goerrors.CategoryValidation, rich.Category)

		short := registerMsg("peppo@example.com")
		short.Password = "short"
		_, err = fx.auther.Register(ctx, short)
		require.Error(t, err)
	})

	t.Run("store failure stays an infrastructure error", func(t *testing.T) {
		fx := newAutherFixture(t, false)
		fx.users.failRegister = goerrors.New("connection refused", goerrors.CategoryOperation)

		_, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
		require.Error(t, err)

		var rich *goerrors.Error
		require.True(t, goerrors.As(err, &rich))
		assert.Equal(t, goerrors.CategoryInternal, rich.Category)
		assert.NotErrorIs(t, err, authkit.ErrEmailAlreadyExists)
	})

	t.Run("duplicate-key race maps to email exists", func(t *testing.T) {
		fx := newAutherFixture(t, false)
		fx.users.failRegister = goerrors.New("unique constraint violated", goerrors.CategoryConflict)

		_, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
		assert.ErrorIs(t, err, authkit.ErrEmailAlreadyExists)
	})

	t.Run("delivery failure does not fail registration", func(t *testing.T) {
		fx := newAutherFixture(t, false)
		fx.mailer.fail = goerrors.New("smtp down", goerrors.CategoryOperation)

		user, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
		require.NoError(t, err)
		assert.NotNil(t, user)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, fx *autherFixture, email string, confirm bool) {
		t.Helper()
		_, err := fx.auther.Register(ctx, registerMsg(email))
		require.NoError(t, err)
		if confirm {
			token := confirmationTokenFor(t, fx)
			require.NoError(t, fx.auther.Confirm(ctx, token))
		}
	}

	t.Run("issues tokens for confirmed credentials", func(t *testing.T) {
		fx := newAutherFixture(t, false)
		register(t, fx, "peppo@example.com", true)

		res, err := fx.auther.Login(ctx, authkit.LoginMessage{
			Email:    "peppo@example.com",
			Password: "super-secret-1",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, res.AccessToken)
		assert.NotEmpty(t, res.RefreshToken)
		assert.Equal(t, "peppo@example.com", res.User.Email)
		assert.Equal(t, 1, fx.sessions.count())
		assert.Contains(t, fx.sink.types(), authkit.ActivityEventLoginSuccess)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		fx := newAutherFixture(t, false)
		register(t, fx, "peppo@example.com", true)

		_, wrongPassword := fx.auther.Login(ctx, authkit.LoginMessage{
			Email:    "peppo@example.com",
			Password: "wrong-password-1",
		})
		_, unknownEmail := fx.auther.Login(ctx, authkit.LoginMessage{
			Email:    "ghost@example.com",
			Password: "super-secret-1",
		})

		assert.ErrorIs(t, wrongPassword, authkit.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownEmail, authkit.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
		assert.Equal(t, 0, fx.sessions.count())
	})

	t.Run("unconfirmed account is refused distinctly", func(t *testing.T) {
		fx := newAutherFixture(t, false)
		register(t, fx, "peppo@example.com", false)

		_, err := fx.auther.Login(ctx, authkit.LoginMessage{
			Email:    "peppo@example.com",
			Password: "super-secret-1",
		})
		assert.ErrorIs(t, err, authkit.ErrAccountDisabled)
		assert.Contains(t, fx.sink.types(), authkit.ActivityEventLoginFailure)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	fx := newAutherFixture(t, false)

	_, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
	require.NoError(t, err)
	require.NoError(t, fx.auther.Confirm(ctx, confirmationTokenFor(t, fx)))

	res, err := fx.auther.Login(ctx, authkit.LoginMessage{
		Email:    "peppo@example.com",
		Password: "super-secret-1",
	})
	require.NoError(t, err)

	require.NoError(t, fx.auther.Logout(ctx, res.RefreshToken))
	assert.Equal(t, 0, fx.sessions.count())
	assert.Contains(t, fx.sink.types(), authkit.ActivityEventLogout)

	err = fx.auther.Logout(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, authkit.ErrInvalidRefreshToken)
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()

	t.Run("enables the account", func(t *testing.T) {
		fx := newAutherFixture(t, false)

		_, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
		require.NoError(t, err)

		require.NoError(t, fx.auther.Confirm(ctx, confirmationTokenFor(t, fx)))

		user, err := fx.users.FindByEmail(ctx, "peppo@example.com")
		require.NoError(t, err)
		assert.True(t, user.Enabled)
		assert.Contains(t, fx.sink.types(), authkit.ActivityEventConfirmed)
	})

	t.Run("second confirm fails without disabling the account", func(t *testing.T) {
		fx := newAutherFixture(t, false)

		_, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
		require.NoError(t, err)

		token := confirmationTokenFor(t, fx)
		require.NoError(t, fx.auther.Confirm(ctx, token))

		err = fx.auther.Confirm(ctx, token)
		assert.ErrorIs(t, err, authkit.ErrConfirmationAlreadyUsed)

		user, err := fx.users.FindByEmail(ctx, "peppo@example.com")
		require.NoError(t, err)
		assert.True(t, user.Enabled, "a failed re-confirm never flips the account back")
	})

	t.Run("unknown token", func(t *testing.T) {
		fx := newAutherFixture(t, false)
		err := fx.auther.Confirm(ctx, "missing-token")
		assert.ErrorIs(t, err, authkit.ErrConfirmationNotFound)
	})
}

// TestFullLifecycle walks one account through the whole happy path plus
// the rotation replay check.
func TestFullLifecycle(t *testing.T) {
	ctx := context.Background()
	fx := newAutherFixture(t, true)

	_, err := fx.auther.Register(ctx, registerMsg("peppo@example.com"))
	require.NoError(t, err)

	// login before confirmation is refused
	_, err = fx.auther.Login(ctx, authkit.LoginMessage{
		Email:    "peppo@example.com",
		Password: "super-secret-1",
	})
	require.ErrorIs(t, err, authkit.ErrAccountDisabled)

	require.NoError(t, fx.auther.Confirm(ctx, confirmationTokenFor(t, fx)))

	res, err := fx.auther.Login(ctx, authkit.LoginMessage{
		Email:    "peppo@example.com",
		Password: "super-secret-1",
	})
	require.NoError(t, err)

	refreshed, err := fx.auther.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, res.RefreshToken, refreshed.RefreshToken)

	// the consumed token is dead, the replacement works
	_, err = fx.auther.Refresh(ctx, res.RefreshToken)
	require.ErrorIs(t, err, authkit.ErrInvalidRefreshToken)

	require.NoError(t, fx.auther.LogoutAll(ctx, refreshed.RefreshToken))
	assert.Equal(t, 0, fx.sessions.count())

	assert.Equal(t, []authkit.ActivityEventType{
		authkit.ActivityEventRegistered,
		authkit.ActivityEventLoginFailure,
		authkit.ActivityEventConfirmed,
		authkit.ActivityEventLoginSuccess,
		authkit.ActivityEventTokenRefreshed,
		authkit.ActivityEventLogoutAll,
	}, fx.sink.types())
}

// confirmationTokenFor pulls the token string out of the single captured
// confirmation email.
func confirmationTokenFor(t *testing.T, fx *autherFixture) string {
	t.Helper()

	require.NotEmpty(t, fx.mailer.sent, "registration should have sent a confirmation email")
	html := fx.mailer.sent[len(fx.mailer.sent)-1].HTML

	idx := strings.Index(html, "token=")
	require.GreaterOrEqual(t, idx, 0)

	rest := html[idx+len("token="):]
	end := strings.IndexByte(rest, '"')
	require.Greater(t, end, 0)

	return rest[:end]
}
