package authkit

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// SessionManager owns the refresh-session lifecycle: issue, validate,
// rotate, revoke one, revoke all. A session has exactly two states: ACTIVE
// while its row exists, REVOKED once the row is deleted.
type SessionManager struct {
	codec  *TokenCodec
	store  RefreshSessionStore
	users  UserDirectory
	rotate bool
	logger Logger
}

// NewSessionManager wires the manager. The rotation policy comes from the
// same Config the codec was built with.
func NewSessionManager(codec *TokenCodec, store RefreshSessionStore, users UserDirectory, config Config) *SessionManager {
	return &SessionManager{
		codec:  codec,
		store:  store,
		users:  users,
		rotate: config.RotateRefreshTokens,
		logger: defLogger{},
	}
}

func (m *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Issue creates a new session row for the user and mints an access token
// plus a refresh token bound to that row.
func (m *SessionManager) Issue(ctx context.Context, user *User) (*TokenPair, error) {
	session, err := m.store.Save(ctx, NewSession(user.ID))
	if err != nil {
		return nil, wrapStoreErr(err, "failed to persist refresh session")
	}

	identity := NewIdentityFromUser(user)

	accessToken, err := m.codec.IssueAccessToken(identity, nil)
	if err != nil {
		return nil, err
	}

	refreshToken, err := m.codec.IssueRefreshToken(identity, session.ID, nil)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Validate runs the three checks a refresh token must pass before any
// revoke or refresh: signature and structure, session-row existence, then
// expiry. Every failure surfaces as ErrInvalidRefreshToken; the specific
// reason is logged but never exposed, so the caller cannot probe which
// check failed. Store failures are the exception: they propagate as
// infrastructure errors.
func (m *SessionManager) Validate(ctx context.Context, raw string) (*TokenClaims, error) {
	claims, err := m.codec.Decode(raw, RefreshToken)
	if err != nil {
		m.logger.Debug("refresh token rejected: %v", err)
		return nil, ErrInvalidRefreshToken
	}

	sessionID, err := claims.BoundSessionID()
	if err != nil {
		m.logger.Debug("refresh token carries no usable session id: %v", err)
		return nil, ErrInvalidRefreshToken
	}

	exists, err := m.store.ExistsByID(ctx, sessionID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to check refresh session")
	}
	if !exists {
		// Revoked or rotated away. This is what makes logout effective
		// even though the token itself is stateless crypto.
		m.logger.Debug("refresh token references missing session %s", sessionID)
		return nil, ErrInvalidRefreshToken
	}

	if m.codec.IsExpired(claims) {
		m.logger.Debug("refresh token for session %s is expired", sessionID)
		return nil, ErrInvalidRefreshToken
	}

	return claims, nil
}

// Revoke deletes the session bound to a valid refresh token. A second
// revoke with the same token fails validation because the row is gone.
func (m *SessionManager) Revoke(ctx context.Context, raw string) error {
	claims, err := m.Validate(ctx, raw)
	if err != nil {
		return err
	}

	sessionID, _ := claims.BoundSessionID()
	if err := m.store.DeleteByID(ctx, sessionID); err != nil {
		return wrapStoreErr(err, "failed to delete refresh session")
	}

	return nil
}

// RevokeAll deletes every session owned by the token's user, including the
// one just validated. A login racing the sweep may or may not survive;
// that window is accepted, not locked around.
func (m *SessionManager) RevokeAll(ctx context.Context, raw string) error {
	claims, err := m.Validate(ctx, raw)
	if err != nil {
		return err
	}

	user, err := m.resolveUser(ctx, claims)
	if err != nil {
		return err
	}

	if err := m.store.DeleteAllByUserID(ctx, user.ID); err != nil {
		return wrapStoreErr(err, "failed to delete user sessions")
	}

	return nil
}

// Refresh always mints a fresh access token for a valid refresh token.
// With rotation enabled the old session is consumed and replaced, so the
// old refresh string dies the instant this returns; with rotation disabled
// the same refresh string is handed back untouched.
func (m *SessionManager) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	claims, err := m.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}

	user, err := m.resolveUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	identity := NewIdentityFromUser(user)

	accessToken, err := m.codec.IssueAccessToken(identity, nil)
	if err != nil {
		return nil, err
	}

	if !m.rotate {
		return &TokenPair{
			AccessToken:  accessToken,
			RefreshToken: raw,
		}, nil
	}

	sessionID, _ := claims.BoundSessionID()
	if err := m.store.DeleteByID(ctx, sessionID); err != nil {
		return nil, wrapStoreErr(err, "failed to consume rotated refresh session")
	}

	session, err := m.store.Save(ctx, NewSession(user.ID))
	if err != nil {
		return nil, wrapStoreErr(err, "failed to persist rotated refresh session")
	}

	refreshToken, err := m.codec.IssueRefreshToken(identity, session.ID, nil)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// resolveUser maps the token subject back to a directory user. A session
// whose user vanished is a data-integrity signal: logged loudly, surfaced
// as the same generic invalid-token failure.
func (m *SessionManager) resolveUser(ctx context.Context, claims *TokenClaims) (*User, error) {
	user, err := m.users.FindByEmail(ctx, claims.Subject())
	if err != nil {
		if goerrors.IsNotFound(err) {
			m.logger.Error("refresh session %s references unknown user %s", claims.SessionID, claims.Subject())
			return nil, ErrInvalidRefreshToken
		}
		return nil, wrapStoreErr(err, "failed to resolve session user")
	}
	if user == nil {
		m.logger.Error("refresh session %s resolved nil user %s", claims.SessionID, claims.Subject())
		return nil, ErrInvalidRefreshToken
	}

	return user, nil
}
