package authkit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenKind selects which signing key and lifetime apply.
type TokenKind string

const (
	// AccessToken is the short-lived, stateless token class.
	AccessToken TokenKind = "access"
	// RefreshToken is the long-lived, session-bound token class.
	RefreshToken TokenKind = "refresh"
)

// TokenCodec encodes, decodes, signs, and verifies the compact signed
// tokens. Access and refresh tokens use independent HMAC keys and are
// never interchangeable.
type TokenCodec struct {
	config    Config
	logger    Logger
	decorator ClaimsDecorator
	now       func() time.Time
}

// NewTokenCodec creates a codec for the configured key pair.
func NewTokenCodec(config Config) *TokenCodec {
	return &TokenCodec{
		config:    config,
		logger:    defLogger{},
		decorator: noopClaimsDecorator{},
		now:       time.Now,
	}
}

func (c *TokenCodec) WithLogger(logger Logger) *TokenCodec {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithClaimsDecorator installs a hook that can extend the metadata claim
// before signing. Registered and identity claims are snapshot-guarded.
func (c *TokenCodec) WithClaimsDecorator(d ClaimsDecorator) *TokenCodec {
	c.decorator = normalizeClaimsDecorator(d)
	return c
}

// WithClock overrides the time source, primarily for tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// IssueAccessToken mints an access token with subject = the identity's
// email and expiry = now + access TTL. extra is merged into the metadata
// claim. Pure function of its inputs and the current time.
func (c *TokenCodec) IssueAccessToken(identity Identity, extra map[string]any) (string, error) {
	return c.issue(identity, AccessToken, uuid.Nil, extra)
}

// IssueRefreshToken mints a refresh token bound to sessionID through the
// sid claim, signed with the refresh key.
func (c *TokenCodec) IssueRefreshToken(identity Identity, sessionID uuid.UUID, extra map[string]any) (string, error) {
	if sessionID == uuid.Nil {
		return "", goerrors.New("refresh token requires a session id", goerrors.CategoryBadInput)
	}
	return c.issue(identity, RefreshToken, sessionID, extra)
}

func (c *TokenCodec) issue(identity Identity, kind TokenKind, sessionID uuid.UUID, extra map[string]any) (string, error) {
	if identity == nil {
		return "", goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	now := c.now()

	var aud jwt.ClaimStrings
	if len(c.config.Audience) > 0 {
		aud = make(jwt.ClaimStrings, len(c.config.Audience))
		copy(aud, c.config.Audience)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.config.Issuer,
			Subject:   identity.Email(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl(kind))),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}

	if kind == RefreshToken {
		claims.SessionID = sessionID.String()
	}

	if len(extra) > 0 {
		claims.Metadata = make(map[string]any, len(extra))
		for k, v := range extra {
			claims.Metadata[k] = v
		}
	}

	snapshot := captureImmutableClaims(claims)
	if err := c.decorator.Decorate(identity, claims); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "claims decorator failed")
	}
	if err := snapshot.validate(claims); err != nil {
		return "", err
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.key(kind))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Decode checks signature and structure only and returns the embedded
// claims. Expiry is deliberately not enforced here: it is a separate
// predicate (IsExpired) composed by callers, so a corrupt token is always
// rejected before its expiry claim is ever inspected.
func (c *TokenCodec) Decode(raw string, kind TokenKind) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("TokenCodec decode encountered unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key(kind), nil
	}, jwt.WithoutClaimsValidation())

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenSignatureInvalid
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		c.logger.Error("TokenCodec decode could not map claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// IsExpired compares the embedded expiry claim to the current time.
// Callers must have verified the signature first; claims from an
// unverified token must never reach this check in isolation.
func (c *TokenCodec) IsExpired(claims *TokenClaims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return c.now().After(claims.ExpiresAt.Time)
}

// Verify is the full check for token consumers: signature, structure,
// expiry, and issuer/audience when configured.
func (c *TokenCodec) Verify(raw string, kind TokenKind) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if c.config.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.config.Issuer))
	}
	if len(c.config.Audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(c.config.Audience...))
	}
	parserOptions = append(parserOptions, jwt.WithTimeFunc(c.now))

	token, err := jwt.ParseWithClaims(raw, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("TokenCodec verify encountered unexpected signing method %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key(kind), nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if goerrors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrTokenSignatureInvalid
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		c.logger.Error("TokenCodec verify could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func (c *TokenCodec) key(kind TokenKind) []byte {
	if kind == RefreshToken {
		return c.config.RefreshTokenKey
	}
	return c.config.AccessTokenKey
}

func (c *TokenCodec) ttl(kind TokenKind) time.Duration {
	if kind == RefreshToken {
		return c.config.refreshTTL()
	}
	return c.config.accessTTL()
}
