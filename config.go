package authkit

import (
	"bytes"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// Default lifetimes. Access tokens stay short because they cannot be
// revoked before natural expiry; logout only kills the refresh session.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultConfirmationTTL = 15 * time.Minute
)

// Config carries the signing keys, lifetimes, and rotation policy for the
// token lifecycle. It is injected explicitly at construction so tests can
// exercise both rotation modes without touching process state.
type Config struct {
	// AccessTokenKey signs short-lived access tokens.
	AccessTokenKey []byte
	// RefreshTokenKey signs refresh tokens. It must differ from
	// AccessTokenKey: key separation lets the operator rotate the access
	// key without invalidating live sessions, and makes a refresh-key leak
	// distinguishable from an access-key leak during incident response.
	RefreshTokenKey []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ConfirmationTTL time.Duration

	// RotateRefreshTokens makes each refresh consume the old session and
	// issue a new one, limiting the replay value of a stolen token.
	RotateRefreshTokens bool

	Issuer   string
	Audience []string
}

// Validate checks the configuration before any token is minted.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.AccessTokenKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.RefreshTokenKey, validation.Required, validation.Length(32, 0)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid token configuration")
	}

	if bytes.Equal(c.AccessTokenKey, c.RefreshTokenKey) {
		return goerrors.New("access and refresh signing keys must be distinct", goerrors.CategoryValidation)
	}

	return nil
}

func (c Config) accessTTL() time.Duration {
	if c.AccessTokenTTL > 0 {
		return c.AccessTokenTTL
	}
	return DefaultAccessTokenTTL
}

func (c Config) refreshTTL() time.Duration {
	if c.RefreshTokenTTL > 0 {
		return c.RefreshTokenTTL
	}
	return DefaultRefreshTokenTTL
}

func (c Config) confirmationTTL() time.Duration {
	if c.ConfirmationTTL > 0 {
		return c.ConfirmationTTL
	}
	return DefaultConfirmationTTL
}
