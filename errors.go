package authkit

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes give API consumers a stable discriminator that survives
// message rewording.
const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeEmailExists         = "EMAIL_ALREADY_EXISTS"
	TextCodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeTokenBadSignature   = "TOKEN_BAD_SIGNATURE"
	TextCodeTokenAlreadyUsed    = "TOKEN_ALREADY_USED"
	TextCodeTokenNotFound       = "TOKEN_NOT_FOUND"
	TextCodeAccountDisabled     = "ACCOUNT_DISABLED"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeImmutableClaim      = "IMMUTABLE_CLAIM_MUTATION"
)

// ErrInvalidCredentials normalizes wrong-email and wrong-password into a
// single failure so login cannot be used as an email oracle.
var ErrInvalidCredentials = goerrors.New("incorrect email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrEmailAlreadyExists is returned by Register before any write happens.
var ErrEmailAlreadyExists = goerrors.New("email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailExists)

// ErrInvalidRefreshToken is the only refresh-token failure surfaced to
// callers. Bad signature, malformed structure, missing session row, and
// expiry all coalesce here on purpose: exposing which check failed would
// hand an attacker a validation oracle.
var ErrInvalidRefreshToken = goerrors.New("refresh token is invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidRefreshToken)

// ErrTokenExpired reports a structurally valid token past its expiry claim.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed reports a token that could not be parsed at all.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenSignatureInvalid reports a well-formed token whose signature does
// not verify against the expected key.
var ErrTokenSignatureInvalid = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenBadSignature)

// ErrConfirmationNotFound is returned when no confirmation token matches.
var ErrConfirmationNotFound = goerrors.New("confirmation token not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeTokenNotFound)

// ErrConfirmationExpired is returned for unconsumed tokens past ExpiresAt.
var ErrConfirmationExpired = goerrors.New("confirmation token has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired)

// ErrConfirmationAlreadyUsed is returned once ConfirmedAt has been set. It
// takes precedence over expiry: a consumed token stays "used" forever.
var ErrConfirmationAlreadyUsed = goerrors.New("email already confirmed", goerrors.CategoryConflict).
	WithTextCode(TextCodeTokenAlreadyUsed)

// ErrAccountDisabled blocks login until the account's email is confirmed.
var ErrAccountDisabled = goerrors.New("account has not been confirmed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeAccountDisabled)

// ErrUserNotFound is surfaced only on flows where the identity is already
// known (confirm, lookup); login failures normalize to
// ErrInvalidCredentials instead.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrImmutableClaimMutation is returned at signing time when a registered
// claims decorator touched anything beyond the metadata extension.
var ErrImmutableClaimMutation = goerrors.New("claims decorator mutated an immutable claim", goerrors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim)

// ErrNoEmptyString rejects empty passwords before bcrypt sees them.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is the typed replacement for bcrypt's
// mismatch error.
var ErrMismatchedHashAndPassword = goerrors.New("hashed password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// IsInvalidRefreshToken reports whether err carries the coalesced
// refresh-token failure.
func IsInvalidRefreshToken(err error) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == TextCodeInvalidRefreshToken
	}
	return false
}

// wrapStoreErr marks collaborator failures as infrastructure problems so
// they are never mistaken for an authorization verdict.
func wrapStoreErr(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
