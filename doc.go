// Package authkit owns the token lifecycle of a user-authentication
// service: signed access/refresh token issuance, refresh-token rotation,
// multi-device revocation, and the single-use email-confirmation flow used
// to activate new accounts.
//
// Tokens:
//   - Access tokens are short-lived, stateless JWTs signed with the access
//     key. They cannot be revoked before expiry, which is why their TTL is
//     kept short relative to refresh tokens.
//   - Refresh tokens are long-lived JWTs signed with a distinct refresh key
//     and bound to a persisted Session row through the "sid" claim. The row
//     is the source of truth: deleting it invalidates the token string even
//     while its signature and expiry remain valid.
//
// Lifecycle:
//   - SessionManager issues, validates, rotates, and revokes sessions. All
//     refresh-token validation failures surface as the single
//     ErrInvalidRefreshToken so callers cannot probe which check failed.
//   - ConfirmationManager drives the email-confirmation state machine:
//     issue, lookup, and a single irreversible confirm transition.
//   - Auther composes both with a UserDirectory, PasswordVerifier, and
//     EmailDispatcher into the register, login, logout, logout-all, refresh,
//     and confirm use cases.
//
// Storage is pluggable through small interfaces; Bun-backed implementations
// ship in repo_users.go, repo_sessions.go, and repo_confirmations.go.
package authkit
