package authkit

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if goerrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

// DirectoryVerifier checks passwords against the hashes held by the user
// directory. Missing user and wrong password both come back as
// ErrInvalidCredentials; directory failures stay infrastructure errors.
type DirectoryVerifier struct {
	users  UserDirectory
	logger Logger
}

var _ PasswordVerifier = (*DirectoryVerifier)(nil)

// NewDirectoryVerifier creates the default PasswordVerifier.
func NewDirectoryVerifier(users UserDirectory) *DirectoryVerifier {
	return &DirectoryVerifier{
		users:  users,
		logger: defLogger{},
	}
}

func (v *DirectoryVerifier) WithLogger(logger Logger) *DirectoryVerifier {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Authenticate implements the PasswordVerifier contract.
func (v *DirectoryVerifier) Authenticate(ctx context.Context, email, password string) error {
	user, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			v.logger.Debug("verifier found no user for %s", email)
			return ErrInvalidCredentials
		}
		return wrapStoreErr(err, "failed to load user for credential check")
	}
	if user == nil {
		return ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryAuth {
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "credential comparison failed")
	}

	return nil
}
