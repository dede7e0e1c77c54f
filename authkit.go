package authkit

import (
	"github.com/uptrace/bun"
)

// New assembles the full lifecycle on top of a Bun database: repositories,
// token codec, session and confirmation managers, bcrypt verifier, and the
// orchestrator. Callers that need custom stores or verifiers wire the
// pieces directly instead.
func New(db *bun.DB, config Config) (*Auther, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repos := NewRepositoryManager(db)

	codec := NewTokenCodec(config)
	sessions := NewSessionManager(codec, repos.Sessions(), repos.Users(), config)
	confirmations := NewConfirmationManager(repos.Confirmations(), config)
	verifier := NewDirectoryVerifier(repos.Users())

	return NewAuther(repos.Users(), sessions, confirmations, verifier), nil
}
