package authkit

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ConfirmationManager owns the short-lived email-confirmation workflow:
// issue, lookup, and a single irreversible confirm transition. It never
// enables the user account itself; that is a distinct directory call
// triggered by the caller on success, so enablement failures cannot
// corrupt confirmation-token state.
type ConfirmationManager struct {
	store  ConfirmationStore
	ttl    time.Duration
	logger Logger
	now    func() time.Time
}

// NewConfirmationManager creates a manager with the configured TTL.
func NewConfirmationManager(store ConfirmationStore, config Config) *ConfirmationManager {
	return &ConfirmationManager{
		store:  store,
		ttl:    config.confirmationTTL(),
		logger: defLogger{},
		now:    time.Now,
	}
}

func (m *ConfirmationManager) WithLogger(logger Logger) *ConfirmationManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock overrides the time source, primarily for tests.
func (m *ConfirmationManager) WithClock(now func() time.Time) *ConfirmationManager {
	if now != nil {
		m.now = now
	}
	return m
}

// Issue generates a fresh random token bound to the user, valid for the
// configured TTL from now.
func (m *ConfirmationManager) Issue(ctx context.Context, userID uuid.UUID) (*ConfirmationToken, error) {
	now := m.now()

	token := &ConfirmationToken{
		ID:        uuid.New(),
		Token:     uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	created, err := m.store.Create(ctx, token)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to persist confirmation token")
	}

	return created, nil
}

// Lookup finds a confirmation token by its external reference string.
func (m *ConfirmationManager) Lookup(ctx context.Context, token string) (*ConfirmationToken, error) {
	record, err := m.store.FindByToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrConfirmationNotFound
		}
		return nil, wrapStoreErr(err, "failed to look up confirmation token")
	}

	return record, nil
}

// Confirm runs the ordered checks and performs the one allowed mutation.
// Already-consumed takes precedence over expiry: a confirmed token keeps
// reporting ErrConfirmationAlreadyUsed even after its natural expiry has
// passed, since consumption is the more specific, auditable fact.
func (m *ConfirmationManager) Confirm(ctx context.Context, token string) (*ConfirmationToken, error) {
	record, err := m.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	if record.Consumed() {
		return nil, ErrConfirmationAlreadyUsed
	}

	now := m.now()
	if record.ExpiredAt(now) {
		return nil, ErrConfirmationExpired
	}

	if err := m.store.MarkConfirmed(ctx, token, now); err != nil {
		return nil, wrapStoreErr(err, "failed to mark confirmation token as used")
	}

	record.ConfirmedAt = &now
	return record, nil
}
