package authkit

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionsRepository implements RefreshSessionStore using Bun. Deletes are
// single statements, so the store inherits the database's linearizable
// delete-by-id semantics; deleting a row that is already gone simply
// affects zero rows.
type SessionsRepository struct {
	db *bun.DB
}

var _ RefreshSessionStore = (*SessionsRepository)(nil)

// NewSessionsRepository creates a new repository.
func NewSessionsRepository(db *bun.DB) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// Save implements RefreshSessionStore.
func (r *SessionsRepository) Save(ctx context.Context, session *Session) (*Session, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	_, err := r.db.NewInsert().
		Model(session).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// ExistsByID implements RefreshSessionStore.
func (r *SessionsRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.db.NewSelect().
		Model((*Session)(nil)).
		Where("?TableAlias.id = ?", id).
		Exists(ctx)
}

// DeleteByID implements RefreshSessionStore.
func (r *SessionsRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

// DeleteAllByUserID implements RefreshSessionStore.
func (r *SessionsRepository) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}

// CountByUserID reports how many live sessions a user holds.
func (r *SessionsRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*Session)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Count(ctx)
}
