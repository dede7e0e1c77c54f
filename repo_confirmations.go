package authkit

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ConfirmationsRepository implements ConfirmationStore using Bun. Rows are
// append-then-update-once: the only mutation ever issued is the guarded
// confirmed_at update.
type ConfirmationsRepository struct {
	db *bun.DB
}

var _ ConfirmationStore = (*ConfirmationsRepository)(nil)

// NewConfirmationsRepository creates a new repository.
func NewConfirmationsRepository(db *bun.DB) *ConfirmationsRepository {
	return &ConfirmationsRepository{db: db}
}

// Create implements ConfirmationStore.
func (r *ConfirmationsRepository) Create(ctx context.Context, token *ConfirmationToken) (*ConfirmationToken, error) {
	_, err := r.db.NewInsert().
		Model(token).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return token, nil
}

// FindByToken implements ConfirmationStore. The User relation is loaded so
// the confirm flow can enable the bound account.
func (r *ConfirmationsRepository) FindByToken(ctx context.Context, token string) (*ConfirmationToken, error) {
	record := &ConfirmationToken{}
	err := r.db.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, goerrors.New("confirmation token not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithMetadata(map[string]any{
					"token": token,
				})
		}
		return nil, err
	}

	return record, nil
}

// MarkConfirmed implements ConfirmationStore. The IS NULL guard makes the
// transition single-shot even under concurrent confirms.
func (r *ConfirmationsRepository) MarkConfirmed(ctx context.Context, token string, at time.Time) error {
	res, err := r.db.NewUpdate().
		Model((*ConfirmationToken)(nil)).
		Set("confirmed_at = ?", at).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.confirmed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConfirmationAlreadyUsed
	}

	return nil
}
