package authkit

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var enableUserSQL = `UPDATE "users" AS "usr"
SET
	"enabled" = TRUE
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."email" = ?
) RETURNING *;`

// Users is the Bun-backed user directory.
type Users interface {
	repository.Repository[*User]

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Enable(ctx context.Context, email string) error
	EnableTx(ctx context.Context, tx bun.IDB, email string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ UserDirectory                = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository builds the directory on top of the generic repository.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", email).
		Exists(ctx)
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, userNotFound(email)
		}
		return nil, err
	}

	return record, nil
}

// userNotFound translates the repository's not-found into the package
// error taxonomy so callers can branch with goerrors.IsNotFound.
func userNotFound(email string) error {
	return goerrors.New("user not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{
			"email": email,
		})
}

func (a *users) Register(ctx context.Context, record *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, record)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *users) Enable(ctx context.Context, email string) error {
	return a.EnableTx(ctx, a.db, email)
}

func (a *users) EnableTx(ctx context.Context, tx bun.IDB, email string) error {
	res, err := a.Repository.RawTx(ctx, tx, enableUserSQL, email)
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return userNotFound(email)
	}

	return nil
}
