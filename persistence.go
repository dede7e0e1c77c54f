package authkit

import (
	"github.com/goliatone/go-persistence-bun"
)

// RegisterModels registers the package models with go-persistence-bun so
// applications bootstrapping through it pick up table metadata, fixtures,
// and migrations for the auth schema.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Session)(nil))
	persistence.RegisterModel((*ConfirmationToken)(nil))
}
