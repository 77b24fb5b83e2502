package ports

import (
	"context"

	"github.com/layer-3/captchauth/core"
)

// CredentialStore resolves identifiers to principals.
// Lookup returns core.ErrPrincipalNotFound when no principal exists.
type CredentialStore interface {
	Lookup(ctx context.Context, identifier string) (core.Principal, error)
}

// CredentialWriter manages stored principals
type CredentialWriter interface {
	Upsert(ctx context.Context, principal core.Principal) error
	Delete(ctx context.Context, identifier string) error
}
