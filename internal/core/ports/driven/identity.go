package driven

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// IdentityProvider authenticates users. Failures are reported with the
// typed domain errors (ErrInvalidCredentials, ErrEmailAlreadyRegistered,
// ErrEmailNotConfirmed, ErrWeakPassword, ErrIdentityUnavailable) so
// callers never inspect error text.
type IdentityProvider interface {
	// SignUp registers a new user. Providers that require email
	// confirmation return an Identity without an access token.
	SignUp(ctx context.Context, email, password string) (domain.Identity, error)

	// SignIn exchanges credentials for an identity with an access token.
	SignIn(ctx context.Context, email, password string) (domain.Identity, error)

	// SignOut revokes the access token.
	SignOut(ctx context.Context, accessToken string) error

	// Verify resolves an access token to its identity.
	Verify(ctx context.Context, accessToken string) (domain.Identity, error)
}

// IdentityStore persists the signed-in identity on this machine.
type IdentityStore interface {
	// Load returns the saved identity, or a zero Identity when none is saved.
	Load() (domain.Identity, error)

	// Save replaces the saved identity.
	Save(identity domain.Identity) error

	// Clear removes the saved identity.
	Clear() error
}
