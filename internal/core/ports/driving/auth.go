package driving

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// AuthService signs users in and tracks the current identity.
type AuthService interface {
	// SignUp registers and, when the provider returns a token, signs in.
	SignUp(ctx context.Context, email, password string) (domain.Identity, error)

	// SignIn authenticates and remembers the identity.
	SignIn(ctx context.Context, email, password string) (domain.Identity, error)

	// SignOut revokes and forgets the current identity.
	SignOut(ctx context.Context) error

	// Current returns the remembered identity or domain.ErrAuthRequired.
	Current(ctx context.Context) (domain.Identity, error)

	// Verify resolves a bearer token for server requests.
	Verify(ctx context.Context, accessToken string) (domain.Identity, error)
}
