package auth

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

// Ensure LocalProvider implements the IdentityProvider interface.
var _ driven.IdentityProvider = (*LocalProvider)(nil)

// LocalProvider is the offline single-user identity. Every credential
// and every token resolves to domain.LocalUserID.
type LocalProvider struct{}

// NewLocalProvider creates the offline identity provider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func localIdentity(email string) domain.Identity {
	return domain.Identity{UserID: domain.LocalUserID, Email: email, AccessToken: domain.LocalUserID}
}

// SignUp returns the local identity.
func (p *LocalProvider) SignUp(_ context.Context, email, _ string) (domain.Identity, error) {
	return localIdentity(email), nil
}

// SignIn returns the local identity.
func (p *LocalProvider) SignIn(_ context.Context, email, _ string) (domain.Identity, error) {
	return localIdentity(email), nil
}

// SignOut does nothing.
func (p *LocalProvider) SignOut(_ context.Context, _ string) error {
	return nil
}

// Verify accepts any token.
func (p *LocalProvider) Verify(_ context.Context, _ string) (domain.Identity, error) {
	return localIdentity(""), nil
}
