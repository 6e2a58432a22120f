package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// Ensure AuthService implements the interface.
var _ driving.AuthService = (*AuthService)(nil)

// minPasswordLength matches the identity provider's default policy.
const minPasswordLength = 6

// AuthService signs users in through an identity provider and remembers
// the identity on this machine.
type AuthService struct {
	provider driven.IdentityProvider
	store    driven.IdentityStore
	now      func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(provider driven.IdentityProvider, store driven.IdentityStore) *AuthService {
	return &AuthService{provider: provider, store: store, now: time.Now}
}

func validateCredentials(email, password string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email address is required", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return domain.ErrWeakPassword
	}
	return nil
}

// SignUp registers a user. When the provider signs the user in at once
// the identity is remembered; otherwise email confirmation is pending.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return domain.Identity{}, err
	}

	identity, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return domain.Identity{}, err
	}
	if identity.AccessToken != "" {
		if err := s.store.Save(identity); err != nil {
			return identity, fmt.Errorf("save identity: %w", err)
		}
	}
	return identity, nil
}

// SignIn authenticates and remembers the identity.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return domain.Identity{}, err
	}
	if err := s.store.Save(identity); err != nil {
		return identity, fmt.Errorf("save identity: %w", err)
	}
	logger.FromContext(ctx).Debug("signed in", zap.String("user_id", identity.UserID))
	return identity, nil
}

// SignOut revokes the token and forgets the identity. The local identity
// is cleared even when revocation fails.
func (s *AuthService) SignOut(ctx context.Context) error {
	identity, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if identity.AccessToken != "" {
		if err := s.provider.SignOut(ctx, identity.AccessToken); err != nil {
			logger.FromContext(ctx).Warn("token revocation failed", zap.Error(err))
		}
	}
	return s.store.Clear()
}

// Current returns the remembered identity. A missing or expired one
// fails with domain.ErrAuthRequired.
func (s *AuthService) Current(_ context.Context) (domain.Identity, error) {
	identity, err := s.store.Load()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("load identity: %w", err)
	}
	if identity.IsZero() || identity.Expired(s.now()) {
		return domain.Identity{}, domain.ErrAuthRequired
	}
	return identity, nil
}

// Verify resolves a bearer token.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (domain.Identity, error) {
	return s.provider.Verify(ctx, accessToken)
}
