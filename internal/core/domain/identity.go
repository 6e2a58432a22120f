package domain

import "time"

// LocalUserID is the tenant used when no identity provider is configured.
const LocalUserID = "local"

// Identity is an authenticated user as returned by an identity provider.
type Identity struct {
	UserID       string    `toml:"user_id" json:"user_id"`
	Email        string    `toml:"email" json:"email"`
	AccessToken  string    `toml:"access_token" json:"-"`
	RefreshToken string    `toml:"refresh_token" json:"-"`
	ExpiresAt    time.Time `toml:"expires_at" json:"expires_at"`
}

// IsZero reports whether no user is signed in.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// Expired reports whether the access token has expired.
// A zero ExpiresAt never expires.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}
