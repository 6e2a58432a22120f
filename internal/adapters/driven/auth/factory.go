// Package auth provides identity providers: a GoTrue (Supabase Auth)
// client and an offline single-user provider.
package auth

import (
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// Settings selects the identity provider.
type Settings struct {
	// URL is the project base URL. Empty selects the local provider.
	URL string

	// APIKey is the project's anon key.
	APIKey string
}

// IsRemote reports whether a remote provider is configured.
func (s Settings) IsRemote() bool {
	return s.URL != ""
}

// NewIdentityProvider returns a GoTrue client when a URL is configured and
// the local provider otherwise.
func NewIdentityProvider(settings Settings, httpOpts ...httpclient.Option) driven.IdentityProvider {
	if !settings.IsRemote() {
		return NewLocalProvider()
	}
	return NewGoTrueProvider(settings.URL, settings.APIKey, httpOpts...)
}
