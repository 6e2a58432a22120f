package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// Ensure GoTrueProvider implements the IdentityProvider interface.
var _ driven.IdentityProvider = (*GoTrueProvider)(nil)

// authPath is where GoTrue is mounted behind the Supabase gateway.
const authPath = "/auth/v1"

// GoTrueProvider talks to a GoTrue REST API.
type GoTrueProvider struct {
	conn *httpclient.Connector
	now  func() time.Time
}

// NewGoTrueProvider creates a client for the project at baseURL.
func NewGoTrueProvider(baseURL, apiKey string, httpOpts ...httpclient.Option) *GoTrueProvider {
	opts := append([]httpclient.Option{httpclient.WithHeader("apikey", apiKey)}, httpOpts...)
	return &GoTrueProvider{
		conn: httpclient.New(strings.TrimRight(baseURL, "/")+authPath, opts...),
		now:  time.Now,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// session is the token response. Sign-up without auto-confirm returns
// the bare user instead, which decodes into the embedded fields.
type session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *user  `json:"user"`

	user
}

func (p *GoTrueProvider) identity(s session) domain.Identity {
	u := s.user
	if s.User != nil {
		u = *s.User
	}
	id := domain.Identity{
		UserID:       u.ID,
		Email:        u.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	if s.AccessToken != "" && s.ExpiresIn > 0 {
		id.ExpiresAt = p.now().Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return id
}

// SignUp registers a user. Projects requiring email confirmation return
// an identity without an access token.
func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string) (domain.Identity, error) {
	var resp session
	err := p.conn.DoJSON(ctx, http.MethodPost, "/signup", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return domain.Identity{}, mapError(err)
	}
	return p.identity(resp), nil
}

// SignIn exchanges a password for tokens.
func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	var resp session
	err := p.conn.DoJSON(ctx, http.MethodPost, "/token?grant_type=password", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return domain.Identity{}, mapError(err)
	}
	return p.identity(resp), nil
}

// SignOut revokes the access token.
func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	err := p.conn.DoJSON(ctx, http.MethodPost, "/logout", nil, nil,
		httpclient.WithRequestHeader("Authorization", "Bearer "+accessToken))
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Verify resolves an access token to its user.
func (p *GoTrueProvider) Verify(ctx context.Context, accessToken string) (domain.Identity, error) {
	if accessToken == "" {
		return domain.Identity{}, domain.ErrAuthRequired
	}

	var u user
	err := p.conn.DoJSON(ctx, http.MethodGet, "/user", nil, &u,
		httpclient.WithRequestHeader("Authorization", "Bearer "+accessToken))
	if err != nil {
		return domain.Identity{}, mapError(err)
	}
	return domain.Identity{UserID: u.ID, Email: u.Email, AccessToken: accessToken}, nil
}

// errorBody covers both error shapes GoTrue has used.
type errorBody struct {
	Code      string `json:"error_code"`
	Error     string `json:"error"`
	ErrorDesc string `json:"error_description"`
	Msg       string `json:"msg"`
}

// mapError converts a GoTrue failure into a typed domain error using the
// status code and error code.
func mapError(err error) error {
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		return fmt.Errorf("%w: %w", domain.ErrIdentityUnavailable, err)
	}

	var body errorBody
	_ = json.Unmarshal(httpErr.Body, &body)

	switch body.Code {
	case "invalid_credentials":
		return domain.ErrInvalidCredentials
	case "email_not_confirmed":
		return domain.ErrEmailNotConfirmed
	case "user_already_exists", "email_exists":
		return domain.ErrEmailAlreadyRegistered
	case "weak_password":
		return domain.ErrWeakPassword
	case "bad_jwt", "session_not_found", "no_authorization":
		return domain.ErrAuthRequired
	}

	switch {
	case httpErr.StatusCode == http.StatusBadRequest && body.Error == "invalid_grant":
		return domain.ErrInvalidCredentials
	case httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden:
		return domain.ErrAuthRequired
	case httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrIdentityUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
}
