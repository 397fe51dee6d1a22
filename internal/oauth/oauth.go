package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/edvin/eventrelay/internal/config"
	"github.com/edvin/eventrelay/internal/model"
)

// Scopes requested from Salesforce: API access plus a refresh token.
var Scopes = []string{"refresh_token", "api", "id"}

// NewConfig builds the oauth2 client configuration for the Salesforce
// connected app. Client credentials travel in the form body.
func NewConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthTokenEndpoint,
			TokenURL:  cfg.AccessTokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Bootstrap runs the authorization-code half of the flow.
type Bootstrap struct {
	oauth      *oauth2.Config
	httpClient *http.Client
}

func NewBootstrap(oc *oauth2.Config, timeout time.Duration) *Bootstrap {
	return &Bootstrap{oauth: oc, httpClient: &http.Client{Timeout: timeout}}
}

// LoginURL is the Salesforce authorize URL the browser is redirected to.
func (b *Bootstrap) LoginURL(state string) string {
	return b.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for the token pair.
func (b *Bootstrap) Exchange(ctx context.Context, code string) (model.CredentialPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	tok, err := b.oauth.Exchange(ctx, code)
	if err != nil {
		return model.CredentialPair{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	return model.CredentialPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}

// Refresher mints a new access token from a refresh token. It never retries:
// a failed refresh aborts the calling operation.
type Refresher struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewRefresher(logger zerolog.Logger, oc *oauth2.Config, timeout time.Duration) *Refresher {
	return &Refresher{
		oauth:      oc,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "token-refresher").Logger(),
	}
}

// Refresh posts a refresh_token grant. The returned pair carries the new
// access token and the refresh token to use from now on, which is the input
// token unless the server rotated it.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (model.CredentialPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	tok, err := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			r.logger.Error().Int("status", re.Response.StatusCode).Str("error_code", re.ErrorCode).Msg("refresh rejected")
		}
		return model.CredentialPair{}, &model.AuthRefreshError{Cause: err}
	}
	if tok.AccessToken == "" {
		return model.CredentialPair{}, &model.AuthRefreshError{}
	}

	pair := model.CredentialPair{AccessToken: tok.AccessToken, RefreshToken: refreshToken}
	if tok.RefreshToken != "" {
		pair.RefreshToken = tok.RefreshToken
	}
	r.logger.Info().Msg("access token refreshed")
	return pair, nil
}
