package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edvin/eventrelay/internal/api/response"
	"github.com/edvin/eventrelay/internal/model"
	"github.com/edvin/eventrelay/internal/platform"
)

const (
	msgMissingCode    = "Authorization code not found in the request"
	msgInvalidState   = "OAuth state does not match a login started here"
	msgAlreadyStarted = "Event relay workflow already started"
	msgExchangeFailed = "Error retrieving access token"
	msgAuthenticated  = "Successfully authenticated with Salesforce. Please close this window and return to the terminal."
)

// Authorizer runs the OAuth authorization code flow against Salesforce.
type Authorizer interface {
	LoginURL(state string) string
	Exchange(ctx context.Context, code string) (model.CredentialPair, error)
}

// Auth serves the browser side of the token bootstrap. The first successful
// callback hands its token pair to the workflow; later ones are refused.
type Auth struct {
	oauth  Authorizer
	logger zerolog.Logger
	out    chan<- model.CredentialPair

	mu      sync.Mutex
	states  map[string]struct{}
	started bool
}

// NewAuth sends the obtained credentials on out, which must have room for one
// value.
func NewAuth(logger zerolog.Logger, oauth Authorizer, out chan<- model.CredentialPair) *Auth {
	return &Auth{
		oauth:  oauth,
		logger: logger.With().Str("component", "auth-bootstrap").Logger(),
		out:    out,
		states: make(map[string]struct{}),
	}
}

// Login redirects to the Salesforce authorize endpoint.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	state := platform.NewStateToken()

	h.mu.Lock()
	h.states[state] = struct{}{}
	h.mu.Unlock()

	http.Redirect(w, r, h.oauth.LoginURL(state), http.StatusFound)
}

// Callback exchanges the authorization code for a token pair.
func (h *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		h.logger.Error().Msg("no authorization code in the request, authenticate again via /login")
		response.WriteError(w, http.StatusBadRequest, msgMissingCode)
		return
	}

	if status, msg := h.claim(q.Get("state")); status != 0 {
		h.logger.Warn().Int("status", status).Msg(msg)
		response.WriteError(w, status, msg)
		return
	}

	h.logger.Info().Msg("exchanging authorization code for access token")
	creds, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("token exchange failed")
		h.release()
		response.WriteError(w, http.StatusInternalServerError, msgExchangeFailed)
		return
	}

	select {
	case h.out <- creds:
	default:
		h.logger.Warn().Msg("credential handoff already pending")
	}
	h.logger.Info().Msg("access token and refresh token received")
	response.WriteText(w, http.StatusOK, msgAuthenticated)
}

// claim reserves the single workflow start for a callback carrying a state
// issued by Login. It returns a non-zero status when the callback is refused.
func (h *Auth) claim(state string) (int, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return http.StatusConflict, msgAlreadyStarted
	}
	if _, ok := h.states[state]; !ok {
		return http.StatusBadRequest, msgInvalidState
	}
	delete(h.states, state)
	h.started = true
	return 0, ""
}

// release undoes claim after a failed exchange so the user can log in again.
func (h *Auth) release() {
	h.mu.Lock()
	h.started = false
	h.mu.Unlock()
}
