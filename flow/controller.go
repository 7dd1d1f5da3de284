// Package flow orchestrates the OAuth2 authorization code flow against a
// Cognito user pool: it issues the authorization redirect, owns the CSRF
// state for the in-flight attempt, and on callback drives the code exchange,
// key set fetch and id_token verification that produce a trusted Identity.
package flow

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mdillavou/ueberauth-cognito/config"
	"github.com/mdillavou/ueberauth-cognito/idtoken"
	"github.com/mdillavou/ueberauth-cognito/jwks"
	"github.com/mdillavou/ueberauth-cognito/token"
	"golang.org/x/oauth2"
)

// SessionStore is the opaque per-session storage the controller uses for
// CSRF state. Implementations must isolate values per session key; different
// users' flows never contend. Read returns "" (and no error) when nothing is
// stored under the key.
type SessionStore interface {
	Store(ctx context.Context, key string, value string) error
	Read(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Exchanger exchanges an authorization code for a token bundle.
type Exchanger interface {
	Exchange(ctx context.Context, c *config.Config, code string, redirectURI string) (*token.Bundle, error)
}

// KeySetFetcher retrieves the pool's current signing key set.
type KeySetFetcher interface {
	Fetch(ctx context.Context, c *config.Config) (*jwks.KeySet, error)
}

// IdentityVerifier proves an id_token authentic and returns its claims.
type IdentityVerifier interface {
	Verify(raw string, ks *jwks.KeySet, c *config.Config) (idtoken.Claims, error)
}

// Credentials are derived from a token bundle; they are not authoritative.
// ExpiresAt is epoch seconds and only meaningful when HasExpiry is true: an
// absent expires_in stays absent rather than becoming zero.
type Credentials struct {
	AccessToken  token.AccessToken
	RefreshToken token.RefreshToken
	ExpiresAt    int64
	HasExpiry    bool
}

// Identity is the result of a completed, verified flow.
type Identity struct {
	// Username is the verified subject, from the cognito:username claim
	// (falling back to username, then sub).
	Username string

	Credentials Credentials

	// Claims is the full claims set of the verified id_token.
	Claims idtoken.Claims
}

// Controller drives one user's login attempt from BeginAuth through
// CompleteAuth. Flow instances are independent; the controller keeps no
// mutable state of its own and a single Controller may serve concurrent
// flows.
type Controller struct {
	config      *config.Config
	store       SessionStore
	redirectURI string

	scopes    []string
	logger    hclog.Logger
	exchanger Exchanger
	fetcher   KeySetFetcher
	verifier  IdentityVerifier
	nowFunc   func() time.Time
}

// New creates a Controller for the given pool configuration, redirect URI
// and session store. Supported options: WithLogger, WithScopes,
// WithExchanger, WithKeySetFetcher, WithVerifier, WithNow.
func New(c *config.Config, redirectURI string, store SessionStore, opt ...Option) (*Controller, error) {
	const op = "flow.New"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	if redirectURI == "" {
		return nil, fmt.Errorf("%s: redirect URI is empty: %w", op, ErrInvalidParameter)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, ErrNilParameter)
	}
	opts := getControllerOpts(opt...)
	return &Controller{
		config:      c,
		store:       store,
		redirectURI: redirectURI,
		scopes:      opts.withScopes,
		logger:      opts.withLogger,
		exchanger:   opts.withExchanger,
		fetcher:     opts.withFetcher,
		verifier:    opts.withVerifier,
		nowFunc:     opts.withNowFunc,
	}, nil
}

// BeginAuth generates a fresh CSRF state, stores it against the session, and
// returns the authorization URL the user should be redirected to.
func (c *Controller) BeginAuth(ctx context.Context, sessionID string) (string, error) {
	const op = "flow.Controller.BeginAuth"
	if sessionID == "" {
		return "", fmt.Errorf("%s: session id is empty: %w", op, ErrInvalidParameter)
	}
	state, err := NewState()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := c.store.Store(ctx, stateKey(sessionID), state); err != nil {
		return "", fmt.Errorf("%s: unable to store state: %w", op, err)
	}
	oauth2Config := oauth2.Config{
		ClientID:    c.config.ClientID,
		RedirectURL: c.redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL: c.config.AuthorizeURL(),
		},
		Scopes: c.scopes,
	}
	c.logger.Debug("authorization redirect issued", "op", op)
	return oauth2Config.AuthCodeURL(state), nil
}

// CompleteAuth handles the provider's callback for the given session. It
// validates the CSRF state, exchanges the authorization code, fetches the
// pool's current key set, verifies the id_token, and assembles the verified
// Identity. The stored state is consumed by the first callback regardless of
// outcome, so repeating a callback fails with ErrStateMismatch. Every error
// is terminal for this flow attempt.
func (c *Controller) CompleteAuth(ctx context.Context, sessionID string, params url.Values) (*Identity, error) {
	const op = "flow.Controller.CompleteAuth"
	if sessionID == "" {
		return nil, fmt.Errorf("%s: session id is empty: %w", op, ErrInvalidParameter)
	}

	reqState := params.Get("state")
	if reqState == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingState)
	}
	stored, err := c.store.Read(ctx, stateKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read stored state: %w", op, err)
	}
	// single use: the stored state is consumed by this callback no matter
	// how the comparison turns out
	if err := c.store.Delete(ctx, stateKey(sessionID)); err != nil {
		c.logger.Error("unable to delete stored state", "op", op, "error", err)
	}
	if stored == "" || stored != reqState {
		return nil, fmt.Errorf("%s: %w", op, ErrStateMismatch)
	}

	code := params.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCode)
	}

	bundle, err := c.exchanger.Exchange(ctx, c.config, code, c.redirectURI)
	if err != nil {
		c.logger.Error("token exchange failed", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %s", op, ErrTokenExchangeFailed, err)
	}
	keySet, err := c.fetcher.Fetch(ctx, c.config)
	if err != nil {
		c.logger.Error("key set fetch failed", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %s", op, ErrKeySetFetchFailed, err)
	}
	claims, err := c.verifier.Verify(string(bundle.IDToken), keySet, c.config)
	if err != nil {
		c.logger.Error("id_token rejected", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidIDToken)
	}

	ident := &Identity{
		Username:    claims.Subject(),
		Credentials: c.newCredentials(bundle),
		Claims:      claims,
	}
	c.logger.Debug("authentication completed", "op", op, "username", ident.Username)
	return ident, nil
}

// Cleanup removes any flow material still stored for the session. It is
// lifecycle hygiene, not security: it only prevents stale reuse.
func (c *Controller) Cleanup(ctx context.Context, sessionID string) error {
	const op = "flow.Controller.Cleanup"
	if sessionID == "" {
		return fmt.Errorf("%s: session id is empty: %w", op, ErrInvalidParameter)
	}
	if err := c.store.Delete(ctx, stateKey(sessionID)); err != nil {
		return fmt.Errorf("%s: unable to delete stored state: %w", op, err)
	}
	return nil
}

// newCredentials derives Credentials from a bundle. Expiry is epoch seconds
// computed from a single clock; when the provider omitted expires_in the
// absence is kept explicit.
func (c *Controller) newCredentials(b *token.Bundle) Credentials {
	creds := Credentials{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
	}
	if b.ExpiresIn != nil {
		creds.ExpiresAt = c.nowFunc().Unix() + *b.ExpiresIn
		creds.HasExpiry = true
	}
	return creds
}
