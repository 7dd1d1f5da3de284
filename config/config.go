package config

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/oauth2"
)

var (
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrNilParameter          = errors.New("nil parameter")
	ErrResolveFailed         = errors.New("config value resolution failed")
	ErrInvalidCertificatePEM = errors.New("invalid certificate PEM")
)

// ClientSecret is a Cognito app client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for a client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (s ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (s ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration for an authorization code flow against
// a single Cognito user pool. A Config is immutable once resolved, before a
// flow begins.
type Config struct {
	// AuthDomain is the user pool's hosted auth domain (host only, no
	// scheme), which serves the /oauth2/authorize and /oauth2/token
	// endpoints.
	AuthDomain string

	// ClientID is the relying party's app client id.
	ClientID string

	// ClientSecret is the relying party's app client secret.
	ClientSecret ClientSecret

	// UserPoolID is the Cognito user pool id.
	UserPoolID string

	// Region is the AWS region hosting the user pool.
	Region string

	// ProviderCA is an optional CA cert PEM to use when sending requests to
	// the provider.
	ProviderCA string

	// issuerURL and authBase are test seams for pointing the client at a
	// local stand-in for the provider (see WithIssuerURL/WithAuthBase).
	issuerURL string
	authBase  string
}

// New resolves the given configuration values and validates the result.
// Supported options: WithProviderCA, WithIssuerURL, WithAuthBase.
func New(authDomain, clientID, clientSecret, userPoolID, region Value, opt ...Option) (*Config, error) {
	const op = "config.New"
	opts := getConfigOpts(opt...)
	c := &Config{
		ProviderCA: opts.withProviderCA,
		issuerURL:  opts.withIssuerURL,
		authBase:   opts.withAuthBase,
	}
	for _, v := range []struct {
		name string
		val  Value
		dst  func(string)
	}{
		{"auth domain", authDomain, func(s string) { c.AuthDomain = s }},
		{"client id", clientID, func(s string) { c.ClientID = s }},
		{"client secret", clientSecret, func(s string) { c.ClientSecret = ClientSecret(s) }},
		{"user pool id", userPoolID, func(s string) { c.UserPoolID = s }},
		{"region", region, func(s string) { c.Region = s }},
	} {
		resolved, err := v.val.Resolve()
		if err != nil {
			return nil, fmt.Errorf("%s: unable to resolve %s: %w", op, v.name, err)
		}
		v.dst(resolved)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid configuration: %w", op, err)
	}
	return c, nil
}

// Validate the configuration, reporting every missing attribute rather than
// just the first.
func (c *Config) Validate() error {
	const op = "config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.AuthDomain == "" {
		result = multierror.Append(result, fmt.Errorf("auth domain is empty: %w", ErrInvalidParameter))
	}
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("client secret is empty: %w", ErrInvalidParameter))
	}
	if c.UserPoolID == "" {
		result = multierror.Append(result, fmt.Errorf("user pool id is empty: %w", ErrInvalidParameter))
	}
	if c.Region == "" {
		result = multierror.Append(result, fmt.Errorf("region is empty: %w", ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

// IssuerURL returns the user pool's issuer URL. It is derived from the
// configured region and pool id, never from a token under verification.
func (c *Config) IssuerURL() string {
	if c.issuerURL != "" {
		return c.issuerURL
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// JWKSURL returns the user pool's published JSON Web Key Set endpoint.
func (c *Config) JWKSURL() string {
	return c.IssuerURL() + "/.well-known/jwks.json"
}

// AuthorizeURL returns the hosted authorization endpoint.
func (c *Config) AuthorizeURL() string {
	return c.authBaseURL() + "/oauth2/authorize"
}

// TokenURL returns the hosted token endpoint.
func (c *Config) TokenURL() string {
	return c.authBaseURL() + "/oauth2/token"
}

func (c *Config) authBaseURL() string {
	if c.authBase != "" {
		return c.authBase
	}
	return "https://" + c.AuthDomain
}

// HTTPClient creates a new http client for the provider which will use the
// configured ProviderCA if provided, otherwise the installed system CA chain.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "config.HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()
	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCertificatePEM)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}
	return &http.Client{
		Transport: tr,
	}, nil
}

// HTTPClientContext returns a new Context that carries the provided HTTP
// client. It sets the same context key used by the golang.org/x/oauth2
// package, so the returned context works for that package as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// HTTPClientFromContext returns the http client carried by the context (see
// HTTPClientContext), or a new client built from the config when the context
// carries none.
func (c *Config) HTTPClientFromContext(ctx context.Context) (*http.Client, error) {
	if client, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && client != nil {
		return client, nil
	}
	return c.HTTPClient()
}
