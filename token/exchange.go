// Package token exchanges an authorization code for the user pool's token
// bundle. The id_token it returns is opaque until verified (see the idtoken
// package).
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mdillavou/ueberauth-cognito/config"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrExchangeFailed   = errors.New("authorization code exchange failed")
	ErrMissingIDToken   = errors.New("id_token is missing")
)

// AccessToken is an oauth access_token.
type AccessToken string

// RedactedAccessToken is the redacted string or json for an access_token.
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token.
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token.
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token.
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for a refresh_token.
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token.
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token.
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

// IDToken is an oidc id_token, unverified and untrusted until the idtoken
// package has proven it against a fetched key set.
type IDToken string

// RedactedIDToken is the redacted string or json for an id_token.
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token.
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token.
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// Bundle is a successful token endpoint response. ExpiresIn is nil when the
// provider omitted expires_in; absence is explicit, never defaulted to zero.
type Bundle struct {
	AccessToken  AccessToken
	IDToken      IDToken
	RefreshToken RefreshToken
	ExpiresIn    *int64
}

// Exchanger exchanges an authorization code for a Bundle.
type Exchanger struct{}

// Exchange issues a POST to the pool's token endpoint with
// grant_type=authorization_code, the code, the client id and the redirect
// URI, form-encoded, authenticated with HTTP Basic (client id and secret).
// Success is exactly HTTP 200 with a JSON body carrying access and id
// tokens; anything else is terminal for the flow attempt — no retry. The
// http client carried by the context (see config.HTTPClientContext) is used
// when present.
func (Exchanger) Exchange(ctx context.Context, c *config.Config, code string, redirectURI string) (*Bundle, error) {
	const op = "token.Exchanger.Exchange"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, config.ErrNilParameter)
	}
	if code == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	if redirectURI == "" {
		return nil, fmt.Errorf("%s: redirect URI is empty: %w", op, ErrInvalidParameter)
	}
	client, err := c.HTTPClientFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"client_id":    {c.ClientID},
		"redirect_uri": {redirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.SetBasicAuth(c.ClientID, string(c.ClientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrExchangeFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: endpoint returned %d", op, ErrExchangeFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: unable to read response: %s", op, ErrExchangeFailed, err)
	}
	var reply struct {
		AccessToken  string `json:"access_token"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    *int64 `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("%s: %w: malformed response body: %s", op, ErrExchangeFailed, err)
	}
	if reply.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w: access_token is missing from response", op, ErrExchangeFailed)
	}
	if reply.IDToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIDToken)
	}
	return &Bundle{
		AccessToken:  AccessToken(reply.AccessToken),
		IDToken:      IDToken(reply.IDToken),
		RefreshToken: RefreshToken(reply.RefreshToken),
		ExpiresIn:    reply.ExpiresIn,
	}, nil
}
