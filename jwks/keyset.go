// Package jwks retrieves a Cognito user pool's published JSON Web Key Set,
// which supplies the signing keys used to verify id_tokens. The set is
// fetched fresh for each verification: key rotation correctness outranks the
// round-trip cost, so no caching is attempted.
package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mdillavou/ueberauth-cognito/config"
	"gopkg.in/square/go-jose.v2"
)

var ErrFetchFailed = errors.New("key set fetch failed")

// KeySet is the provider's current signing keys, in published order.
type KeySet struct {
	Keys []jose.JSONWebKey `json:"keys"`
}

// Fetcher retrieves a user pool's current KeySet over HTTP.
type Fetcher struct{}

// Fetch issues a GET to the pool's JWKS endpoint (see config.JWKSURL).
// Success is exactly HTTP 200 with a parseable key list; any other outcome
// is an ErrFetchFailed. The http client carried by the context (see
// config.HTTPClientContext) is used when present.
func (Fetcher) Fetch(ctx context.Context, c *config.Config) (*KeySet, error) {
	const op = "jwks.Fetcher.Fetch"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, config.ErrNilParameter)
	}
	client, err := c.HTTPClientFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.JWKSURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: endpoint returned %d", op, ErrFetchFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: unable to read response: %s", op, ErrFetchFailed, err)
	}
	var ks KeySet
	if err := json.Unmarshal(body, &ks); err != nil {
		return nil, fmt.Errorf("%s: %w: malformed key set: %s", op, ErrFetchFailed, err)
	}
	return &ks, nil
}
