// Package idtoken proves an id_token authentic against a user pool's key
// set and validates the claims that determine whether it may be trusted.
//
// The verifier pins the signing algorithm to RS256 and derives the expected
// issuer and audience from trusted configuration, never from the token under
// test, which closes the two classic JWT verification vulnerabilities:
// algorithm confusion and issuer spoofing.
package idtoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mdillavou/ueberauth-cognito/config"
	"github.com/mdillavou/ueberauth-cognito/jwks"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// ErrInvalidToken is the only error kind Verify exposes. Callers are told a
// token was rejected, never why; the reason only appears in the wrapped
// message for operator logs.
var ErrInvalidToken = errors.New("invalid id_token")

// Claims are the key-value facts asserted inside a verified token. They are
// never produced from a payload whose signature has not been proven.
type Claims map[string]interface{}

// Subject returns the best available identity claim: cognito:username,
// falling back to username and then sub.
func (c Claims) Subject() string {
	for _, k := range []string{"cognito:username", "username", "sub"} {
		if v, ok := c[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Verifier verifies id_tokens against a fetched key set.
type Verifier struct {
	nowFunc func() time.Time
}

// New creates a Verifier. Supported options: WithNow.
func New(opt ...Option) *Verifier {
	opts := getVerifierOpts(opt...)
	return &Verifier{
		nowFunc: opts.withNowFunc,
	}
}

// now returns the verifier's notion of the current time.
func (v *Verifier) now() time.Time {
	if v.nowFunc != nil {
		return v.nowFunc()
	}
	return time.Now()
}

// Verify proves that raw was signed by a key in ks and that its claims allow
// it to be trusted for the configured client. On success it returns the full
// claims set, not just the validated fields, so callers may read identity
// claims like cognito:username.
//
// Verification is strict:
//   - the signature algorithm must be RS256, fixed by the verifier rather
//     than read from the token header and trusted
//   - each key in the set is tried in order and the first success wins; a
//     key that fails to verify is skipped, and exhausting the set without a
//     success is a failure
//   - aud must equal the configured client id exactly (no audience lists)
//   - exp must be strictly greater than the current epoch second
//   - iss must equal the issuer URL derived from the configuration
//   - token_use must be "id" or "access"
func (v *Verifier) Verify(raw string, ks *jwks.KeySet, c *config.Config) (Claims, error) {
	const op = "idtoken.Verifier.Verify"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrInvalidToken)
	}
	if ks == nil {
		return nil, fmt.Errorf("%s: key set is nil: %w", op, ErrInvalidToken)
	}
	parsed, err := jwt.ParseSigned(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: malformed token: %w", op, ErrInvalidToken)
	}
	for _, h := range parsed.Headers {
		if h.Algorithm != string(jose.RS256) {
			return nil, fmt.Errorf("%s: token alg %q is not %s: %w", op, h.Algorithm, jose.RS256, ErrInvalidToken)
		}
	}

	var claims Claims
	for _, key := range ks.Keys {
		candidate := Claims{}
		if err := parsed.Claims(key, &candidate); err == nil {
			claims = candidate
			break
		}
	}
	if claims == nil {
		return nil, fmt.Errorf("%s: no key in the set verified the signature: %w", op, ErrInvalidToken)
	}

	if aud, ok := claims["aud"].(string); !ok || aud != c.ClientID {
		return nil, fmt.Errorf("%s: aud claim does not match the client id: %w", op, ErrInvalidToken)
	}
	exp, ok := epochSeconds(claims["exp"])
	if !ok || exp <= v.now().Unix() {
		return nil, fmt.Errorf("%s: token is expired: %w", op, ErrInvalidToken)
	}
	if iss, ok := claims["iss"].(string); !ok || iss != c.IssuerURL() {
		return nil, fmt.Errorf("%s: iss claim does not match the configured issuer: %w", op, ErrInvalidToken)
	}
	switch claims["token_use"] {
	case "id", "access":
	default:
		return nil, fmt.Errorf("%s: token_use claim is not id or access: %w", op, ErrInvalidToken)
	}
	return claims, nil
}

// epochSeconds converts a decoded JSON numeric claim to epoch seconds.
func epochSeconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
