// Package cognitotest provides a local stand-in for a Cognito user pool
// which makes writing tests against the authorization code flow much easier.
// Much of its shape follows the test-provider approach used by HashiCorp's
// cap library.
package cognitotest

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mdillavou/ueberauth-cognito/config"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
)

// TestProvider is a local TLS server with Cognito-shaped endpoints: the
// pool's JWKS document, /oauth2/authorize and /oauth2/token.
type TestProvider struct {
	t          *testing.T
	httpServer *httptest.Server
	caCert     string

	region string
	poolID string

	mu                  sync.Mutex
	clientID            string
	clientSecret        string
	allowedRedirectURIs []string
	expectedAuthCode    string
	customClaims        map[string]interface{}
	replyExpiresIn      int64
	omitExpiresIn       bool
	omitIDToken         bool
	omitRefreshToken    bool
	jwksReplyStatus     int
	jwksReplyInvalid    bool
	tokenReplyStatus    int
	signingKeys         []*rsa.PrivateKey
	signerIndex         int
}

// StartTestProvider creates a disposable TestProvider with a single RS256
// signing key. The server is closed via t.Cleanup.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		t:                   t,
		region:              "us-east-1",
		poolID:              "us-east-1_testpool",
		clientID:            "test-client-id",
		clientSecret:        "test-client-secret",
		allowedRedirectURIs: []string{"https://example.com/callback"},
		replyExpiresIn:      3600,
		signingKeys:         []*rsa.PrivateKey{TestGenerateRSAKey(t)},
	}

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()
	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop the test provider's server.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running
// webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// IssuerURL returns the test pool's issuer URL.
func (p *TestProvider) IssuerURL() string { return p.Addr() + "/" + p.poolID }

// ClientID returns the provider's expected relying party client id.
func (p *TestProvider) ClientID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID
}

// Config returns a pool configuration pointed at the test provider,
// including its CA certificate and endpoint overrides.
func (p *TestProvider) Config(t *testing.T) *config.Config {
	t.Helper()
	require := require.New(t)
	p.mu.Lock()
	defer p.mu.Unlock()
	c, err := config.New(
		config.Literal(strings.TrimPrefix(p.Addr(), "https://")),
		config.Literal(p.clientID),
		config.Literal(p.clientSecret),
		config.Literal(p.poolID),
		config.Literal(p.region),
		config.WithProviderCA(p.caCert),
		config.WithIssuerURL(p.Addr()+"/"+p.poolID),
		config.WithAuthBase(p.Addr()),
	)
	require.NoError(err)
	return c
}

// SetClientCreds configures the client information required for the flow.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the authorization code the token endpoint
// will accept.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetAllowedRedirectURIs configures the redirect URIs the provider accepts.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetCustomClaims configures claims merged into (and overriding) the default
// id_token claims.
func (p *TestProvider) SetCustomClaims(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = claims
}

// SetReplyExpiresIn configures the expires_in value (seconds) of token
// responses.
func (p *TestProvider) SetReplyExpiresIn(seconds int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyExpiresIn = seconds
}

// OmitExpiresIn makes token responses omit the expires_in field.
func (p *TestProvider) OmitExpiresIn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitExpiresIn = true
}

// OmitIDTokens makes token responses omit the id_token field.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitRefreshTokens makes token responses omit the refresh_token field.
func (p *TestProvider) OmitRefreshTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRefreshToken = true
}

// SetJWKSReplyStatus makes the JWKS endpoint reply with the given status
// instead of the key set. A zero status restores normal replies.
func (p *TestProvider) SetJWKSReplyStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jwksReplyStatus = status
}

// InvalidateJWKSReply makes the JWKS endpoint reply with a body that is not
// a key set.
func (p *TestProvider) InvalidateJWKSReply() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jwksReplyInvalid = true
}

// SetTokenReplyStatus makes the token endpoint reply with the given status.
// A zero status restores normal replies.
func (p *TestProvider) SetTokenReplyStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenReplyStatus = status
}

// AddSigningKeys appends n freshly generated RS256 keys to the published key
// set.
func (p *TestProvider) AddSigningKeys(n int) {
	keys := make([]*rsa.PrivateKey, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, TestGenerateRSAKey(p.t))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signingKeys = append(p.signingKeys, keys...)
}

// SetSignerIndex selects which published key signs issued id_tokens.
func (p *TestProvider) SetSignerIndex(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	require.Less(p.t, i, len(p.signingKeys))
	p.signerIndex = i
}

// SignIDToken mints an id_token signed by the provider's selected key. The
// defaults form a valid token for the provider's issuer and client id;
// overrides are merged on top, and an override with a nil value removes the
// claim.
func (p *TestProvider) SignIDToken(t *testing.T, overrides map[string]interface{}) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signIDTokenLocked(t, overrides)
}

func (p *TestProvider) signIDTokenLocked(t *testing.T, overrides map[string]interface{}) string {
	t.Helper()
	now := time.Now()
	claims := map[string]interface{}{
		"iss":              p.Addr() + "/" + p.poolID,
		"aud":              p.clientID,
		"exp":              now.Add(1 * time.Hour).Unix(),
		"iat":              now.Unix(),
		"sub":              "0f4b7e44-test-subject",
		"token_use":        "id",
		"cognito:username": "alice",
		"email":            "alice@example.com",
	}
	for k, v := range p.customClaims {
		claims[k] = v
	}
	for k, v := range overrides {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	i := p.signerIndex
	return TestSignRS256(t, p.signingKeys[i], testKeyID(i), claims)
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()

	redirectURI := qv.Get("redirect_uri") +
		"?state=" + url.QueryEscape(qv.Get("state")) +
		"&error=" + url.QueryEscape(errorCode)
	if errorMessage != "" {
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}
	http.Redirect(w, req, redirectURI, http.StatusFound)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.t.Helper()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/" + p.poolID + "/.well-known/jwks.json":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.jwksReplyStatus != 0 && p.jwksReplyStatus != http.StatusOK {
			w.WriteHeader(p.jwksReplyStatus)
			return
		}
		if p.jwksReplyInvalid {
			_, _ = w.Write([]byte("It's not a key set!"))
			return
		}
		keySet := jose.JSONWebKeySet{}
		for i, k := range p.signingKeys {
			keySet.Keys = append(keySet.Keys, jose.JSONWebKey{
				Key:       k.Public(),
				KeyID:     testKeyID(i),
				Algorithm: string(jose.RS256),
				Use:       "sig",
			})
		}
		if err := p.writeJSON(w, &keySet); err != nil {
			return
		}

	case "/oauth2/authorize":
		if req.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		if qv.Get("response_type") != "code" {
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		}
		if qv.Get("client_id") != p.clientID {
			p.writeAuthErrorResponse(w, req, "unauthorized_client", "")
			return
		}
		if qv.Get("state") == "" {
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
			return
		}
		redirectURI := qv.Get("redirect_uri")
		if !strListContains(p.allowedRedirectURIs, redirectURI) {
			p.writeAuthErrorResponse(w, req, "invalid_request", "redirect_uri is not allowed")
			return
		}
		if p.expectedAuthCode == "" {
			p.writeAuthErrorResponse(w, req, "access_denied", "")
			return
		}
		redirectURI += "?state=" + url.QueryEscape(qv.Get("state")) +
			"&code=" + url.QueryEscape(p.expectedAuthCode)
		http.Redirect(w, req, redirectURI, http.StatusFound)

	case "/oauth2/token":
		if req.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.tokenReplyStatus != 0 && p.tokenReplyStatus != http.StatusOK {
			_ = p.writeTokenErrorResponse(w, p.tokenReplyStatus, "server_error", "")
			return
		}
		user, pass, ok := req.BasicAuth()
		if !ok || user != p.clientID || pass != p.clientSecret {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "bad basic authentication")
			return
		}
		switch {
		case req.FormValue("grant_type") != "authorization_code":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
			return
		case !strListContains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case req.FormValue("code") != p.expectedAuthCode:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected auth code")
			return
		}

		reply := map[string]interface{}{
			"access_token": fmt.Sprintf("test-access-token-%d", time.Now().UnixNano()),
			"token_type":   "Bearer",
		}
		if !p.omitIDToken {
			reply["id_token"] = p.signIDTokenLocked(p.t, nil)
		}
		if !p.omitRefreshToken {
			reply["refresh_token"] = "test-refresh-token"
		}
		if !p.omitExpiresIn {
			reply["expires_in"] = p.replyExpiresIn
		}
		if err := p.writeJSON(w, reply); err != nil {
			return
		}

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func testKeyID(i int) string {
	return fmt.Sprintf("test-key-%d", i)
}

func strListContains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
