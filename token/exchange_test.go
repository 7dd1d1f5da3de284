package token_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mdillavou/ueberauth-cognito/cognitotest"
	"github.com/mdillavou/ueberauth-cognito/config"
	"github.com/mdillavou/ueberauth-cognito/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedirectURI = "https://example.com/callback"

func TestExchanger_Exchange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := cognitotest.StartTestProvider(t)
		tp.SetExpectedAuthCode("test-code")

		b, err := token.Exchanger{}.Exchange(ctx, tp.Config(t), "test-code", testRedirectURI)
		require.NoError(err)
		assert.NotEmpty(b.AccessToken)
		assert.NotEmpty(b.IDToken)
		assert.Equal(token.RefreshToken("test-refresh-token"), b.RefreshToken)
		require.NotNil(b.ExpiresIn)
		assert.Equal(int64(3600), *b.ExpiresIn)
	})
	t.Run("expires-in-absent", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := cognitotest.StartTestProvider(t)
		tp.SetExpectedAuthCode("test-code")
		tp.OmitExpiresIn()

		b, err := token.Exchanger{}.Exchange(ctx, tp.Config(t), "test-code", testRedirectURI)
		require.NoError(err)
		assert.Nil(b.ExpiresIn)
	})
	t.Run("wrong-code", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := cognitotest.StartTestProvider(t)
		tp.SetExpectedAuthCode("test-code")

		_, err := token.Exchanger{}.Exchange(ctx, tp.Config(t), "other-code", testRedirectURI)
		require.Error(err)
		assert.True(errors.Is(err, token.ErrExchangeFailed))
	})
	t.Run("bad-client-secret", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := cognitotest.StartTestProvider(t)
		tp.SetExpectedAuthCode("test-code")
		cfg := tp.Config(t)
		tp.SetClientCreds("test-client-id", "rotated-away")

		_, err := token.Exchanger{}.Exchange(ctx, cfg, "test-code", testRedirectURI)
		require.Error(err)
		assert.True(errors.Is(err, token.ErrExchangeFailed))
	})
	t.Run("non-200", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := cognitotest.StartTestProvider(t)
		tp.SetExpectedAuthCode("test-code")
		tp.SetTokenReplyStatus(http.StatusBadGateway)

		_, err := token.Exchanger{}.Exchange(ctx, tp.Config(t), "test-code", testRedirectURI)
		require.Error(err)
		assert.True(errors.Is(err, token.ErrExchangeFailed))
	})
	t.Run("missing-id-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := cognitotest.StartTestProvider(t)
		tp.SetExpectedAuthCode("test-code")
		tp.OmitIDTokens()

		_, err := token.Exchanger{}.Exchange(ctx, tp.Config(t), "test-code", testRedirectURI)
		require.Error(err)
		assert.True(errors.Is(err, token.ErrMissingIDToken))
	})
	t.Run("malformed-body", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte("It's not JSON!"))
		}))
		t.Cleanup(srv.Close)

		_, err := token.Exchanger{}.Exchange(ctx, testConfig(t, srv.URL), "test-code", testRedirectURI)
		require.Error(err)
		assert.True(errors.Is(err, token.ErrExchangeFailed))
	})
	t.Run("missing-params", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := cognitotest.StartTestProvider(t)
		cfg := tp.Config(t)

		_, err := token.Exchanger{}.Exchange(ctx, cfg, "", testRedirectURI)
		require.Error(err)
		assert.True(errors.Is(err, token.ErrInvalidParameter))

		_, err = token.Exchanger{}.Exchange(ctx, cfg, "test-code", "")
		require.Error(err)
		assert.True(errors.Is(err, token.ErrInvalidParameter))

		_, err = token.Exchanger{}.Exchange(ctx, nil, "test-code", testRedirectURI)
		require.Error(err)
		assert.True(errors.Is(err, config.ErrNilParameter))
	})
}

// TestExchanger_WireFormat pins down the request the exchanger sends: POST,
// form-encoded, basic auth, and the four required body fields.
func TestExchanger_WireFormat(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)

	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.NoError(req.ParseForm())
		got = req
		_, _ = w.Write([]byte(`{"access_token":"at","id_token":"it","refresh_token":"rt","expires_in":300}`))
	}))
	t.Cleanup(srv.Close)

	b, err := token.Exchanger{}.Exchange(context.Background(), testConfig(t, srv.URL), "test-code", testRedirectURI)
	require.NoError(err)
	assert.Equal(token.AccessToken("at"), b.AccessToken)
	assert.Equal(token.IDToken("it"), b.IDToken)

	require.NotNil(got)
	assert.Equal(http.MethodPost, got.Method)
	assert.Equal("/oauth2/token", got.URL.Path)
	assert.Equal("application/x-www-form-urlencoded", got.Header.Get("Content-Type"))
	user, pass, ok := got.BasicAuth()
	require.True(ok)
	assert.Equal("test-client-id", user)
	assert.Equal("test-client-secret", pass)
	assert.Equal("authorization_code", got.PostForm.Get("grant_type"))
	assert.Equal("test-code", got.PostForm.Get("code"))
	assert.Equal("test-client-id", got.PostForm.Get("client_id"))
	assert.Equal(testRedirectURI, got.PostForm.Get("redirect_uri"))
}

func TestBundle_Redaction(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	b := token.Bundle{
		AccessToken:  "secret-access",
		IDToken:      "secret-id",
		RefreshToken: "secret-refresh",
	}
	assert.Equal(token.RedactedAccessToken, b.AccessToken.String())
	assert.Equal(token.RedactedIDToken, b.IDToken.String())
	assert.Equal(token.RedactedRefreshToken, b.RefreshToken.String())

	got, err := json.Marshal(b)
	require.NoError(err)
	assert.NotContains(string(got), "secret-access")
	assert.NotContains(string(got), "secret-id")
	assert.NotContains(string(got), "secret-refresh")
}

func testConfig(t *testing.T, authBase string) *config.Config {
	t.Helper()
	c, err := config.New(
		config.Literal("auth.example.com"),
		config.Literal("test-client-id"),
		config.Literal("test-client-secret"),
		config.Literal("us-east-1_testpool"),
		config.Literal("us-east-1"),
		config.WithAuthBase(authBase),
	)
	require.NoError(t, err)
	return c
}
