package idtoken_test

import (
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/mdillavou/ueberauth-cognito/cognitotest"
	"github.com/mdillavou/ueberauth-cognito/config"
	"github.com/mdillavou/ueberauth-cognito/idtoken"
	"github.com/mdillavou/ueberauth-cognito/jwks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "test-client-id"
	testIssuer   = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_testpool"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c, err := config.New(
		config.Literal("auth.example.com"),
		config.Literal(testClientID),
		config.Literal("test-client-secret"),
		config.Literal("us-east-1_testpool"),
		config.Literal("us-east-1"),
	)
	require.NoError(t, err)
	return c
}

// testClaims returns a claims set that passes every check when verified at
// testNow.
func testClaims(overrides map[string]interface{}) map[string]interface{} {
	claims := map[string]interface{}{
		"iss":              testIssuer,
		"aud":              testClientID,
		"exp":              testNow.Add(1 * time.Hour).Unix(),
		"iat":              testNow.Unix(),
		"sub":              "0f4b7e44-test-subject",
		"token_use":        "id",
		"cognito:username": "alice",
	}
	for k, v := range overrides {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return claims
}

var testNow = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	key := cognitotest.TestGenerateRSAKey(t)
	keySet := cognitotest.TestKeySet(t, key)
	verifier := idtoken.New(idtoken.WithNow(func() time.Time { return testNow }))

	sign := func(t *testing.T, k *rsa.PrivateKey, overrides map[string]interface{}) string {
		t.Helper()
		return cognitotest.TestSignRS256(t, k, "test-key-0", testClaims(overrides))
	}

	t.Run("valid-id-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		claims, err := verifier.Verify(sign(t, key, nil), keySet, cfg)
		require.NoError(err)
		// the full claims set comes back, not just the validated fields
		assert.Equal("alice", claims["cognito:username"])
		assert.Equal("alice", claims.Subject())
		assert.Equal(testClientID, claims["aud"])
		assert.Equal(testIssuer, claims["iss"])
	})
	t.Run("valid-access-token-use", func(t *testing.T) {
		require := require.New(t)
		_, err := verifier.Verify(sign(t, key, map[string]interface{}{"token_use": "access"}), keySet, cfg)
		require.NoError(err)
	})

	failing := []struct {
		name      string
		overrides map[string]interface{}
	}{
		{"expired", map[string]interface{}{"exp": testNow.Add(-1 * time.Hour).Unix()}},
		{"expiring-exactly-now-is-rejected", map[string]interface{}{"exp": testNow.Unix()}},
		{"exp-missing", map[string]interface{}{"exp": nil}},
		{"exp-not-a-number", map[string]interface{}{"exp": "tomorrow"}},
		{"aud-mismatch", map[string]interface{}{"aud": "another-client"}},
		{"aud-list-is-rejected", map[string]interface{}{"aud": []string{testClientID}}},
		{"aud-missing", map[string]interface{}{"aud": nil}},
		{"iss-mismatch", map[string]interface{}{"iss": "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_otherpool"}},
		{"iss-missing", map[string]interface{}{"iss": nil}},
		{"token-use-invalid", map[string]interface{}{"token_use": "refresh"}},
		{"token-use-missing", map[string]interface{}{"token_use": nil}},
	}
	for _, tt := range failing {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			claims, err := verifier.Verify(sign(t, key, tt.overrides), keySet, cfg)
			require.Error(err)
			assert.True(errors.Is(err, idtoken.ErrInvalidToken))
			assert.Nil(claims)
		})
	}

	t.Run("exp-one-second-ahead-passes", func(t *testing.T) {
		require := require.New(t)
		_, err := verifier.Verify(sign(t, key, map[string]interface{}{"exp": testNow.Add(1 * time.Second).Unix()}), keySet, cfg)
		require.NoError(err)
	})
	t.Run("signed-by-key-absent-from-set", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		stranger := cognitotest.TestGenerateRSAKey(t)
		_, err := verifier.Verify(sign(t, stranger, nil), keySet, cfg)
		require.Error(err)
		assert.True(errors.Is(err, idtoken.ErrInvalidToken))
	})
	t.Run("alg-other-than-rs256-is-rejected", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		raw := cognitotest.TestSignES256(t, testClaims(nil))
		_, err := verifier.Verify(raw, keySet, cfg)
		require.Error(err)
		assert.True(errors.Is(err, idtoken.ErrInvalidToken))
	})
	t.Run("malformed-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := verifier.Verify("not.a.jwt", keySet, cfg)
		require.Error(err)
		assert.True(errors.Is(err, idtoken.ErrInvalidToken))
	})
	t.Run("empty-key-set", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := verifier.Verify(sign(t, key, nil), &jwks.KeySet{}, cfg)
		require.Error(err)
		assert.True(errors.Is(err, idtoken.ErrInvalidToken))
	})
	t.Run("nil-key-set", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := verifier.Verify(sign(t, key, nil), nil, cfg)
		require.Error(err)
		assert.True(errors.Is(err, idtoken.ErrInvalidToken))
	})
	t.Run("nil-config", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := verifier.Verify(sign(t, key, nil), keySet, nil)
		require.Error(err)
		assert.True(errors.Is(err, idtoken.ErrInvalidToken))
	})
}

// TestVerifier_KeySearch covers the first-success key search: a set of three
// keys where the token was signed with the second must still verify.
func TestVerifier_KeySearch(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	cfg := testConfig(t)
	verifier := idtoken.New(idtoken.WithNow(func() time.Time { return testNow }))

	k0 := cognitotest.TestGenerateRSAKey(t)
	k1 := cognitotest.TestGenerateRSAKey(t)
	k2 := cognitotest.TestGenerateRSAKey(t)
	keySet := cognitotest.TestKeySet(t, k0, k1, k2)

	raw := cognitotest.TestSignRS256(t, k1, "test-key-1", testClaims(nil))
	claims, err := verifier.Verify(raw, keySet, cfg)
	require.NoError(err)
	assert.Equal("alice", claims.Subject())
}

func TestClaims_Subject(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		claims idtoken.Claims
		want   string
	}{
		{
			name:   "cognito-username",
			claims: idtoken.Claims{"cognito:username": "alice", "username": "bob", "sub": "carol"},
			want:   "alice",
		},
		{
			name:   "username-fallback",
			claims: idtoken.Claims{"username": "bob", "sub": "carol"},
			want:   "bob",
		},
		{
			name:   "sub-fallback",
			claims: idtoken.Claims{"sub": "carol"},
			want:   "carol",
		},
		{
			name:   "no-identity-claim",
			claims: idtoken.Claims{"email": "alice@example.com"},
			want:   "",
		},
		{
			name:   "non-string-ignored",
			claims: idtoken.Claims{"cognito:username": 42, "sub": "carol"},
			want:   "carol",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.claims.Subject())
		})
	}
}
