package cognitotest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/mdillavou/ueberauth-cognito/jwks"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// TestGenerateRSAKey will generate a test RSA 2048 key pair.
func TestGenerateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	require := require.New(t)
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)
	return k
}

// TestSignRS256 will bundle the provided claims into a test RS256-signed JWT.
func TestSignRS256(t *testing.T, key *rsa.PrivateKey, keyID string, claims map[string]interface{}) string {
	t.Helper()
	require := require.New(t)

	sig, err := jose.NewSigner(
		jose.SigningKey{
			Algorithm: jose.RS256,
			Key:       jose.JSONWebKey{Key: key, KeyID: keyID, Algorithm: string(jose.RS256)},
		},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(err)

	raw, err := jwt.Signed(sig).Claims(claims).CompactSerialize()
	require.NoError(err)
	return raw
}

// TestSignES256 will bundle the provided claims into a test JWT signed with
// an ephemeral ES256 key, for exercising algorithm pinning.
func TestSignES256(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	require := require.New(t)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(err)

	raw, err := jwt.Signed(sig).Claims(claims).CompactSerialize()
	require.NoError(err)
	return raw
}

// TestKeySet builds a published key set from the given keys' public halves,
// preserving order.
func TestKeySet(t *testing.T, keys ...*rsa.PrivateKey) *jwks.KeySet {
	t.Helper()
	ks := &jwks.KeySet{}
	for i, k := range keys {
		ks.Keys = append(ks.Keys, jose.JSONWebKey{
			Key:       k.Public(),
			KeyID:     testKeyID(i),
			Algorithm: string(jose.RS256),
			Use:       "sig",
		})
	}
	return ks
}
