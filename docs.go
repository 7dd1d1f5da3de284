// cognito provides the client side of the OAuth2 authorization code flow
// against an AWS Cognito user pool: it builds the authorization redirect,
// owns the CSRF state binding a request to its callback, exchanges the
// returned code for tokens, and cryptographically verifies the id_token
// before trusting any claim inside it.
//
// The packages, leaf first:
//
//	config     resolves pool parameters (literal or deferred values) into an
//	           immutable configuration record
//	jwks       fetches the pool's published signing key set
//	token      exchanges an authorization code for a token bundle
//	idtoken    verifies a token bundle's id_token against the key set
//	flow       orchestrates the end-to-end flow and owns CSRF state
//	flow/callback  binds a flow.Controller to net/http
//	cognitotest    a local stand-in for a user pool, for tests
package cognito
