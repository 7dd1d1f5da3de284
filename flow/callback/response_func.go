package callback

import (
	"net/http"

	"github.com/mdillavou/ueberauth-cognito/flow"
)

// SessionIDFunc resolves the session key for a callback request, typically
// from a session cookie. The returned key must identify the same session
// BeginAuth stored the CSRF state under.
type SessionIDFunc func(req *http.Request) string

// SuccessResponseFunc is used by AuthCode to create a http response when the
// callback is successful. The identity is the verified result of the
// completed flow. The function should use the http.ResponseWriter to send
// back whatever content (headers, html, JSON, etc) it wishes to the client
// that originated the flow.
type SuccessResponseFunc func(ident *flow.Identity, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by AuthCode to create a http response when the
// callback fails. It gets the provider's authentication error response
// and/or the callback error raised while processing the request. The
// callback error is classified by the flow package's error kinds
// (flow.ErrStateMismatch and friends), suitable for errors.Is.
type ErrorResponseFunc func(respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}
