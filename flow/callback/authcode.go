// Package callback binds a flow.Controller to net/http, handling the
// provider's authorization code callback.
package callback

import (
	"context"
	"net/http"

	"github.com/mdillavou/ueberauth-cognito/flow"
)

// AuthCode creates an authorization code callback handler which resolves the
// caller's session via sessionFn and delegates to the controller's
// CompleteAuth.
//
// The SuccessResponseFunc is used to create a response when the callback is
// successful. The ErrorResponseFunc is used to create a response when the
// callback fails, including when the provider itself reported an error via
// the callback's error parameter.
func AuthCode(ctx context.Context, c *flow.Controller, sessionFn SessionIDFunc, sFn SuccessResponseFunc, eFn ErrorResponseFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if c == nil || sessionFn == nil {
			eFn(nil, flow.ErrNilParameter, w, req)
			return
		}

		// get parameters from either the body or query parameters.
		// FormValue prioritizes body values, if found
		if errCode := req.FormValue("error"); errCode != "" {
			reqError := &AuthenErrorResponse{
				Error:       errCode,
				Description: req.FormValue("error_description"),
				Uri:         req.FormValue("error_uri"),
			}
			eFn(reqError, nil, w, req)
			return
		}

		if err := req.ParseForm(); err != nil {
			eFn(nil, err, w, req)
			return
		}
		ident, err := c.CompleteAuth(ctx, sessionFn(req), req.Form)
		if err != nil {
			eFn(nil, err, w, req)
			return
		}
		sFn(ident, w, req)
	}
}
