package flow

import (
	"errors"
)

// The error kinds CompleteAuth can return. Every error is terminal for the
// current flow attempt; the application should present a failure and let the
// user restart the flow.
var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrNilParameter        = errors.New("nil parameter")
	ErrMissingState        = errors.New("callback is missing the state parameter")
	ErrStateMismatch       = errors.New("callback state does not match the stored state")
	ErrMissingCode         = errors.New("callback is missing the authorization code")
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	ErrKeySetFetchFailed   = errors.New("key set fetch failed")
	ErrInvalidIDToken      = errors.New("id_token is invalid")
)
