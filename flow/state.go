package flow

import (
	"encoding/hex"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// stateEntropyBytes is the number of random bytes behind each CSRF state
// token.
const stateEntropyBytes = 32

// NewState generates a fresh opaque CSRF state token. The token binds an
// authorization request to its callback: it is stored against the in-flight
// session, compared byte for byte on callback, and discarded after a single
// callback regardless of outcome.
func NewState() (string, error) {
	const op = "flow.NewState"
	b, err := uuid.GenerateRandomBytes(stateEntropyBytes)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate state: %w", op, err)
	}
	return hex.EncodeToString(b), nil
}

// stateKey namespaces a session's stored CSRF state within the session
// store.
func stateKey(sessionID string) string {
	return "cognito.state:" + sessionID
}
