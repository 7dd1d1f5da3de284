package config

import (
	"fmt"
)

// Value supplies a single configuration attribute. It is either a literal
// string or a deferred computation evaluated once at resolution time, which
// lets secrets be fetched from a secret store rather than stored as literals.
type Value struct {
	literal string
	fn      func() (string, error)
}

// Literal returns a Value holding the given string.
func Literal(s string) Value {
	return Value{literal: s}
}

// Deferred returns a Value whose string is computed by fn at resolution time.
func Deferred(fn func() (string, error)) Value {
	return Value{fn: fn}
}

// Resolve evaluates the Value. Resolving a deferred Value invokes the
// supplied computation; a computation that fails surfaces as an
// ErrResolveFailed, which is fatal for the flow since it cannot proceed
// without complete configuration.
func (v Value) Resolve() (string, error) {
	const op = "config.Value.Resolve"
	if v.fn == nil {
		return v.literal, nil
	}
	s, err := v.fn()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", op, ErrResolveFailed, err)
	}
	return s, nil
}
