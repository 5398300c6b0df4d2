// Package auth checks the shared token carried in a channel frame's auth
// block.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator checks the raw auth block of one request.
type Validator interface {
	Validate(token []byte) error
}

// StaticToken accepts exactly one shared token. An empty Token accepts
// nothing.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token []byte) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), token) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// FuncValidator adapts a function into a Validator.
type FuncValidator func(token []byte) error

func (f FuncValidator) Validate(token []byte) error {
	return f(token)
}

// ForToken returns the validator a listener should apply for a configured
// token, or nil when the channel is unauthenticated.
func ForToken(token string) Validator {
	if token == "" {
		return nil
	}
	return StaticToken{Token: token}
}
