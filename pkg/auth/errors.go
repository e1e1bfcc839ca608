package auth

import (
	"fmt"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
)

// AuthError reports a rejected login or refresh. Err is the underlying cause.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + e.Op + " failed"
	}
	return fmt.Sprintf("auth: %s failed: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	return target == constants.ErrAuth
}

// TokenFormatError reports a token whose payload cannot be decoded or does not match its shape.
type TokenFormatError struct {
	Reason string
	Err    error
}

func (e *TokenFormatError) Error() string {
	if e.Err == nil {
		return "token format: " + e.Reason
	}
	return fmt.Sprintf("token format: %s: %v", e.Reason, e.Err)
}

func (e *TokenFormatError) Unwrap() error {
	return e.Err
}

func (e *TokenFormatError) Is(target error) bool {
	return target == constants.ErrTokenFormat
}
