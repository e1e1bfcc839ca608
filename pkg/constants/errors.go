package constants

import "errors"

// Error taxonomy roots. Typed errors in other packages report one of these through Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrRequest       = errors.New("request error")
	ErrAuth          = errors.New("authentication error")
	ErrTokenFormat   = errors.New("token format error")
)

var (
	ErrNoBaseURL        = errors.New("base url not set")
	ErrNoAPIPattern     = errors.New("api pattern not set")
	ErrNoRefreshToken   = errors.New("no refresh token stored")
	ErrNoSession        = errors.New("no session stored")
	ErrIdentifierKind   = errors.New("identifier kind does not match resource")
	ErrDepthExceeded    = errors.New("mock generation exceeded maximum depth")
	ErrUnknownTransform = errors.New("unknown transform")
	ErrUnknownResource  = errors.New("unknown resource")
	ErrNotSupported     = errors.New("operation not supported by resource")
)
