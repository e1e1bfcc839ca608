package constants

import "time"

const (
	RequestIDLength = 16

	DefaultHTTPTimeout = 30 * time.Second
	DefaultDummyDelay  = 100 * time.Millisecond

	DefaultTokenPath       = "token"
	DefaultRefreshPath     = "token/refresh"
	DefaultPermissionsPath = "permissions"
	DefaultLoginURL        = "/login"

	DefaultPageSize = 20

	SessionCookieName = "auth"
	SessionVersion    = 1
)

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"

	MIMEApplicationJSON = "application/json"
)

const (
	HTTPScheme       = "http"
	HTTPSecureScheme = "https"
)
