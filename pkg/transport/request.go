package transport

import (
	"io"
	"net/http"
	"time"

	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
)

// Request is one API call. Build it with Options.
type Request struct {
	Method string
	Path   string
	Schema schema.Shape
	Query  any
	Body   any
	// Raw is sent as is instead of JSON encoding Body.
	Raw         io.Reader
	ContentType string
	Header      http.Header
	Timeout     time.Duration
	// Retry allows one refresh-and-replay on 403.
	Retry bool
	// Anonymous requests carry no Authorization header and never trigger a refresh.
	Anonymous bool
	// AccessToken overrides the authenticator's current token.
	AccessToken string
}

type Option func(*Request)

func WithQuery(query any) Option {
	return func(r *Request) {
		r.Query = query
	}
}

func WithBody(body any) Option {
	return func(r *Request) {
		r.Body = body
	}
}

// WithRawBody sends body untouched, e.g. a multipart form.
func WithRawBody(body io.Reader, contentType string) Option {
	return func(r *Request) {
		r.Raw = body
		r.ContentType = contentType
	}
}

func WithHeader(key, value string) Option {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set(key, value)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Request) {
		r.Timeout = d
	}
}

func WithoutRetry() Option {
	return func(r *Request) {
		r.Retry = false
	}
}

func WithAccessToken(token string) Option {
	return func(r *Request) {
		r.AccessToken = token
	}
}

func Anonymous() Option {
	return func(r *Request) {
		r.Anonymous = true
		r.Retry = false
	}
}

func NewRequest(method, path string, shape schema.Shape, opts ...Option) *Request {
	r := &Request{
		Method: method,
		Path:   path,
		Schema: shape,
		Retry:  true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Response is a classified 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Value is the body parsed against the request schema, nil for an empty body.
	Value any
}
