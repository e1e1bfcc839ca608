// Package transport performs API calls: it builds URLs, attaches the access token, classifies
// responses and parses successful bodies against the caller's schema.
//
// A 403 on a call that allows retry triggers exactly one token refresh through the Authenticator
// followed by one replay of the original request with retry disabled.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dealerdesk/dealerdesk.go/internal/codec"
	"github.com/dealerdesk/dealerdesk.go/internal/rand"
	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/logger"
	"github.com/dealerdesk/dealerdesk.go/pkg/metrics"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
)

// Authenticator supplies access tokens and recovers from rejected ones.
type Authenticator interface {
	// AccessToken is the current access token, empty when signed out.
	AccessToken() string
	// Refresh replaces the access token. stale is the token that was rejected; implementations may
	// skip the network call when the current token already differs from it.
	Refresh(ctx context.Context, stale string) error
	// Expire ends the session after the API reported it as unauthenticated.
	Expire(ctx context.Context)
}

type Params struct {
	BaseURL    string
	APIPattern string
	HTTPClient *http.Client
	Logger     logger.Logger
	Metrics    *metrics.Metrics
	// OnDrop observes elements discarded by tolerant list parsing.
	OnDrop func(path string, drop schema.Drop)
}

type Transport struct {
	baseURL    string
	pattern    string
	httpClient *http.Client
	log        logger.Logger
	metrics    *metrics.Metrics
	onDrop     func(path string, drop schema.Drop)
	marshaler  codec.Marshaler

	mu   sync.RWMutex
	auth Authenticator
}

func New(p Params) *Transport {
	c := &Transport{
		baseURL:    p.BaseURL,
		pattern:    p.APIPattern,
		httpClient: p.HTTPClient,
		log:        logger.OrNop(p.Logger),
		metrics:    p.Metrics,
		onDrop:     p.OnDrop,
		marshaler:  codec.Default,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		}
	}
	return c
}

func (c *Transport) SetAuthenticator(a Authenticator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = a
}

func (c *Transport) authenticator() Authenticator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

func (c *Transport) SetHTTPClient(client *http.Client) *Transport {
	c.httpClient = client
	return c
}

func (c *Transport) Logger() logger.Logger {
	return c.log
}

// Do sends the request described by method, path and opts and parses a 2xx body against shape.
// shape may be nil when the response body is irrelevant.
func (c *Transport) Do(ctx context.Context, method, path string, shape schema.Shape, opts ...Option) (*Response, error) {
	return c.Execute(ctx, NewRequest(method, path, shape, opts...))
}

// Execute sends req. The request's Raw body is buffered so that it can be replayed.
func (c *Transport) Execute(ctx context.Context, req *Request) (*Response, error) {
	var raw []byte
	if req.Raw != nil {
		var err error
		raw, err = io.ReadAll(req.Raw)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}
	return c.execute(ctx, req, raw)
}

func (c *Transport) execute(ctx context.Context, req *Request, raw []byte) (*Response, error) {
	target, err := c.BuildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	auth := c.authenticator()
	token := ""
	if !req.Anonymous {
		token = req.AccessToken
		if token == "" && auth != nil {
			token = auth.AccessToken()
		}
	}

	status, header, body, err := c.roundTrip(ctx, req, target, token, raw)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status < 300:
		value, err := c.parse(req, body)
		if err != nil {
			c.log.Warn("response failed validation", "method", req.Method, "url", target, "error", err)
			return nil, err
		}
		return &Response{StatusCode: status, Header: header, Body: body, Value: value}, nil
	case status == http.StatusForbidden && req.Retry && !req.Anonymous && auth != nil:
		c.log.Info("access token rejected, refreshing", "method", req.Method, "url", target)
		if err := auth.Refresh(ctx, token); err != nil {
			return nil, err
		}
		replay := *req
		replay.Retry = false
		replay.AccessToken = ""
		return c.execute(ctx, &replay, raw)
	case status == http.StatusUnauthorized && !req.Anonymous && auth != nil:
		c.log.Warn("session is no longer valid", "method", req.Method, "url", target)
		auth.Expire(ctx)
	}

	return nil, &RequestError{
		Method:     req.Method,
		URL:        target,
		StatusCode: status,
		Body:       string(body),
	}
}

func (c *Transport) roundTrip(ctx context.Context, req *Request, target, token string, raw []byte) (int, http.Header, []byte, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var (
		reader      io.Reader = http.NoBody
		contentType string
	)
	switch {
	case raw != nil:
		reader = bytes.NewReader(raw)
		contentType = req.ContentType
	case req.Body != nil:
		data, err := c.marshaler.Marshal(req.Body)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = constants.MIMEApplicationJSON
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	requestID := rand.NewRequestID(constants.RequestIDLength)
	httpReq.Header.Set(constants.HeaderAccept, constants.MIMEApplicationJSON)
	httpReq.Header.Set(constants.HeaderRequestID, requestID)
	if contentType != "" {
		httpReq.Header.Set(constants.HeaderContentType, contentType)
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	start := time.Now()
	status, header, body, err := c.MakeRequest(httpReq)
	c.metrics.ObserveRequest(req.Method, status, time.Since(start))
	c.log.Debug("api request", "method", req.Method, "url", target, "status", status, "request_id", requestID,
		"elapsed", time.Since(start).String())
	return status, header, body, err
}

// MakeRequest sends an already built request and reads the whole body.
func (c *Transport) MakeRequest(req *http.Request) (int, http.Header, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return 0, nil, nil, ctxErr
		}
		return 0, nil, nil, &RequestError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, err
	}
	return resp.StatusCode, resp.Header, respBytes, nil
}

func (c *Transport) parse(req *Request, body []byte) (any, error) {
	body = bytes.TrimSpace(body)
	shape := req.Schema
	if shape == nil {
		if len(body) == 0 {
			return nil, nil
		}
		shape = schema.Any{}
	}
	// An empty body is checked as null.
	return schema.ParseJSON(shape, body, schema.WithDropHandler(func(d schema.Drop) {
		c.log.Warn("dropped list element", "path", req.Path, "index", d.Index, "error", d.Err)
		c.metrics.ObserveDrop(req.Path)
		if c.onDrop != nil {
			c.onDrop(req.Path, d)
		}
	}))
}

// Send performs a call and converts the parsed body into T.
func Send[T any](ctx context.Context, c *Transport, method, path string, shape schema.Shape, opts ...Option) (T, error) {
	var zero T
	resp, err := c.Do(ctx, method, path, shape, opts...)
	if err != nil {
		return zero, err
	}
	return schema.As[T](resp.Value)
}
