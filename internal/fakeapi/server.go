// Package fakeapi is an in-memory stand-in for the dealership back office API, used by tests.
//
// It signs token pairs, serves registered resources (listing, choices, pages, items) and can be
// told to misbehave: stubs answer chosen routes, and FailureConfig values add latency, error
// statuses, truncated bodies or dropped connections.
package fakeapi

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/dealerdesk/dealerdesk.go/internal/codec"
)

type FailureType string

const (
	FailureNone FailureType = "none"
	// FailureDelay sleeps between MinDelay and MaxDelay, then lets the request through.
	FailureDelay FailureType = "delay"
	// FailureStatus answers with FailureConfig.Status and an error body
	FailureStatus FailureType = "status"
	// FailureMalformedBody answers 200 with a body that is not JSON
	FailureMalformedBody FailureType = "malformed_body"
	// FailureDropConnection closes the underlying connection without answering
	FailureDropConnection FailureType = "drop_connection"
)

// RequestMatcher selects requests by method (empty for any) and path below the pattern.
type RequestMatcher struct {
	Method string
	// Path as in "vehicles/" or "token/refresh/".
	Path string
}

func (m RequestMatcher) matches(method, path string) bool {
	return (m.Method == "" || m.Method == method) && strings.Trim(m.Path, "/") == strings.Trim(path, "/")
}

// StubResponse answers matching requests in place of the resource handlers.
type StubResponse struct {
	Matcher RequestMatcher
	// Status is the status code to answer with, 200 when zero
	Status int
	// Body is encoded as JSON. A string is written as is.
	Body any
	// Failures are tried before the stub answers.
	Failures []FailureConfig
	// Times limits how often the stub answers, zero means always.
	Times int
}

// FailureConfig fires with Probability in [0, 1].
type FailureConfig struct {
	Type        FailureType
	Probability float64
	MinDelay    time.Duration
	MaxDelay    time.Duration
	// Status for FailureStatus, 500 when zero.
	Status int
}

// User is an account that can log in.
type User struct {
	Username string
	Password string
	Role     string
	ID       int64
}

// Server is a fake REST API with stub responses and failure injection.
type Server struct {
	pattern string
	secret  []byte

	// AccessTTL and RefreshTTL are the lifetimes of issued tokens.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// RotateRefresh makes the refresh endpoint return a new refresh token too.
	RotateRefresh bool

	mu             sync.RWMutex
	router         *mux.Router
	users          map[string]User
	permissions    map[string][]string
	resources      map[string]*resource
	stubResponses  []*StubResponse
	globalFailures []FailureConfig
	issued         map[string]string
	expired        map[string]bool
	rejectRefresh  bool
	refreshGate    chan struct{}
	hits           map[string]int

	listener net.Listener
	server   *http.Server
	addr     string

	marshaler   codec.Marshaler
	unmarshaler codec.Unmarshaler
}

// New creates a fake API served under /pattern/ that signs tokens with secret.
func New(pattern string, secret []byte) *Server {
	s := &Server{
		pattern:     strings.Trim(pattern, "/"),
		secret:      secret,
		AccessTTL:   5 * time.Minute,
		RefreshTTL:  24 * time.Hour,
		users:       make(map[string]User),
		permissions: make(map[string][]string),
		resources:   make(map[string]*resource),
		issued:      make(map[string]string),
		expired:     make(map[string]bool),
		hits:        make(map[string]int),
		marshaler:   codec.Default,
		unmarshaler: codec.Default,
	}
	s.router = s.buildRouter()
	return s
}

// Pattern is the API path prefix without slashes.
func (s *Server) Pattern() string {
	return s.pattern
}

// AddUser registers an account.
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Username] = u
}

// SetPermissions sets the permissions served for role.
func (s *Server) SetPermissions(role string, permissions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[role] = permissions
}

// AddStubResponse appends stub. The first matching stub that has answers left wins.
func (s *Server) AddStubResponse(stub StubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubResponses = append(s.stubResponses, &stub)
}

// FailNext answers the next n requests matching method and path with status.
func (s *Server) FailNext(method, path string, status, n int) {
	s.AddStubResponse(StubResponse{
		Matcher: RequestMatcher{Method: method, Path: path},
		Status:  status,
		Body:    map[string]string{"detail": http.StatusText(status)},
		Times:   n,
	})
}

// SetGlobalFailures replaces the failures tried on every request, ahead of any stub.
func (s *Server) SetGlobalFailures(failures []FailureConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalFailures = failures
}

// Hits returns how many requests reached method and path, e.g. Hits("POST", "token/refresh/").
func (s *Server) Hits(method, path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[hitKey(method, path)]
}

func hitKey(method, path string) string {
	return method + " " + strings.Trim(path, "/")
}

// ServeHTTP lets the server back an httptest.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	router := s.router
	s.mu.RUnlock()
	router.ServeHTTP(w, r)
}

// Start serves on addr in the background. "127.0.0.1:0" picks a free port.
func (s *Server) Start(addr string) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.addr = addr
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("fakeapi: serve: %v", err)
		}
	}()
	return nil
}

// Stop releases a blocked refresh and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.refreshGate != nil {
		close(s.refreshGate)
		s.refreshGate = nil
	}
	s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Address is the bound address once Start has run.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// buildRouter registers the fixed endpoints and one set of routes per resource, longest path
// first so that nested resources win over identifier routes.
func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/" + s.pattern).Subrouter()
	api.Use(s.count, s.inject)

	api.HandleFunc("/token/", s.handleObtain).Methods(http.MethodPost)
	api.HandleFunc("/token/refresh/", s.handleRefresh).Methods(http.MethodPost)
	api.Handle("/permissions/", s.authenticated(s.handlePermissions)).Methods(http.MethodGet)

	paths := make([]string, 0, len(s.resources))
	for p := range s.resources {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) > len(paths[j])
		}
		return paths[i] < paths[j]
	})
	for _, p := range paths {
		res := s.resources[p]
		api.Handle("/"+p+"/all/", s.authenticated(res.handleAll(s))).Methods(http.MethodGet)
		api.Handle("/"+p+"/choices/", s.authenticated(res.handleChoices(s))).Methods(http.MethodGet)
		api.Handle("/"+p+"/", s.authenticated(res.handlePage(s))).Methods(http.MethodGet)
		api.Handle("/"+p+"/", s.authenticated(res.handleCreate(s))).Methods(http.MethodPost)
		api.Handle("/"+p+"/{id}/", s.authenticated(res.handleItem(s))).
			Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	})
	return r
}

// apiPath is the request path below the pattern.
func (s *Server) apiPath(r *http.Request) string {
	return strings.Trim(strings.TrimPrefix(strings.Trim(r.URL.Path, "/"), s.pattern), "/")
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[hitKey(r.Method, s.apiPath(r))]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// inject applies global failures, then the first matching stub.
func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		globalFailures := s.globalFailures
		path := s.apiPath(r)
		var matchedStub *StubResponse
		for _, stub := range s.stubResponses {
			if stub.Matcher.matches(r.Method, path) && stub.Times >= 0 {
				matchedStub = stub
				if stub.Times > 0 {
					stub.Times--
					if stub.Times == 0 {
						stub.Times = -1
					}
				}
				break
			}
		}
		s.mu.Unlock()

		for _, failure := range globalFailures {
			if roll(failure.Probability) && s.applyFailure(w, failure) {
				return
			}
		}
		if matchedStub == nil {
			next.ServeHTTP(w, r)
			return
		}
		for _, failure := range matchedStub.Failures {
			if roll(failure.Probability) && s.applyFailure(w, failure) {
				return
			}
		}
		status := matchedStub.Status
		if status == 0 {
			status = http.StatusOK
		}
		s.writeJSON(w, status, matchedStub.Body)
	})
}

// applyFailure reports whether the response has been written.
func (s *Server) applyFailure(w http.ResponseWriter, failure FailureConfig) bool {
	switch failure.Type {
	case FailureDelay:
		time.Sleep(jitter(failure.MinDelay, failure.MaxDelay))
		return false
	case FailureStatus:
		status := failure.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		s.writeJSON(w, status, map[string]string{"detail": "failure injection"})
		return true
	case FailureMalformedBody:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results": [`))
		return true
	case FailureDropConnection:
		hj, ok := w.(http.Hijacker)
		if !ok {
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "cannot drop connection"})
			return true
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return true
	default:
		return false
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	if raw, ok := body.(string); ok {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(raw))
		return
	}
	data, err := s.marshaler.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return s.unmarshaler.NewDecoder(r.Body).Decode(v)
}

// roll reports true with probability p.
func roll(p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	default:
		return rand.Float64() < p //nolint:gosec // test fake
	}
}

// jitter picks a duration in [lo, hi).
func jitter(lo, hi time.Duration) time.Duration {
	if lo >= hi {
		return lo
	}
	return lo + rand.N(hi-lo) //nolint:gosec // test fake
}
