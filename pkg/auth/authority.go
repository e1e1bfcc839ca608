// Package auth is the token authority: it logs in, keeps the access token fresh and ends the
// session when the server stops accepting it.
package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/dealerdesk/dealerdesk.go/internal/codec"
	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/logger"
	"github.com/dealerdesk/dealerdesk.go/pkg/metrics"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/service"
	"github.com/dealerdesk/dealerdesk.go/pkg/session"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
	Refreshing
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

const refreshKey = "refresh"

// Authority is safe for concurrent use. Concurrent refreshes share one request.
type Authority struct {
	service.WithTools[JWTTools]

	t       *transport.Transport
	sess    *session.Session
	log     logger.Logger
	metrics *metrics.Metrics

	tokenPath       string
	refreshPath     string
	permissionsPath string
	onExpired       func(ctx context.Context)

	group      singleflight.Group
	refreshing atomic.Bool
	now        func() time.Time
}

type Option func(*Authority)

// WithPaths overrides the token, refresh and permissions endpoints. Empty values keep the default.
func WithPaths(token, refresh, permissions string) Option {
	return func(a *Authority) {
		if token != "" {
			a.tokenPath = token
		}
		if refresh != "" {
			a.refreshPath = refresh
		}
		if permissions != "" {
			a.permissionsPath = permissions
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(a *Authority) {
		a.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authority) {
		a.metrics = m
	}
}

// WithExpiredHook is called after the session ended involuntarily, e.g. to send the user to the
// login page.
func WithExpiredHook(fn func(ctx context.Context)) Option {
	return func(a *Authority) {
		a.onExpired = fn
	}
}

// New creates an authority over sess and registers it as t's Authenticator.
func New(t *transport.Transport, sess *session.Session, opts ...Option) *Authority {
	a := &Authority{
		WithTools:       service.WithTools[JWTTools]{Tools: NewJWTTools()},
		t:               t,
		sess:            sess,
		tokenPath:       constants.DefaultTokenPath,
		refreshPath:     constants.DefaultRefreshPath,
		permissionsPath: constants.DefaultPermissionsPath,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.OrNop(a.log)
	t.SetAuthenticator(a)
	return a
}

func (a *Authority) Session() *session.Session {
	return a.sess
}

func (a *Authority) State() State {
	if a.refreshing.Load() {
		return Refreshing
	}
	if a.sess.Authenticated() {
		return Authenticated
	}
	return Unauthenticated
}

func (a *Authority) AccessToken() string {
	st, ok := a.sess.Tokens()
	if !ok {
		return ""
	}
	return st.Access.Token
}

// Claims are the claims of the current access token.
func (a *Authority) Claims() (AccessClaims, bool) {
	st, ok := a.sess.Tokens()
	if !ok {
		return AccessClaims{}, false
	}
	return AccessClaims{TokenType: TokenTypeAccess, Role: st.Access.Role, UserID: st.Access.UserID}, true
}

// Obtain logs in with creds. On any failure the current session is left as it was.
func (a *Authority) Obtain(ctx context.Context, creds Credentials) (TokenPair, error) {
	if _, err := schema.Parse(CredentialsShape(), creds); err != nil {
		return TokenPair{}, &AuthError{Op: "login", Err: err}
	}

	pair, err := transport.Send[TokenPair](ctx, a.t, http.MethodPost, a.tokenPath, PairShape(),
		transport.Anonymous(), transport.WithBody(creds))
	if err != nil {
		a.log.Warn("login rejected", "username", creds.Username, "error", err)
		return TokenPair{}, &AuthError{Op: "login", Err: err}
	}

	state, err := a.Tools.DecodePair(pair)
	if err != nil {
		a.log.Warn("login returned unusable tokens", "error", err)
		return TokenPair{}, &AuthError{Op: "login", Err: err}
	}
	if err := a.sess.SetTokens(ctx, state); err != nil {
		return TokenPair{}, &AuthError{Op: "login", Err: err}
	}

	a.log.Info("signed in", "user_id", state.Access.UserID, "role", state.Access.Role)
	return pair, nil
}

// Refresh replaces the access token after stale was rejected. When the current access token is
// no longer stale another caller already refreshed it and nothing is sent. Concurrent callers
// wait for the same request. A failed refresh ends the session.
func (a *Authority) Refresh(ctx context.Context, stale string) error {
	st, ok := a.sess.Tokens()
	if !ok || st.Refresh.Token == "" {
		return a.fail(ctx, constants.ErrNoRefreshToken)
	}
	if stale != "" && st.Access.Token != stale {
		a.metrics.ObserveRefresh(metrics.RefreshSkipped)
		return nil
	}

	ch := a.group.DoChan(refreshKey, func() (any, error) {
		return nil, a.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (a *Authority) refresh(ctx context.Context) error {
	a.refreshing.Store(true)
	defer a.refreshing.Store(false)

	st, ok := a.sess.Tokens()
	if !ok {
		return &AuthError{Op: "refresh", Err: constants.ErrNoRefreshToken}
	}

	a.log.Info("refreshing access token", "user_id", st.Refresh.UserID)
	resp, err := transport.Send[refreshResponse](ctx, a.t, http.MethodPost, a.refreshPath, RefreshResponseShape(),
		transport.Anonymous(), transport.WithBody(map[string]string{"refresh": st.Refresh.Token}))
	if err != nil {
		return a.fail(ctx, err)
	}

	access, err := a.Tools.DecodeAccess(resp.Access)
	if err != nil {
		return a.fail(ctx, err)
	}
	if err := a.sess.SetAccess(ctx, session.AccessState{Token: resp.Access, Role: access.Role, UserID: access.UserID}); err != nil {
		return a.fail(ctx, err)
	}
	if resp.Refresh != "" {
		refresh, err := a.Tools.DecodeRefresh(resp.Refresh)
		if err != nil {
			return a.fail(ctx, err)
		}
		if err := a.sess.SetRefresh(ctx, session.RefreshState{Token: resp.Refresh, UserID: refresh.UserID}); err != nil {
			return a.fail(ctx, err)
		}
	}

	a.metrics.ObserveRefresh(metrics.RefreshOK)
	a.log.Info("access token refreshed", "user_id", access.UserID)
	return nil
}

// fail ends the session after an unrecoverable refresh.
func (a *Authority) fail(ctx context.Context, err error) error {
	a.metrics.ObserveRefresh(metrics.RefreshFailed)
	a.log.Warn("token refresh failed, clearing session", "error", err)
	a.end(ctx)
	return &AuthError{Op: "refresh", Err: err}
}

// Expire ends a session the server no longer accepts.
func (a *Authority) Expire(ctx context.Context) {
	a.log.Warn("session expired, clearing session")
	a.end(ctx)
}

func (a *Authority) end(ctx context.Context) {
	_ = a.Clear(ctx)
	if a.onExpired != nil {
		a.onExpired(ctx)
	}
}

// Clear signs out locally.
func (a *Authority) Clear(ctx context.Context) error {
	return a.sess.Clear(ctx)
}

// FetchPermissions loads the permissions of the current role and caches them in the session.
func (a *Authority) FetchPermissions(ctx context.Context) ([]string, error) {
	st, ok := a.sess.Tokens()
	if !ok {
		return nil, constants.ErrNoSession
	}
	perms, err := transport.Send[[]string](ctx, a.t, http.MethodGet, a.permissionsPath,
		schema.SoftArray{Elem: schema.String{MinLen: 1}},
		transport.WithQuery(map[string]string{"role": st.Access.Role}))
	if err != nil {
		return nil, err
	}
	if err := a.sess.SetPermissions(ctx, perms); err != nil {
		return nil, err
	}
	return perms, nil
}

// Permissions are the cached permissions of the current role.
func (a *Authority) Permissions() []string {
	return a.sess.Permissions()
}

func (a *Authority) Can(permission string) bool {
	return slices.Contains(a.sess.Permissions(), permission)
}

// TokenSource exposes the access token to oauth2 aware HTTP clients. An expired token is
// refreshed first.
func (a *Authority) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, a: a}
}

type tokenSource struct {
	ctx context.Context
	a   *Authority
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	token := s.a.AccessToken()
	if token == "" {
		return nil, constants.ErrNoSession
	}
	tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: s.a.expiry(token)}
	if !tok.Expiry.IsZero() && !tok.Expiry.After(s.a.now()) {
		if err := s.a.Refresh(s.ctx, token); err != nil {
			return nil, err
		}
		token = s.a.AccessToken()
		tok = &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: s.a.expiry(token)}
	}
	return tok, nil
}

// expiry reads the exp claim, zero when absent.
func (a *Authority) expiry(token string) time.Time {
	claims, err := a.Tools.Decode(token)
	if err != nil {
		return time.Time{}
	}
	n, ok := claims["exp"].(codec.Number)
	if !ok {
		return time.Time{}
	}
	sec, err := n.Int64()
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

var _ transport.Authenticator = (*Authority)(nil)

// IsAuthError reports whether err came from a rejected login or refresh.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
