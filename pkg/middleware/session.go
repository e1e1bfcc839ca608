// Package middleware gates pages of a web front end on the session cookie.
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dealerdesk/dealerdesk.go/pkg/auth"
	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/logger"
	"github.com/dealerdesk/dealerdesk.go/pkg/session"
)

type contextKey struct{}

// DefaultSkip are path prefixes served without a session.
var DefaultSkip = []string{"/api", "/login", "/static", "/favicon.ico"}

type Config struct {
	// CookieName defaults to constants.SessionCookieName.
	CookieName string
	// LoginPath defaults to constants.DefaultLoginURL.
	LoginPath string
	// Skip defaults to DefaultSkip.
	Skip []string
	Log  logger.Logger
}

// RequireSession redirects requests without a valid session cookie to the login page, passing
// the original location as ?next=. A cookie is valid when both token payloads decode to access
// and refresh claims; one that fails validation is removed. The decoded
// envelope is available to handlers through EnvelopeFrom.
func RequireSession(cfg Config) func(next http.Handler) http.Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = constants.SessionCookieName
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = constants.DefaultLoginURL
	}
	if cfg.Skip == nil {
		cfg.Skip = DefaultSkip
	}
	log := logger.OrNop(cfg.Log)
	tools := auth.NewJWTTools()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped(r.URL.Path, cfg.Skip) {
				next.ServeHTTP(w, r)
				return
			}

			c, err := r.Cookie(cfg.CookieName)
			if err != nil {
				redirect(w, r, cfg.LoginPath)
				return
			}
			env, err := session.DecodeCookie(c)
			if err == nil {
				_, err = tools.DecodePair(auth.TokenPair{Access: env.State.Access.Token, Refresh: env.State.Refresh.Token})
			}
			if err != nil {
				log.Warn("rejecting session cookie", "path", r.URL.Path, "error", err)
				http.SetCookie(w, &http.Cookie{Name: cfg.CookieName, Path: "/", MaxAge: -1})
				redirect(w, r, cfg.LoginPath)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, env)))
		})
	}
}

// EnvelopeFrom returns the session of a request admitted by RequireSession.
func EnvelopeFrom(ctx context.Context) (session.Envelope, bool) {
	env, ok := ctx.Value(contextKey{}).(session.Envelope)
	return env, ok
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func redirect(w http.ResponseWriter, r *http.Request, login string) {
	target := login + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusFound)
}
