package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dealerdesk/dealerdesk.go/internal/rand"
)

type contextKey struct{}

// Claims of an authenticated request.
type Claims struct {
	TokenType string `json:"token_type"`
	Role      string `json:"role,omitempty"`
	UserID    int64  `json:"user_id"`
	jwt.RegisteredClaims
}

// IssuePair signs a new access and refresh token for u.
func (s *Server) IssuePair(u User) (access, refresh string, err error) {
	access, err = s.sign(u, "access", s.AccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.sign(u, "refresh", s.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Server) sign(u User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	jti := rand.NewULID(now).String()
	claims := Claims{
		TokenType: tokenType,
		UserID:    u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if tokenType == "access" {
		claims.Role = u.Role
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.issued[jti] = tokenType
	s.mu.Unlock()
	return token, nil
}

// parse verifies token and its type.
func (s *Server) parse(token, tokenType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("token_type is %q, want %q", claims.TokenType, tokenType)
	}
	s.mu.RLock()
	expired := s.expired[claims.ID]
	s.mu.RUnlock()
	if expired {
		return nil, jwt.ErrTokenExpired
	}
	return claims, nil
}

// ExpireAccessTokens makes every access token issued so far answer 403, as an expired one would.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, tokenType := range s.issued {
		if tokenType == "access" {
			s.expired[jti] = true
		}
	}
}

// RejectRefresh makes the refresh endpoint answer 401.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectRefresh = reject
}

// BlockRefresh holds refresh requests until the returned function is called.
func (s *Server) BlockRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.refreshGate == gate {
			close(gate)
			s.refreshGate = nil
		}
	}
}

func (s *Server) handleObtain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := s.readJSON(r, &body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.RLock()
	u, ok := s.users[body.Username]
	s.mu.RUnlock()
	if !ok || u.Password != body.Password {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}

	access, refresh, err := s.IssuePair(u)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	gate := s.refreshGate
	s.mu.RUnlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := s.readJSON(r, &body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	s.mu.RLock()
	reject := s.rejectRefresh
	s.mu.RUnlock()
	claims, err := s.parse(body.Refresh, "refresh")
	if reject || err != nil {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}

	s.mu.RLock()
	u, ok := s.users[claims.Subject]
	s.mu.RUnlock()
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "User not found"})
		return
	}

	access, err := s.sign(u, "access", s.AccessTTL)
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	resp := map[string]string{"access": access}
	if s.RotateRefresh {
		if resp["refresh"], err = s.sign(u, "refresh", s.RefreshTTL); err != nil {
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// authenticated requires a valid access token: 401 without one, 403 when it expired.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		claims, err := s.parse(token, "access")
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Token is expired"})
			return
		}
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	})
}

// ClaimsFrom returns the claims of an authenticated request.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "role is required"})
		return
	}
	s.mu.RLock()
	perms := append([]string{}, s.permissions[role]...)
	s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, perms)
}
