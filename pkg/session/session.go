// Package session holds the signed-in user's tokens and permissions and mirrors every change to a
// Store, so that a later process starts from the same state.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/logger"
)

// Session is safe for concurrent use. The zero value is not usable; call Open.
type Session struct {
	mu    sync.RWMutex
	store Store
	log   logger.Logger
	env   *Envelope
}

// Open loads the stored envelope. A missing, malformed or outdated envelope yields an empty
// session; only store failures are returned.
func Open(ctx context.Context, store Store, log logger.Logger) (*Session, error) {
	s := &Session{store: store, log: logger.OrNop(log)}

	data, err := store.Load(ctx)
	if errors.Is(err, constants.ErrNoSession) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	env, err := DecodeEnvelope(data)
	if err != nil {
		s.log.Warn("ignoring stored session", "error", err)
		return s, nil
	}
	s.env = &env
	return s, nil
}

func (s *Session) Store() Store {
	return s.store
}

// Authenticated reports whether a token pair is held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env != nil
}

// Envelope returns a copy of the current envelope.
func (s *Session) Envelope() (Envelope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil {
		return Envelope{}, false
	}
	env := *s.env
	env.Permissions = slices.Clone(s.env.Permissions)
	return env, true
}

func (s *Session) Tokens() (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil {
		return State{}, false
	}
	return s.env.State, true
}

func (s *Session) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.env == nil {
		return nil
	}
	return slices.Clone(s.env.Permissions)
}

// SetTokens starts a new session with state. Cached permissions are dropped.
func (s *Session) SetTokens(ctx context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := NewEnvelope(state)
	return s.commit(ctx, &env)
}

func (s *Session) SetAccess(ctx context.Context, access AccessState) error {
	return s.update(ctx, func(env *Envelope) {
		env.State.Access = access
	})
}

func (s *Session) SetRefresh(ctx context.Context, refresh RefreshState) error {
	return s.update(ctx, func(env *Envelope) {
		env.State.Refresh = refresh
	})
}

func (s *Session) SetPermissions(ctx context.Context, permissions []string) error {
	return s.update(ctx, func(env *Envelope) {
		env.Permissions = slices.Clone(permissions)
	})
}

// Clear forgets the session and deletes it from the store.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = nil
	if err := s.store.Delete(ctx); err != nil {
		s.log.Error("failed to delete stored session", "error", err)
		return err
	}
	return nil
}

func (s *Session) update(ctx context.Context, fn func(*Envelope)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env == nil {
		return constants.ErrNoSession
	}
	env := *s.env
	env.Permissions = slices.Clone(s.env.Permissions)
	fn(&env)
	return s.commit(ctx, &env)
}

// commit persists env and then makes it current. Callers hold the write lock.
func (s *Session) commit(ctx context.Context, env *Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, data); err != nil {
		s.log.Error("failed to save session", "error", err)
		return err
	}
	s.env = env
	return nil
}
