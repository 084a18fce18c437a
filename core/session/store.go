// Package session keeps track of who is signed in to a console tab.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/role"
)

// Session is what the console knows about the signed-in user of a tab.
// Role and Username are only meaningful while Token is set: callers set all three on login
// and clear all three on logout. Nothing enforces this.
type Session struct {
	Token    string    `json:"-"`
	Role     role.Role `json:"role,omitempty"`
	Username string    `json:"username,omitempty"`
}

func (s Session) HasToken() bool { return s.Token != "" }

// Store is the single source of truth for the session of one tab.
// Only Login and Logout mutate it.
type Store struct {
	writeMu sync.Mutex // serializes mutations, including their storage writes
	mu      sync.RWMutex
	current Session

	storage Storage
	logger  core.Logger
}

// NewStore restores a session from durable storage. Missing keys, and keys that cannot be
// read, are treated as absent. Token liveness is not checked here.
func NewStore(ctx context.Context, storage Storage, logger core.Logger) *Store {
	s := &Store{storage: storage, logger: logger}
	s.current = Session{
		Token:    s.read(ctx, KeyToken),
		Role:     role.Role(s.read(ctx, KeyRole)),
		Username: s.read(ctx, KeyUsername),
	}
	return s
}

// Snapshot returns the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Login replaces the session. Role and username are always persisted; the token only when
// remember is set, otherwise it lives in memory and is gone when the tab session ends.
// Storage failures are logged and do not undo the in-memory login.
func (s *Store) Login(ctx context.Context, token string, r role.Role, username string, remember bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.set(Session{Token: token, Role: r, Username: username})

	s.write(ctx, KeyRole, string(r))
	s.write(ctx, KeyUsername, username)
	if remember {
		s.write(ctx, KeyToken, token)
	} else {
		// a token remembered by an earlier login must not outlive this one
		s.remove(ctx, KeyToken)
	}
}

// Logout clears the session in memory and in durable storage.
func (s *Store) Logout(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.set(Session{})
	for _, key := range Keys {
		s.remove(ctx, key)
	}
}

func (s *Store) set(sess Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}

func (s *Store) read(ctx context.Context, key string) string {
	val, err := s.storage.GetItem(ctx, key)
	if err != nil {
		if errors.Cause(err) != ErrNoItem {
			s.logger.Warn("reading session storage: "+key, err)
		}
		return ""
	}
	return val
}

func (s *Store) write(ctx context.Context, key, val string) {
	if err := s.storage.SetItem(ctx, key, val); err != nil {
		s.logger.Warn("writing session storage: "+key, err)
	}
}

func (s *Store) remove(ctx context.Context, key string) {
	if err := s.storage.RemoveItem(ctx, key); err != nil {
		s.logger.Warn("clearing session storage: "+key, err)
	}
}
