// Package session tracks the current user identity for remote sync.
//
// The session is the single source of truth for "who owns remote rows".
// An empty user means signed out; sync is a no-op in that state.
package session

import "sync"

// Session holds the current user and notifies subscribers of changes.
// All methods are safe for concurrent use.
type Session struct {
	mu   sync.RWMutex
	user string
	subs []func(user string)
}

// New creates a signed-out session.
func New() *Session {
	return &Session{}
}

// CurrentUser returns the signed-in user ID, or "" when signed out.
func (s *Session) CurrentUser() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SignedIn reports whether a user identity is established.
func (s *Session) SignedIn() bool {
	return s.CurrentUser() != ""
}

// SetUser updates the current user and notifies subscribers.
// Pass "" to sign out. Notifications fire only on actual changes.
func (s *Session) SetUser(user string) {
	s.mu.Lock()
	if s.user == user {
		s.mu.Unlock()
		return
	}
	s.user = user
	subs := append([]func(string){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(user)
	}
}

// Subscribe registers a callback invoked on every identity change.
// Callbacks run synchronously on the goroutine calling SetUser.
func (s *Session) Subscribe(fn func(user string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
