package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Em-Cyborg/WAF-Service/domain/session"
	"github.com/Em-Cyborg/WAF-Service/ports"
)

// SessionStore is an in-memory implementation of ports.SessionStore.
// One RWMutex guards the whole map; sessions are process-local and lost
// on restart by design.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session.Session // by token
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]session.Session)}
}

// Create stores a session under a token.
func (s *SessionStore) Create(ctx context.Context, token string, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[token]; exists {
		return ports.ErrDuplicate
	}
	s.sessions[token] = sess
	return nil
}

// Get retrieves the session for a token.
func (s *SessionStore) Get(ctx context.Context, token string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return session.Session{}, ports.ErrNotFound
	}
	return sess, nil
}

// Replace deletes the old token and stores the session under the new
// token under a single lock, so no interleaved call can observe both or
// neither token alive.
func (s *SessionStore) Replace(ctx context.Context, oldToken, newToken string, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[oldToken]; !ok {
		return ports.ErrNotFound
	}
	delete(s.sessions, oldToken)
	s.sessions[newToken] = sess
	return nil
}

// Delete removes a session, reporting whether anything existed.
func (s *SessionStore) Delete(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.sessions[token]
	delete(s.sessions, token)
	return existed, nil
}

// DeleteExpired removes sessions expired strictly before now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// Len returns the live session count (for tests and metrics).
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Ensure interface compliance.
var _ ports.SessionStore = (*SessionStore)(nil)
