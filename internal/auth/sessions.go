package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Session is one authenticated login.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// SessionStore keeps sessions in memory behind an RWMutex. Sessions are the
// only state the service holds outside Postgres; losing them on restart just
// forces a re-login.
type SessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]*Session
}

// NewSessionStore constructs a store with the given session lifetime.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Create registers a session for the user and returns its token.
func (s *SessionStore) Create(userID string) string {
	token := newToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = &Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	return token
}

// Get resolves a token to the owning user id. Expired sessions are treated
// as absent and dropped lazily.
func (s *SessionStore) Get(token string) (string, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if time.Now().After(sess.ExpiresAt) {
		s.Delete(token)
		return "", false
	}
	return sess.UserID, true
}

// Delete removes a session.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func newToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// an unguessable token is non-negotiable.
		panic("auth: secure random unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
