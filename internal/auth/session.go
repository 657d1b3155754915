package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

const (
	sessionTTL       = 7 * 24 * time.Hour
	sessionTokenSize = 32
)

// User is the identity attached to a session.
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

type session struct {
	user      User
	expiresAt time.Time
}

// sessionStore keeps sessions in memory. Restarting the server logs
// everyone out, which is fine for a LAN dashboard.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]session)}
}

// create mints an unguessable token bound to the user.
func (s *sessionStore) create(u User) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[token] = session{user: u, expiresAt: time.Now().Add(sessionTTL)}
	s.mu.Unlock()
	return token, nil
}

// lookup returns the user for a live session token.
func (s *sessionStore) lookup(token string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return User{}, false
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return User{}, false
	}
	return sess.user, true
}

func (s *sessionStore) revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func randomToken() (string, error) {
	buf := make([]byte, sessionTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
