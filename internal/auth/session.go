package auth

import (
	"fmt"
	"sync"
	"time"

	"AuctionHouse/internal/crypto"
)

// Session is an established session key.
type Session struct {
	Key         crypto.SessionKey // Key encrypts payloads of the session
	Algorithm   crypto.Algorithm  // Algorithm is the negotiated cipher
	Established time.Time         // Established is when the handshake completed
}

// Seal encrypts plaintext for the session of identity.
// The identity is bound as additional data.
func (s Session) Seal(identity string, plaintext []byte) ([]byte, error) {
	env, err := crypto.Seal(s.Algorithm, s.Key, plaintext, []byte(identity))
	if err != nil {
		return nil, err
	}

	return env.Marshal(), nil
}

// Open decrypts data produced by Seal for the same identity.
func (s Session) Open(identity string, data []byte) ([]byte, error) {
	env, err := crypto.UnmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	if env.Algorithm != s.Algorithm {
		return nil, fmt.Errorf("unexpected algorithm %s", env.Algorithm)
	}

	return crypto.Open(s.Key, env, []byte(identity))
}

// Sessions is the store of established sessions keyed by identity.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]Session)}
}

// Get returns the session of identity.
func (s *Sessions) Get(identity string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[identity]
	return sess, ok
}

// Put stores or replaces the session of identity.
func (s *Sessions) Put(identity string, sess Session) {
	s.mu.Lock()
	s.sessions[identity] = sess
	s.mu.Unlock()
}

// Delete removes the session of identity.
func (s *Sessions) Delete(identity string) {
	s.mu.Lock()
	delete(s.sessions, identity)
	s.mu.Unlock()
}

// Len returns the number of established sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
