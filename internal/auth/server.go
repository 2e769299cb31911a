// Package auth implements the mutual challenge-response handshake that
// establishes a session key between a client identity and the front end.
//
// The client seals a random challenge to the server's public key. The server
// proves its identity by returning that challenge, together with its own
// challenge and a fresh session key, sealed to the client's public key. The
// client proves its identity by returning the server challenge encrypted
// under the session key.
package auth

import (
	"crypto/subtle"
	"sync"
	"time"

	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/keystore"
	"AuctionHouse/internal/logger"
)

// pending is a handshake waiting for the client's answer.
type pending struct {
	answer    []byte            // answer is the client challenge
	challenge []byte            // challenge is the server nonce
	key       crypto.SessionKey // key becomes the session key on success
	algorithm crypto.Algorithm  // algorithm is the session cipher
}

// slot serializes handshake steps of one identity.
type slot struct {
	mu      sync.Mutex
	pending *pending
}

// Authenticator is the server side of the handshake.
type Authenticator struct {
	server    *crypto.Identity // server is the front end's own key material
	keys      keystore.Store   // keys resolves client public keys
	algorithm crypto.Algorithm // algorithm is offered to new sessions
	sessions  *Sessions        // sessions holds established keys

	slotsMu sync.Mutex       // slotsMu protects slots
	slots   map[string]*slot // slots maps identity to its handshake slot
}

// NewAuthenticator creates the server side of the handshake.
func NewAuthenticator(server *crypto.Identity, keys keystore.Store, algorithm crypto.Algorithm) *Authenticator {
	if algorithm == 0 {
		algorithm = crypto.DefaultAlgorithm
	}

	return &Authenticator{
		server:    server,
		keys:      keys,
		algorithm: algorithm,
		sessions:  NewSessions(),
		slots:     make(map[string]*slot),
	}
}

// Sessions returns the established session store.
func (a *Authenticator) Sessions() *Sessions {
	return a.sessions
}

// Challenge handles the first step of the handshake for identity.
// sealedNonce is the client challenge sealed to the server key. The result is
// the bundle sealed to the client key.
func (a *Authenticator) Challenge(identity string, sealedNonce []byte) ([]byte, error) {
	pub, err := a.keys.Public(identity)
	if err != nil {
		logger.Debug("challenge from unknown identity", "identity", identity)
		return nil, failure.Authentication()
	}

	answer, err := crypto.OpenSealed(a.server.Box, sealedNonce)
	if err != nil || len(answer) != NonceSize {
		logger.Debug("challenge not readable", "identity", identity)
		return nil, failure.Authentication()
	}

	challenge, err := newNonce()
	if err != nil {
		return nil, err
	}

	key, err := crypto.NewSessionKey()
	if err != nil {
		return nil, err
	}

	p := &pending{
		answer:    answer,
		challenge: challenge,
		key:       key,
		algorithm: a.algorithm,
	}

	b := bundle{algorithm: p.algorithm, answer: p.answer, challenge: p.challenge, key: p.key}

	sealed, err := crypto.SealTo(pub.Box, b.encode())
	if err != nil {
		return nil, err
	}

	s := a.slot(identity)
	s.mu.Lock()
	s.pending = p
	s.mu.Unlock()

	logger.Debug("challenge issued", "identity", identity)

	return sealed, nil
}

// Answer handles the second step of the handshake.
// proof is the server challenge sealed under the proposed session key.
// On success the session is established and the pending record dropped.
func (a *Authenticator) Answer(identity string, proof []byte) (bool, error) {
	a.slotsMu.Lock()
	s, ok := a.slots[identity]
	a.slotsMu.Unlock()

	if !ok {
		return false, failure.Authentication()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pending
	if p == nil {
		return false, failure.Authentication()
	}

	sess := Session{Key: p.key, Algorithm: p.algorithm}

	got, err := sess.Open(identity, proof)
	if err != nil || subtle.ConstantTimeCompare(got, p.challenge) != 1 {
		logger.Debug("challenge answer rejected", "identity", identity)
		return false, failure.Authentication()
	}

	sess.Established = time.Now()
	a.sessions.Put(identity, sess)
	s.pending = nil

	logger.Info("session established", "identity", identity, "algorithm", sess.Algorithm)

	return true, nil
}

// RequireEstablished returns the session of identity or an authentication error.
func (a *Authenticator) RequireEstablished(identity string) (Session, error) {
	sess, ok := a.sessions.Get(identity)
	if !ok {
		return Session{}, failure.New(failure.KindAuthentication, "no established session")
	}

	return sess, nil
}

// slot returns the handshake slot of identity, creating it if needed.
// Only identities known to the key store get a slot.
func (a *Authenticator) slot(identity string) *slot {
	a.slotsMu.Lock()
	defer a.slotsMu.Unlock()

	s, ok := a.slots[identity]
	if !ok {
		s = &slot{}
		a.slots[identity] = s
	}

	return s
}
