package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/failure"
)

// ErrServerNotAuthenticated is returned when the server fails to echo the
// client challenge. The handshake must not be retried silently.
var ErrServerNotAuthenticated = failure.New(failure.KindAuthentication, "server failed to authenticate")

// Handshake is the client side of one handshake attempt.
type Handshake struct {
	self   *crypto.Identity      // self is the client's own key material
	server crypto.PublicIdentity // server is the front end's public identity
	answer []byte                // answer is the challenge sent to the server
}

// NewHandshake prepares a handshake between self and server.
func NewHandshake(self *crypto.Identity, server crypto.PublicIdentity) *Handshake {
	return &Handshake{self: self, server: server}
}

// Begin returns the client challenge sealed to the server key.
func (h *Handshake) Begin() ([]byte, error) {
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	sealed, err := crypto.SealTo(h.server.Box, nonce)
	if err != nil {
		return nil, fmt.Errorf("seal challenge:\n%w", err)
	}

	h.answer = nonce

	return sealed, nil
}

// Respond verifies the server bundle and returns the proof to send back
// together with the session it will establish.
func (h *Handshake) Respond(sealedBundle []byte) ([]byte, Session, error) {
	if h.answer == nil {
		return nil, Session{}, fmt.Errorf("handshake not started")
	}

	plain, err := crypto.OpenSealed(h.self.Box, sealedBundle)
	if err != nil {
		return nil, Session{}, ErrServerNotAuthenticated
	}

	b, err := decodeBundle(plain)
	if err != nil {
		return nil, Session{}, ErrServerNotAuthenticated
	}

	if subtle.ConstantTimeCompare(b.answer, h.answer) != 1 {
		return nil, Session{}, ErrServerNotAuthenticated
	}

	sess := Session{Key: b.key, Algorithm: b.algorithm, Established: time.Now()}

	proof, err := sess.Seal(h.self.Name, b.challenge)
	if err != nil {
		return nil, Session{}, fmt.Errorf("seal answer:\n%w", err)
	}

	return proof, sess, nil
}
