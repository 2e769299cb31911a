package auth

import (
	"crypto/rand"
	"fmt"

	"AuctionHouse/internal/crypto"
)

// NonceSize is the size of the client and server challenges in bytes.
const NonceSize = 16

// bundleSize is the encoded size of a challenge bundle.
const bundleSize = 1 + NonceSize + NonceSize + crypto.SessionKeySize

// bundle is what the server returns to a challenging client.
type bundle struct {
	algorithm crypto.Algorithm  // algorithm is the session cipher
	answer    []byte            // answer echoes the client challenge
	challenge []byte            // challenge is the server nonce the client must return
	key       crypto.SessionKey // key is the proposed session key
}

// encode serializes the bundle.
// Format: [1B algorithm] [16B answer] [16B challenge] [32B key]
func (b *bundle) encode() []byte {
	buf := make([]byte, 0, bundleSize)
	buf = append(buf, byte(b.algorithm))
	buf = append(buf, b.answer...)
	buf = append(buf, b.challenge...)
	buf = append(buf, b.key[:]...)

	return buf
}

// decodeBundle parses an encoded bundle.
func decodeBundle(data []byte) (*bundle, error) {
	if len(data) != bundleSize {
		return nil, fmt.Errorf("bundle size: got %d, want %d", len(data), bundleSize)
	}

	b := &bundle{
		algorithm: crypto.Algorithm(data[0]),
		answer:    append([]byte(nil), data[1:1+NonceSize]...),
		challenge: append([]byte(nil), data[1+NonceSize:1+2*NonceSize]...),
	}
	copy(b.key[:], data[1+2*NonceSize:])

	return b, nil
}

// newNonce returns NonceSize random bytes.
func newNonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, fmt.Errorf("generate nonce:\n%w", err)
	}

	return n, nil
}
