// Package crypto provides the primitives used by the handshake and the
// signed operations: sealed envelopes under a session key, anonymous
// sealing to a public key and BLS signatures.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm tags the symmetric cipher of an envelope.
type Algorithm uint8

const (
	// XChaCha20Poly1305 is the default session cipher.
	XChaCha20Poly1305 Algorithm = 1
	// AES256GCM is the alternative session cipher.
	AES256GCM Algorithm = 2
)

// DefaultAlgorithm is used for new sessions.
const DefaultAlgorithm = XChaCha20Poly1305

// SessionKeySize is the size of a session key in bytes.
const SessionKeySize = 32

// SessionKey is a symmetric key negotiated during the handshake.
type SessionKey [SessionKeySize]byte

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case XChaCha20Poly1305:
		return "xchacha20-poly1305"
	case AES256GCM:
		return "aes-256-gcm"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// Envelope is a message sealed under a session key.
type Envelope struct {
	Algorithm  Algorithm // Algorithm selects the cipher
	Nonce      []byte    // Nonce is unique per envelope
	Ciphertext []byte    // Ciphertext includes the authentication tag
}

// NewSessionKey returns a fresh random session key.
func NewSessionKey() (SessionKey, error) {
	var k SessionKey
	if _, err := rand.Read(k[:]); err != nil {
		return k, fmt.Errorf("generate session key:\n%w", err)
	}

	return k, nil
}

// Seal encrypts plaintext under key. aad is authenticated but not encrypted.
func Seal(alg Algorithm, key SessionKey, plaintext, aad []byte) (*Envelope, error) {
	aead, err := newAEAD(alg, key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce:\n%w", err)
	}

	return &Envelope{
		Algorithm:  alg,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, aad),
	}, nil
}

// Open decrypts an envelope sealed under key with the same aad.
func Open(key SessionKey, env *Envelope, aad []byte) ([]byte, error) {
	aead, err := newAEAD(env.Algorithm, key)
	if err != nil {
		return nil, err
	}

	if len(env.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("invalid nonce size: %d", len(env.Nonce))
	}

	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("open envelope:\n%w", err)
	}

	return plaintext, nil
}

// Marshal encodes the envelope.
// Format: [1B algorithm] [1B nonce length] [nonce] [ciphertext]
func (e *Envelope) Marshal() []byte {
	buf := make([]byte, 0, 2+len(e.Nonce)+len(e.Ciphertext))
	buf = append(buf, byte(e.Algorithm), byte(len(e.Nonce)))
	buf = append(buf, e.Nonce...)
	buf = append(buf, e.Ciphertext...)

	return buf
}

// UnmarshalEnvelope decodes an envelope produced by Marshal.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("envelope too short: %d < 2", len(data))
	}

	nonceLen := int(data[1])
	if len(data) < 2+nonceLen {
		return nil, fmt.Errorf("envelope truncated: need %d, have %d", 2+nonceLen, len(data))
	}

	return &Envelope{
		Algorithm:  Algorithm(data[0]),
		Nonce:      append([]byte(nil), data[2:2+nonceLen]...),
		Ciphertext: append([]byte(nil), data[2+nonceLen:]...),
	}, nil
}

// newAEAD builds the cipher for alg.
func newAEAD(alg Algorithm, key SessionKey) (cipher.AEAD, error) {
	switch alg {
	case XChaCha20Poly1305:
		return chacha20poly1305.NewX(key[:])
	case AES256GCM:
		block, err := aes.NewCipher(key[:])
		if err != nil {
			return nil, fmt.Errorf("create aes cipher:\n%w", err)
		}
		return cipher.NewGCM(block)
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", alg)
	}
}
