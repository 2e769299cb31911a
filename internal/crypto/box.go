package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// BoxKeySize is the size of an X25519 key in bytes.
const BoxKeySize = 32

// BoxPublicKey receives sealed messages.
type BoxPublicKey [BoxKeySize]byte

// BoxPrivateKey opens sealed messages.
type BoxPrivateKey [BoxKeySize]byte

// BoxKeyPair is an X25519 key pair.
type BoxKeyPair struct {
	Public  BoxPublicKey  // Public is shared with peers
	Private BoxPrivateKey // Private never leaves the key store
}

// GenerateBoxKey creates a random X25519 key pair.
func GenerateBoxKey() (*BoxKeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate box key:\n%w", err)
	}

	return &BoxKeyPair{Public: *pub, Private: *priv}, nil
}

// SealTo encrypts msg so that only the holder of pub's private key can read it.
// The sender stays anonymous.
func SealTo(pub BoxPublicKey, msg []byte) ([]byte, error) {
	k := [BoxKeySize]byte(pub)

	sealed, err := box.SealAnonymous(nil, msg, &k, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("seal:\n%w", err)
	}

	return sealed, nil
}

// OpenSealed decrypts a message produced by SealTo for kp.
func OpenSealed(kp *BoxKeyPair, sealed []byte) ([]byte, error) {
	pub := [BoxKeySize]byte(kp.Public)
	priv := [BoxKeySize]byte(kp.Private)

	msg, ok := box.OpenAnonymous(nil, sealed, &pub, &priv)
	if !ok {
		return nil, fmt.Errorf("open sealed message")
	}

	return msg, nil
}
