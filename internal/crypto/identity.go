package crypto

import "fmt"

// PublicIdentity is what peers know about an identity.
type PublicIdentity struct {
	Name string       // Name is the identity string, e.g. "SERVER" or a user ID
	Box  BoxPublicKey // Box receives sealed handshake messages
	Sign []byte       // Sign is the compressed BLS public key
}

// Identity is the full key material of one participant.
type Identity struct {
	Name     string      // Name is the identity string
	Box      *BoxKeyPair // Box seals and opens handshake messages
	SignSeed []byte      // SignSeed derives the signing key
	signer   *SigningKey
}

// GenerateIdentity creates fresh key material for name.
func GenerateIdentity(name string) (*Identity, error) {
	boxKey, err := GenerateBoxKey()
	if err != nil {
		return nil, err
	}

	seed, err := GenerateSignSeed()
	if err != nil {
		return nil, err
	}

	return LoadIdentity(name, boxKey, seed)
}

// LoadIdentity rebuilds an identity from stored key material.
func LoadIdentity(name string, boxKey *BoxKeyPair, signSeed []byte) (*Identity, error) {
	signer, err := NewSigningKey(signSeed)
	if err != nil {
		return nil, fmt.Errorf("derive signing key for %s:\n%w", name, err)
	}

	return &Identity{
		Name:     name,
		Box:      boxKey,
		SignSeed: append([]byte(nil), signSeed...),
		signer:   signer,
	}, nil
}

// Signer returns the identity's signing key.
func (id *Identity) Signer() *SigningKey {
	return id.signer
}

// Public returns the shareable half of the identity.
func (id *Identity) Public() PublicIdentity {
	return PublicIdentity{
		Name: id.Name,
		Box:  id.Box.Public,
		Sign: id.signer.PublicKey(),
	}
}
