package crypto

import (
	"crypto/rand"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

const (
	// SignPublicKeySize is the size of a compressed BLS public key in bytes.
	SignPublicKeySize = 48

	// SignatureSize is the size of a compressed BLS signature in bytes.
	SignatureSize = 96

	// SignSeedSize is the size of the seed a signing key is derived from.
	SignSeedSize = 32
)

// blsDST is the domain separation tag for BLS signatures.
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// Signing domains prefixed to every signed message so that a signature
// over one kind of payload cannot be presented as another.
const (
	DomainIdentity = "auctionhouse/identity/v1"
	DomainBid      = "auctionhouse/bid/v1"
)

// SigningKey holds a BLS private/public key pair.
type SigningKey struct {
	secret *blst.SecretKey // secret is the private key
	public *blst.P1Affine  // public is the public key
}

// GenerateSignSeed returns a random seed for NewSigningKey.
func GenerateSignSeed() ([]byte, error) {
	seed := make([]byte, SignSeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate random seed:\n%w", err)
	}

	return seed, nil
}

// NewSigningKey derives a BLS key pair from a seed of at least 32 bytes.
func NewSigningKey(seed []byte) (*SigningKey, error) {
	if len(seed) < SignSeedSize {
		return nil, fmt.Errorf("seed must be at least %d bytes", SignSeedSize)
	}

	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, fmt.Errorf("failed to generate BLS key")
	}

	return &SigningKey{
		secret: secret,
		public: new(blst.P1Affine).From(secret),
	}, nil
}

// Sign signs msg under domain.
func (k *SigningKey) Sign(domain string, msg []byte) []byte {
	sig := new(blst.P2Affine).Sign(k.secret, domainMessage(domain, msg), blsDST)
	return sig.Compress()
}

// PublicKey returns the compressed public key.
func (k *SigningKey) PublicKey() []byte {
	return k.public.Compress()
}

// Verify checks a signature over msg under domain.
func Verify(signature []byte, domain string, msg, publicKey []byte) bool {
	if len(signature) != SignatureSize || len(publicKey) != SignPublicKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, domainMessage(domain, msg), blsDST)
}

// domainMessage prefixes msg with its domain and a zero separator.
func domainMessage(domain string, msg []byte) []byte {
	out := make([]byte, 0, len(domain)+1+len(msg))
	out = append(out, domain...)
	out = append(out, 0)
	out = append(out, msg...)

	return out
}
