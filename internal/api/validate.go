package api

import (
	"unicode"

	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/wire"
)

const (
	// maxIdentitySize is the maximum length of an identity in bytes.
	maxIdentitySize = 64

	// maxSealedSize bounds sealed payloads.
	maxSealedSize = 64 << 10
)

// validateIdentity checks that name can be an identity.
func validateIdentity(name string) error {
	if name == "" {
		return failure.New(failure.KindProtocol, "identity is required")
	}

	if len(name) > maxIdentitySize {
		return failure.Newf(failure.KindProtocol, "identity too long: %d > %d", len(name), maxIdentitySize)
	}

	for _, r := range name {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return failure.New(failure.KindProtocol, "identity contains invalid characters")
		}
	}

	return nil
}

// validateSealed checks the size of a sealed payload.
func validateSealed(field string, data []byte) error {
	if len(data) == 0 {
		return failure.Newf(failure.KindProtocol, "%s is required", field)
	}

	if len(data) > maxSealedSize {
		return failure.Newf(failure.KindProtocol, "%s too large: %d > %d", field, len(data), maxSealedSize)
	}

	return nil
}

// validateSigned checks the structure of a signed payload.
func validateSigned(s wire.Signed) error {
	if err := validateIdentity(s.Identity); err != nil {
		return err
	}

	if len(s.Payload) == 0 {
		return failure.New(failure.KindProtocol, "signed payload is required")
	}

	if len(s.Signature) != crypto.SignatureSize {
		return failure.Newf(failure.KindProtocol, "invalid signature size: got %d, want %d", len(s.Signature), crypto.SignatureSize)
	}

	return nil
}
