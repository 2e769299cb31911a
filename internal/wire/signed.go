package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"AuctionHouse/internal/crypto"
)

// Signed is a payload signed by an identity.
type Signed struct {
	Identity  string `json:"identity"`  // Identity is the claimed signer
	Payload   []byte `json:"payload"`   // Payload is the signed message
	Signature []byte `json:"signature"` // Signature is a BLS signature over Payload
}

// SignIdentity signs the identity's own name, proving who calls.
func SignIdentity(id *crypto.Identity) Signed {
	payload := []byte(id.Name)

	return Signed{
		Identity:  id.Name,
		Payload:   payload,
		Signature: id.Signer().Sign(crypto.DomainIdentity, payload),
	}
}

// SignBid signs a bid placed by id.
func SignBid(id *crypto.Identity, auctionID uint64, amount float64) Signed {
	payload := EncodeBid(BidPayload{Bidder: id.Name, AuctionID: auctionID, Amount: amount})

	return Signed{
		Identity:  id.Name,
		Payload:   payload,
		Signature: id.Signer().Sign(crypto.DomainBid, payload),
	}
}

// Verify reports whether the signature over the payload was made in domain
// by the key of pub, and pub belongs to the claimed identity.
func (s Signed) Verify(domain string, pub crypto.PublicIdentity) bool {
	if pub.Name != s.Identity {
		return false
	}

	return crypto.Verify(s.Signature, domain, s.Payload, pub.Sign)
}

// BidPayload is the signed content of a bid.
type BidPayload struct {
	Bidder    string  // Bidder places the bid
	AuctionID uint64  // AuctionID is the target auction
	Amount    float64 // Amount is the offered value
}

// EncodeBid encodes a bid payload.
// Format: [8B auctionID] [8B amount] [bidder]
func EncodeBid(b BidPayload) []byte {
	buf := make([]byte, 16, 16+len(b.Bidder))
	binary.BigEndian.PutUint64(buf[0:8], b.AuctionID)
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(b.Amount))

	return append(buf, b.Bidder...)
}

// DecodeBid decodes a bid payload.
func DecodeBid(data []byte) (BidPayload, error) {
	if len(data) < 16 {
		return BidPayload{}, fmt.Errorf("bid too short: %d < 16", len(data))
	}

	return BidPayload{
		AuctionID: binary.BigEndian.Uint64(data[0:8]),
		Amount:    math.Float64frombits(binary.BigEndian.Uint64(data[8:16])),
		Bidder:    string(data[16:]),
	}, nil
}
