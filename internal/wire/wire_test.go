package wire

import (
	"bytes"
	"errors"
	"testing"

	"AuctionHouse/internal/auction"
	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/failure"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{
		Op:        OpBid,
		AuctionID: 42,
		Amount:    12.5,
		Identity:  "bob",
		Body:      []byte{1, 2, 3},
	}

	got, err := DecodeRequest(EncodeRequest(req))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Op != req.Op || got.AuctionID != 42 || got.Amount != 12.5 || got.Identity != "bob" {
		t.Errorf("got %+v, want %+v", got, req)
	}
	if !bytes.Equal(got.Body, req.Body) {
		t.Errorf("body: got %v, want %v", got.Body, req.Body)
	}
}

func TestDecodeRequestTruncated(t *testing.T) {
	data := EncodeRequest(&Request{Op: OpClose, Identity: "alice"})

	for _, n := range []int{0, 5, requestHeaderSize + 2, len(data) - 1} {
		if _, err := DecodeRequest(data[:n]); err == nil {
			t.Errorf("truncated to %d: expected error", n)
		}
	}
}

func TestErrorResponseKeepsKind(t *testing.T) {
	resp := FromError(failure.New(failure.KindNotFound, "No such auction exists"))

	got, err := DecodeResponse(EncodeResponse(resp))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Status != StatusError {
		t.Fatalf("status: got %d, want %d", got.Status, StatusError)
	}
	if !errors.Is(got.Err(), failure.ErrNotFound) {
		t.Errorf("got %v, want not found", got.Err())
	}
	if got.Message != "No such auction exists" {
		t.Errorf("message: got %q", got.Message)
	}
}

func TestOKResponseHasNoError(t *testing.T) {
	got, err := DecodeResponse(EncodeResponse(OK("done", EncodeCounter(Counter{IDCounter: 3, LastSeq: 9}))))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Err() != nil {
		t.Errorf("unexpected error %v", got.Err())
	}

	c, err := DecodeCounter(got.Payload)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if c.IDCounter != 3 || c.LastSeq != 9 {
		t.Errorf("got %+v, want {3 9}", c)
	}
}

func TestAuctionEncoding(t *testing.T) {
	a, err := auction.New("vase", "alice", 10, 50)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a.ID = 7
	a.Bid(20, "bob")
	a.Bid(60, "carol")
	a.Close("alice")

	got, err := DecodeAuction(EncodeAuction(a))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.ID != 7 || got.Owner != "alice" || got.Winner != "carol" || !got.Closed || !got.Won {
		t.Errorf("got %+v", got)
	}
	if len(got.History) != 2 || got.History[0].Amount != 60 || got.History[1].Bidder != "bob" {
		t.Errorf("history: got %+v", got.History)
	}
}

func TestAuctionEncodingDeterministic(t *testing.T) {
	a, _ := auction.New("lamp", "alice", 5, 5)
	a.ID = 1

	if !bytes.Equal(EncodeAuction(a), EncodeAuction(a.Clone())) {
		t.Error("equal auctions encode differently")
	}
}

func TestDecodeAuctionGarbage(t *testing.T) {
	if _, err := DecodeAuction([]byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0}); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestBidPayload(t *testing.T) {
	in := BidPayload{Bidder: "bob", AuctionID: 3, Amount: 99.99}

	got, err := DecodeBid(EncodeBid(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != in {
		t.Errorf("got %+v, want %+v", got, in)
	}
}

func TestSignedVerify(t *testing.T) {
	alice, err := crypto.GenerateIdentity("alice")
	if err != nil {
		t.Fatalf("generate alice: %v", err)
	}
	mallory, err := crypto.GenerateIdentity("mallory")
	if err != nil {
		t.Fatalf("generate mallory: %v", err)
	}

	signed := SignIdentity(alice)
	if !signed.Verify(crypto.DomainIdentity, alice.Public()) {
		t.Fatal("valid identity signature rejected")
	}
	if signed.Verify(crypto.DomainBid, alice.Public()) {
		t.Error("identity signature accepted in bid domain")
	}
	if signed.Verify(crypto.DomainIdentity, mallory.Public()) {
		t.Error("signature accepted with another identity's key")
	}

	forged := SignIdentity(mallory)
	forged.Identity = "alice"
	if forged.Verify(crypto.DomainIdentity, alice.Public()) {
		t.Error("forged signature accepted")
	}

	bid := SignBid(alice, 4, 12.5)
	if !bid.Verify(crypto.DomainBid, alice.Public()) {
		t.Fatal("valid bid signature rejected")
	}

	got, err := DecodeBid(bid.Payload)
	if err != nil {
		t.Fatalf("decode bid: %v", err)
	}
	if got.Bidder != "alice" || got.AuctionID != 4 || got.Amount != 12.5 {
		t.Errorf("got %+v", got)
	}
}
