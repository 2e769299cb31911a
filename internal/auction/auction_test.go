package auction

import (
	"errors"
	"math"
	"strings"
	"testing"

	"AuctionHouse/internal/failure"
)

// newTestAuction creates an open auction with an assigned ID.
func newTestAuction(t *testing.T, start, reserve float64) *Auction {
	t.Helper()

	a, err := New("vase", "alice", start, reserve)
	if err != nil {
		t.Fatalf("create auction: %v", err)
	}
	a.ID = 1

	return a
}

func TestNewValidation(t *testing.T) {
	if _, err := New("", "alice", 10, 20); !errors.Is(err, failure.ErrValidation) {
		t.Errorf("empty description: got %v", err)
	}
	if _, err := New("vase", "alice", 0, 20); !errors.Is(err, failure.ErrValidation) {
		t.Errorf("zero start: got %v", err)
	}
	if _, err := New("vase", "alice", math.NaN(), 20); !errors.Is(err, failure.ErrValidation) {
		t.Errorf("NaN start: got %v", err)
	}
	if _, err := New("vase", "alice", 10, 5); !errors.Is(err, failure.ErrValidation) {
		t.Errorf("reserve below start: got %v", err)
	}

	a, err := New("vase", "alice", 10, 0)
	if err != nil {
		t.Fatalf("default reserve: %v", err)
	}
	if a.ReservePrice != 10 {
		t.Errorf("reserve: got %v, want 10", a.ReservePrice)
	}
	if a.CurrentBid != 10 {
		t.Errorf("current bid: got %v, want 10", a.CurrentBid)
	}
}

func TestBidIncreasing(t *testing.T) {
	a := newTestAuction(t, 10, 50)

	msg, err := a.Bid(20, "bob")
	if err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if !strings.Contains(msg, "Successful bid of 20.00 on vase") {
		t.Errorf("unexpected message %q", msg)
	}

	if _, err := a.Bid(30, "carol"); err != nil {
		t.Fatalf("second bid: %v", err)
	}

	if a.CurrentBid != 30 || a.Winner != "carol" {
		t.Errorf("got %v by %q, want 30 by carol", a.CurrentBid, a.Winner)
	}
	if len(a.History) != 2 || a.History[0].Bidder != "carol" || a.History[1].Bidder != "bob" {
		t.Errorf("history not newest first: %+v", a.History)
	}
}

func TestBidNotHigherRejected(t *testing.T) {
	a := newTestAuction(t, 10, 50)

	if _, err := a.Bid(20, "bob"); err != nil {
		t.Fatalf("bid: %v", err)
	}

	for _, v := range []float64{20, 15, 10} {
		if _, err := a.Bid(v, "carol"); !errors.Is(err, failure.ErrValidation) {
			t.Errorf("bid %v: got %v, want validation error", v, err)
		}
	}

	if a.CurrentBid != 20 || a.Winner != "bob" || len(a.History) != 1 {
		t.Errorf("state changed by rejected bids: %+v", a)
	}
}

func TestBidOnClosedRejected(t *testing.T) {
	a := newTestAuction(t, 10, 50)

	if _, err := a.Close("alice"); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := a.Bid(100, "bob"); !errors.Is(err, failure.ErrValidation) {
		t.Errorf("got %v, want validation error", err)
	}
	if a.CurrentBid != 10 {
		t.Errorf("current bid changed to %v", a.CurrentBid)
	}
}

func TestCloseWonAboveReserve(t *testing.T) {
	a := newTestAuction(t, 10, 50)

	a.Bid(20, "bob")
	a.Bid(60, "carol")

	msg, err := a.Close("alice")
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	if !a.Closed || !a.Won {
		t.Errorf("closed=%v won=%v, want both true", a.Closed, a.Won)
	}
	if msg != "Auction won by carol with the highest bid of 60.00" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestCloseBelowReserveNotWon(t *testing.T) {
	a := newTestAuction(t, 10, 100)

	a.Bid(20, "bob")
	a.Bid(60, "carol")

	msg, err := a.Close("alice")
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	if a.Won {
		t.Error("auction below reserve must not be won")
	}
	if msg != "Auction closed with no winner" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestCloseTwiceRejected(t *testing.T) {
	a := newTestAuction(t, 10, 50)

	if _, err := a.Close("alice"); err != nil {
		t.Fatalf("first close: %v", err)
	}

	if _, err := a.Close("alice"); !errors.Is(err, failure.ErrValidation) {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestCloseByNonOwnerRejected(t *testing.T) {
	a := newTestAuction(t, 10, 50)

	if _, err := a.Close("mallory"); !errors.Is(err, failure.ErrAuthorization) {
		t.Errorf("got %v, want authorization error", err)
	}
	if a.Closed {
		t.Error("non-owner closed the auction")
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := newTestAuction(t, 10, 50)
	a.Bid(20, "bob")

	c := a.Clone()
	c.History[0].Bidder = "eve"
	c.Bid(30, "carol")

	if a.History[0].Bidder != "bob" || len(a.History) != 1 {
		t.Errorf("clone shares history: %+v", a.History)
	}
}

func TestFormatListOrderedByID(t *testing.T) {
	a := newTestAuction(t, 10, 50)
	b := newTestAuction(t, 5, 5)
	b.ID = 2
	b.Description = "lamp"
	a.ID = 3

	out := FormatList([]*Auction{a, b})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Auction ID") {
		t.Errorf("missing header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2 ") || !strings.HasPrefix(lines[2], "3 ") {
		t.Errorf("rows not ordered by ID:\n%s", out)
	}
}
