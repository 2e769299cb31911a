package vote

import (
	"errors"
	"testing"

	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/group"
	"AuctionHouse/internal/wire"
)

// reply encodes resp as the answer of member.
func reply(member string, resp *wire.Response) group.Reply {
	return group.Reply{Member: member, Data: wire.EncodeResponse(resp)}
}

func TestTallyMajority(t *testing.T) {
	a := wire.OK("A", nil)
	b := wire.OK("B", nil)

	out, err := Tally([]group.Reply{reply("r1", a), reply("r2", a), reply("r3", b)})
	if err != nil {
		t.Fatalf("tally: %v", err)
	}

	if out.Response.Message != "A" {
		t.Errorf("got %q, want A", out.Response.Message)
	}
	if out.Votes != 2 || out.Counted != 3 || out.Groups != 2 {
		t.Errorf("got votes=%d counted=%d groups=%d, want 2 3 2", out.Votes, out.Counted, out.Groups)
	}
}

func TestTallyMinorityFirstStillLoses(t *testing.T) {
	a := wire.OK("A", nil)
	b := wire.OK("B", nil)

	out, err := Tally([]group.Reply{reply("r1", b), reply("r2", a), reply("r3", a)})
	if err != nil {
		t.Fatalf("tally: %v", err)
	}

	if out.Response.Message != "A" {
		t.Errorf("got %q, want A", out.Response.Message)
	}
}

func TestTallyTieFirstObserved(t *testing.T) {
	a := wire.OK("A", nil)
	b := wire.OK("B", nil)

	out, err := Tally([]group.Reply{reply("r1", b), reply("r2", a)})
	if err != nil {
		t.Fatalf("tally: %v", err)
	}

	if out.Response.Message != "B" {
		t.Errorf("got %q, want B", out.Response.Message)
	}
}

func TestTallyEmptyIsUnavailable(t *testing.T) {
	if _, err := Tally(nil); !errors.Is(err, failure.ErrBackendUnavailable) {
		t.Errorf("got %v, want backend unavailable", err)
	}
}

func TestTallyIgnoresStaleAndGarbage(t *testing.T) {
	a := wire.OK("A", nil)

	out, err := Tally([]group.Reply{
		reply("r1", wire.Stale()),
		{Member: "r2", Data: []byte{1}},
		reply("r3", a),
	})
	if err != nil {
		t.Fatalf("tally: %v", err)
	}

	if out.Counted != 1 || out.Response.Message != "A" {
		t.Errorf("got counted=%d message=%q, want 1 A", out.Counted, out.Response.Message)
	}

	if _, err := Tally([]group.Reply{reply("r1", wire.Stale())}); !errors.Is(err, failure.ErrBackendUnavailable) {
		t.Errorf("only stale: got %v, want backend unavailable", err)
	}
}

func TestTallyErrorAnswerWins(t *testing.T) {
	rejected := wire.FromError(failure.New(failure.KindValidation, "auction 1 is closed"))

	out, err := Tally([]group.Reply{reply("r1", rejected), reply("r2", rejected), reply("r3", wire.OK("ok", nil))})
	if err != nil {
		t.Fatalf("tally: %v", err)
	}

	if !errors.Is(out.Response.Err(), failure.ErrValidation) {
		t.Errorf("got %v, want validation error", out.Response.Err())
	}
}
