package sync

import (
	"bytes"
	"testing"

	"AuctionHouse/internal/auction"
)

// buildTestState creates a state with n auctions, some with bids.
func buildTestState(t *testing.T, n int) *State {
	t.Helper()

	st := &State{LastSeq: uint64(n) * 2, IDCounter: uint64(n)}

	for i := n; i >= 1; i-- {
		a, err := auction.New("item", "alice", 10, 20)
		if err != nil {
			t.Fatalf("new auction: %v", err)
		}
		a.ID = uint64(i)

		if i%2 == 0 {
			if _, err := a.Bid(float64(10+i), "bob"); err != nil {
				t.Fatalf("bid: %v", err)
			}
		}

		st.Auctions = append(st.Auctions, a)
	}

	return st
}

func TestCreateSnapshot_Empty(t *testing.T) {
	data := CreateSnapshot(&State{})

	st, err := ParseSnapshot(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if st.LastSeq != 0 || st.IDCounter != 0 || len(st.Auctions) != 0 {
		t.Errorf("got %+v, want empty state", st)
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	st := buildTestState(t, 5)

	got, err := ParseSnapshot(CreateSnapshot(st))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got.LastSeq != 10 || got.IDCounter != 5 {
		t.Errorf("got seq=%d counter=%d, want 10 5", got.LastSeq, got.IDCounter)
	}

	if len(got.Auctions) != 5 {
		t.Fatalf("got %d auctions, want 5", len(got.Auctions))
	}

	for i, a := range got.Auctions {
		if a.ID != uint64(i+1) {
			t.Errorf("position %d: got ID %d, want %d", i, a.ID, i+1)
		}
	}

	if got.Auctions[1].Winner != "bob" || got.Auctions[1].CurrentBid != 12 {
		t.Errorf("auction 2 lost its bid: %+v", got.Auctions[1])
	}
}

func TestDeterministicSnapshot(t *testing.T) {
	a := CreateSnapshot(buildTestState(t, 4))
	b := CreateSnapshot(buildTestState(t, 4))

	if !bytes.Equal(a, b) {
		t.Error("equal states produce different snapshots")
	}
}

func TestChecksumDetectsCorruption(t *testing.T) {
	data := CreateSnapshot(buildTestState(t, 3))

	// flip a byte inside an item description
	idx := bytes.Index(data, []byte("item"))
	if idx < 0 {
		t.Fatal("description not found in snapshot")
	}
	data[idx] ^= 0x20

	if _, err := ParseSnapshot(data); err == nil {
		t.Error("expected checksum error for corrupted snapshot")
	}
}

func TestParseSnapshotGarbage(t *testing.T) {
	if _, err := ParseSnapshot([]byte{0xff, 0xff, 0xff, 0x7f, 1, 2, 3, 4}); err == nil {
		t.Error("expected error for garbage")
	}
	if _, err := ParseSnapshot(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestCompressDecompress_Roundtrip(t *testing.T) {
	data := CreateSnapshot(buildTestState(t, 50))

	compressed, err := CompressSnapshot(data)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	if len(compressed) >= len(data) {
		t.Errorf("compression did not reduce size: %d >= %d", len(compressed), len(data))
	}

	decompressed, err := DecompressSnapshot(compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	if !bytes.Equal(decompressed, data) {
		t.Error("roundtrip mismatch")
	}
}
