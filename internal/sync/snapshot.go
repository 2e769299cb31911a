// Package sync transfers full replica state between replicas. A snapshot is
// a FlatBuffers table holding every auction, the ID counter and the last
// applied sequence, protected by a BLAKE3 checksum and zstd-compressed on
// the wire.
package sync

import (
	"encoding/binary"
	"fmt"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"AuctionHouse/internal/auction"
	"AuctionHouse/internal/types"
	"AuctionHouse/internal/wire"
)

const (
	// snapshotVersion is the current snapshot format version.
	snapshotVersion = 1
)

// State is the replica state carried by a snapshot.
type State struct {
	LastSeq   uint64             // LastSeq is the last applied ordered sequence
	IDCounter uint64             // IDCounter is the highest applied auction ID
	Auctions  []*auction.Auction // Auctions are sorted by ID
}

// CreateSnapshot serializes st with its checksum.
// The auctions of st are sorted in place.
func CreateSnapshot(st *State) []byte {
	sortAuctions(st.Auctions)

	encoded := make([][]byte, len(st.Auctions))
	for i, a := range st.Auctions {
		encoded[i] = wire.EncodeAuction(a)
	}

	checksum := computeChecksum(snapshotVersion, st.LastSeq, st.IDCounter, encoded)

	builder := flatbuffers.NewBuilder(1024)

	auctionOffsets := make([]flatbuffers.UOffsetT, len(st.Auctions))
	for i, a := range st.Auctions {
		auctionOffsets[i] = wire.BuildAuction(builder, a)
	}

	types.SnapshotStartAuctionsVector(builder, len(auctionOffsets))
	for i := len(auctionOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(auctionOffsets[i])
	}
	auctionsVector := builder.EndVector(len(auctionOffsets))

	checksumOffset := builder.CreateByteVector(checksum[:])

	types.SnapshotStart(builder)
	types.SnapshotAddVersion(builder, snapshotVersion)
	types.SnapshotAddLastSeq(builder, st.LastSeq)
	types.SnapshotAddIdCounter(builder, st.IDCounter)
	types.SnapshotAddAuctions(builder, auctionsVector)
	types.SnapshotAddChecksum(builder, checksumOffset)
	offset := types.SnapshotEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// ParseSnapshot decodes a snapshot and verifies its checksum.
func ParseSnapshot(data []byte) (st *State, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("snapshot too short: %d bytes", len(data))
	}

	// malformed offsets make the generated accessors index out of range
	defer func() {
		if r := recover(); r != nil {
			st, err = nil, fmt.Errorf("malformed snapshot: %v", r)
		}
	}()

	snapshot := types.GetRootAsSnapshot(data, 0)

	if v := snapshot.Version(); v != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", v)
	}

	st = &State{
		LastSeq:   snapshot.LastSeq(),
		IDCounter: snapshot.IdCounter(),
		Auctions:  make([]*auction.Auction, snapshot.AuctionsLength()),
	}

	var table types.Auction
	for i := range st.Auctions {
		if !snapshot.Auctions(&table, i) {
			return nil, fmt.Errorf("read auction %d", i)
		}

		a, err := wire.AuctionFromTable(&table)
		if err != nil {
			return nil, fmt.Errorf("decode auction %d:\n%w", i, err)
		}
		st.Auctions[i] = a
	}

	if err := verifyChecksum(snapshot, st); err != nil {
		return nil, fmt.Errorf("verify checksum:\n%w", err)
	}

	return st, nil
}

// verifyChecksum recomputes the checksum over the decoded state.
func verifyChecksum(snapshot *types.Snapshot, st *State) error {
	stored := snapshot.ChecksumBytes()
	if len(stored) != 32 {
		return fmt.Errorf("invalid checksum length: %d", len(stored))
	}

	sortAuctions(st.Auctions)

	encoded := make([][]byte, len(st.Auctions))
	for i, a := range st.Auctions {
		encoded[i] = wire.EncodeAuction(a)
	}

	computed := computeChecksum(snapshot.Version(), st.LastSeq, st.IDCounter, encoded)

	if [32]byte(stored) != computed {
		return fmt.Errorf("checksum mismatch")
	}

	return nil
}

// sortAuctions sorts auctions by ID for deterministic ordering.
func sortAuctions(auctions []*auction.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].ID < auctions[j].ID
	})
}

// computeChecksum computes a blake3 checksum over canonical snapshot data.
// Format: version (4 bytes) + lastSeq (8 bytes) + idCounter (8 bytes) + length-prefixed auctions
func computeChecksum(version uint32, lastSeq, idCounter uint64, auctions [][]byte) [32]byte {
	hasher := blake3.New()

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], version)
	hasher.Write(buf[:4])

	binary.BigEndian.PutUint64(buf[:], lastSeq)
	hasher.Write(buf[:])

	binary.BigEndian.PutUint64(buf[:], idCounter)
	hasher.Write(buf[:])

	for _, a := range auctions {
		binary.BigEndian.PutUint32(buf[:4], uint32(len(a)))
		hasher.Write(buf[:4])
		hasher.Write(a)
	}

	var checksum [32]byte
	hasher.Sum(checksum[:0])

	return checksum
}

// CompressSnapshot compresses snapshot data using zstd.
func CompressSnapshot(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// DecompressSnapshot decompresses zstd-compressed snapshot data.
func DecompressSnapshot(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
