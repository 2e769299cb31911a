package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/types"
)

const (
	// DefaultRequestTimeout bounds one snapshot request.
	DefaultRequestTimeout = 5 * time.Second
)

// ErrBehind is returned by a member whose state is older than requested.
var ErrBehind = errors.New("snapshot older than requested")

// requestID is a global counter for snapshot requests.
var requestID atomic.Uint64

// Requester can send requests and receive responses.
type Requester interface {
	Request(ctx context.Context, data []byte) ([]byte, error)
}

// Source provides the state served to joining replicas.
type Source interface {
	// Snapshot returns a consistent copy of the current state.
	Snapshot() (*State, error)
}

// RequestSnapshot requests a snapshot from a remote member holding at
// least minSeq and returns the verified state.
func RequestSnapshot(ctx context.Context, peer Requester, minSeq uint64) (*State, error) {
	reqID := requestID.Add(1)

	ctx, cancel := context.WithTimeout(ctx, DefaultRequestTimeout)
	defer cancel()

	logger.Debug("requesting snapshot", "request_id", reqID, "min_seq", minSeq)

	respData, err := peer.Request(ctx, buildSnapshotRequest(reqID, minSeq))
	if err != nil {
		return nil, fmt.Errorf("send request:\n%w", err)
	}

	compressed, err := parseSnapshotResponse(respData, reqID)
	if err != nil {
		return nil, err
	}

	data, err := DecompressSnapshot(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot:\n%w", err)
	}

	st, err := ParseSnapshot(data)
	if err != nil {
		return nil, err
	}

	if st.LastSeq < minSeq {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBehind, st.LastSeq, minSeq)
	}

	logger.Debug("received snapshot",
		"request_id", reqID,
		"compressed_size", len(compressed),
		"auctions", len(st.Auctions),
		"last_seq", st.LastSeq,
	)

	return st, nil
}

// parseSnapshotResponse extracts the compressed snapshot of a response.
func parseSnapshotResponse(data []byte, reqID uint64) (compressed []byte, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("snapshot response too short: %d bytes", len(data))
	}

	defer func() {
		if r := recover(); r != nil {
			compressed, err = nil, fmt.Errorf("malformed snapshot response: %v", r)
		}
	}()

	resp := types.GetRootAsSnapshotResponse(data, 0)
	if resp.RequestId() != reqID {
		return nil, fmt.Errorf("request ID mismatch: got %d, want %d", resp.RequestId(), reqID)
	}

	compressed = resp.DataBytes()
	if len(compressed) == 0 {
		return nil, fmt.Errorf("empty snapshot data")
	}

	return compressed, nil
}

// buildSnapshotRequest creates a FlatBuffers snapshot request.
func buildSnapshotRequest(reqID, minSeq uint64) []byte {
	builder := flatbuffers.NewBuilder(64)

	types.SnapshotRequestStart(builder)
	types.SnapshotRequestAddRequestId(builder, reqID)
	types.SnapshotRequestAddMinSeq(builder, minSeq)
	offset := types.SnapshotRequestEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// HandleSnapshotRequest handles an incoming snapshot request.
// Returns the response data to send back.
func HandleSnapshotRequest(reqData []byte, source Source) (resp []byte, err error) {
	if len(reqData) < 8 {
		return nil, fmt.Errorf("snapshot request too short: %d bytes", len(reqData))
	}

	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("malformed snapshot request: %v", r)
		}
	}()

	req := types.GetRootAsSnapshotRequest(reqData, 0)
	reqID := req.RequestId()

	st, err := source.Snapshot()
	if err != nil {
		return nil, err
	}

	if st.LastSeq < req.MinSeq() {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrBehind, st.LastSeq, req.MinSeq())
	}

	data := CreateSnapshot(st)

	compressed, err := CompressSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("compress snapshot:\n%w", err)
	}

	logger.Debug("sending snapshot",
		"request_id", reqID,
		"last_seq", st.LastSeq,
		"size", len(compressed),
	)

	return buildSnapshotResponse(reqID, compressed, uint64(len(data))), nil
}

// buildSnapshotResponse creates a FlatBuffers snapshot response.
func buildSnapshotResponse(reqID uint64, compressed []byte, uncompressedSize uint64) []byte {
	builder := flatbuffers.NewBuilder(len(compressed) + 64)

	dataOffset := builder.CreateByteVector(compressed)

	types.SnapshotResponseStart(builder)
	types.SnapshotResponseAddRequestId(builder, reqID)
	types.SnapshotResponseAddData(builder, dataOffset)
	types.SnapshotResponseAddUncompressedSize(builder, uncompressedSize)
	offset := types.SnapshotResponseEnd(builder)
	builder.Finish(offset)

	return builder.FinishedBytes()
}
