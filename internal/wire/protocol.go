// Package wire defines the messages exchanged between the front end and the
// replicas, and between replicas during state transfer.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"AuctionHouse/internal/failure"
)

// Op identifies a replica operation.
type Op uint8

// Replica operations.
const (
	OpAddAuction     Op = 0x01 // Insert an auction with an assigned ID
	OpBid            Op = 0x02 // Place a bid
	OpClose          Op = 0x03 // Close an auction
	OpGetAuction     Op = 0x04 // Read one auction
	OpGetAuctionList Op = 0x05 // Read the listing table
	OpGetIDCounter   Op = 0x06 // Read the highest applied ID and sequence
	OpSnapshot       Op = 0x07 // Request a full state snapshot
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpAddAuction:
		return "addAuction"
	case OpBid:
		return "bid"
	case OpClose:
		return "closeAuction"
	case OpGetAuction:
		return "getAuction"
	case OpGetAuctionList:
		return "getAuctionList"
	case OpGetIDCounter:
		return "getIdCounter"
	case OpSnapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("op(0x%02x)", uint8(o))
	}
}

// Mutating reports whether the op changes replica state.
func (o Op) Mutating() bool {
	return o == OpAddAuction || o == OpBid || o == OpClose
}

// Status is the outcome class of a response.
type Status uint8

// Response statuses.
const (
	StatusOK    Status = 0x00 // Operation applied or query answered
	StatusError Status = 0x01 // Operation rejected, Kind says why
	StatusStale Status = 0x02 // Ordered operation already applied
)

// requestHeaderSize is [1B op] [8B auction] [8B amount] [2B identity len].
const requestHeaderSize = 1 + 8 + 8 + 2

// Request is one operation sent to a replica.
type Request struct {
	Op        Op      // Op is the operation
	AuctionID uint64  // AuctionID is the target auction, 0 if unused
	Amount    float64 // Amount is the bid value, 0 if unused
	Identity  string  // Identity is the bidder or requester
	Body      []byte  // Body carries the encoded auction or snapshot request
}

// EncodeRequest encodes a request.
// Format: [1B op] [8B auctionID] [8B amount] [2B idLen] [id] [4B bodyLen] [body]
func EncodeRequest(req *Request) []byte {
	buf := make([]byte, requestHeaderSize, requestHeaderSize+len(req.Identity)+4+len(req.Body))

	buf[0] = byte(req.Op)
	binary.BigEndian.PutUint64(buf[1:9], req.AuctionID)
	binary.BigEndian.PutUint64(buf[9:17], math.Float64bits(req.Amount))
	binary.BigEndian.PutUint16(buf[17:19], uint16(len(req.Identity)))

	buf = append(buf, req.Identity...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(req.Body)))
	buf = append(buf, req.Body...)

	return buf
}

// DecodeRequest decodes a request.
func DecodeRequest(data []byte) (*Request, error) {
	if len(data) < requestHeaderSize {
		return nil, fmt.Errorf("request too short: %d < %d", len(data), requestHeaderSize)
	}

	req := &Request{
		Op:        Op(data[0]),
		AuctionID: binary.BigEndian.Uint64(data[1:9]),
		Amount:    math.Float64frombits(binary.BigEndian.Uint64(data[9:17])),
	}

	idLen := int(binary.BigEndian.Uint16(data[17:19]))
	rest := data[requestHeaderSize:]

	if len(rest) < idLen+4 {
		return nil, fmt.Errorf("identity truncated: need %d, have %d", idLen+4, len(rest))
	}

	req.Identity = string(rest[:idLen])
	rest = rest[idLen:]

	bodyLen := int(binary.BigEndian.Uint32(rest[:4]))
	rest = rest[4:]

	if len(rest) != bodyLen {
		return nil, fmt.Errorf("body length: got %d, want %d", len(rest), bodyLen)
	}

	if bodyLen > 0 {
		req.Body = append([]byte(nil), rest...)
	}

	return req, nil
}

// responseHeaderSize is [1B status] [1B kind] [4B message len].
const responseHeaderSize = 1 + 1 + 4

// Response is a replica's answer to a Request.
type Response struct {
	Status  Status       // Status is the outcome class
	Kind    failure.Kind // Kind classifies an error status
	Message string       // Message is the result or error text
	Payload []byte       // Payload carries structured results
}

// OK builds a success response.
func OK(message string, payload []byte) *Response {
	return &Response{Status: StatusOK, Message: message, Payload: payload}
}

// Stale builds the response to an already applied ordered op.
func Stale() *Response {
	return &Response{Status: StatusStale}
}

// FromError builds an error response carrying err's kind.
func FromError(err error) *Response {
	return &Response{
		Status:  StatusError,
		Kind:    failure.KindOf(err),
		Message: failure.MessageOf(err),
	}
}

// Err returns the typed error of an error response, nil otherwise.
func (r *Response) Err() error {
	if r.Status != StatusError {
		return nil
	}

	return failure.New(r.Kind, r.Message)
}

// EncodeResponse encodes a response.
// Format: [1B status] [1B kind] [4B msgLen] [msg] [4B payloadLen] [payload]
func EncodeResponse(resp *Response) []byte {
	buf := make([]byte, responseHeaderSize, responseHeaderSize+len(resp.Message)+4+len(resp.Payload))

	buf[0] = byte(resp.Status)
	buf[1] = byte(resp.Kind)
	binary.BigEndian.PutUint32(buf[2:6], uint32(len(resp.Message)))

	buf = append(buf, resp.Message...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(resp.Payload)))
	buf = append(buf, resp.Payload...)

	return buf
}

// DecodeResponse decodes a response.
func DecodeResponse(data []byte) (*Response, error) {
	if len(data) < responseHeaderSize {
		return nil, fmt.Errorf("response too short: %d < %d", len(data), responseHeaderSize)
	}

	resp := &Response{
		Status: Status(data[0]),
		Kind:   failure.Kind(data[1]),
	}

	msgLen := int(binary.BigEndian.Uint32(data[2:6]))
	rest := data[responseHeaderSize:]

	if len(rest) < msgLen+4 {
		return nil, fmt.Errorf("message truncated: need %d, have %d", msgLen+4, len(rest))
	}

	resp.Message = string(rest[:msgLen])
	rest = rest[msgLen:]

	payloadLen := int(binary.BigEndian.Uint32(rest[:4]))
	rest = rest[4:]

	if len(rest) != payloadLen {
		return nil, fmt.Errorf("payload length: got %d, want %d", len(rest), payloadLen)
	}

	if payloadLen > 0 {
		resp.Payload = append([]byte(nil), rest...)
	}

	return resp, nil
}

// Counter is the payload of a getIdCounter response.
type Counter struct {
	IDCounter uint64 // IDCounter is the highest applied auction ID
	LastSeq   uint64 // LastSeq is the last applied ordered sequence
}

// EncodeCounter encodes a counter payload.
// Format: [8B idCounter] [8B lastSeq]
func EncodeCounter(c Counter) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], c.IDCounter)
	binary.BigEndian.PutUint64(buf[8:16], c.LastSeq)

	return buf
}

// DecodeCounter decodes a counter payload.
func DecodeCounter(data []byte) (Counter, error) {
	if len(data) != 16 {
		return Counter{}, fmt.Errorf("counter size: got %d, want 16", len(data))
	}

	return Counter{
		IDCounter: binary.BigEndian.Uint64(data[0:8]),
		LastSeq:   binary.BigEndian.Uint64(data[8:16]),
	}, nil
}
