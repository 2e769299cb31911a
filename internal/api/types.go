package api

import "AuctionHouse/internal/wire"

// ChallengeRequest is the body of POST /v1/challenge.
type ChallengeRequest struct {
	Identity string `json:"identity"` // Identity is the caller
	Nonce    []byte `json:"nonce"`    // Nonce is the client challenge sealed to the server key
}

// ChallengeResponse carries the server bundle sealed to the caller's key.
type ChallengeResponse struct {
	Bundle []byte `json:"bundle"`
}

// AnswerRequest is the body of POST /v1/challenge/answer.
type AnswerRequest struct {
	Identity string `json:"identity"` // Identity is the caller
	Proof    []byte `json:"proof"`    // Proof is the server challenge sealed under the session key
}

// AnswerResponse reports whether the session is established.
type AnswerResponse struct {
	Established bool `json:"established"`
}

// CreateAuctionRequest is the body of POST /v1/auctions.
type CreateAuctionRequest struct {
	Identity string `json:"identity"` // Identity is the seller
	Auction  []byte `json:"auction"`  // Auction is the encoded auction sealed under the session key
}

// SignedRequest is the body of the close and bid endpoints.
type SignedRequest struct {
	Signed wire.Signed `json:"signed"`
}

// MessageResponse carries the result message of an operation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every error status.
type ErrorResponse struct {
	Error string `json:"error"` // Error is the human readable message
	Kind  string `json:"kind"`  // Kind is the failure class
}
