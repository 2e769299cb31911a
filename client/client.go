// Package client talks to the auction front end over HTTP. It runs the
// handshake and signs or seals every request with the caller's keys.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"AuctionHouse/internal/api"
	"AuctionHouse/internal/auction"
	"AuctionHouse/internal/auth"
	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/wire"
)

// defaultTimeout bounds one HTTP request.
const defaultTimeout = 30 * time.Second

// Client is an authenticated connection to the front end.
type Client struct {
	baseURL string                // baseURL is the front end URL, e.g. "http://127.0.0.1:8080"
	http    *http.Client          // http sends the requests
	self    *crypto.Identity      // self is the caller's key material
	server  crypto.PublicIdentity // server is the front end's public identity

	mu      sync.Mutex
	session *auth.Session // session is set once the handshake succeeded
}

// New creates a client for the front end at addr. addr may omit the scheme.
func New(addr string, self *crypto.Identity, server crypto.PublicIdentity) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		self:    self,
		server:  server,
	}
}

// Identity returns the caller's identity.
func (c *Client) Identity() string {
	return c.self.Name
}

// Handshake authenticates the server and the caller and establishes a
// session key. A server that fails to echo the challenge aborts the
// handshake with auth.ErrServerNotAuthenticated.
func (c *Client) Handshake(ctx context.Context) error {
	h := auth.NewHandshake(c.self, c.server)

	sealed, err := h.Begin()
	if err != nil {
		return err
	}

	var challenge api.ChallengeResponse
	if err := c.postJSON(ctx, "/v1/challenge", api.ChallengeRequest{Identity: c.self.Name, Nonce: sealed}, &challenge); err != nil {
		return err
	}

	proof, sess, err := h.Respond(challenge.Bundle)
	if err != nil {
		return err
	}

	var answer api.AnswerResponse
	if err := c.postJSON(ctx, "/v1/challenge/answer", api.AnswerRequest{Identity: c.self.Name, Proof: proof}, &answer); err != nil {
		return err
	}

	if !answer.Established {
		return failure.Authentication()
	}

	c.mu.Lock()
	c.session = &sess
	c.mu.Unlock()

	return nil
}

// CreateAuction creates an auction owned by the caller.
func (c *Client) CreateAuction(ctx context.Context, description string, startPrice, reservePrice float64) (string, error) {
	sess, err := c.requireSession()
	if err != nil {
		return "", err
	}

	a, err := auction.New(description, c.self.Name, startPrice, reservePrice)
	if err != nil {
		return "", err
	}

	sealed, err := sess.Seal(c.self.Name, wire.EncodeAuction(a))
	if err != nil {
		return "", fmt.Errorf("seal auction:\n%w", err)
	}

	var resp api.MessageResponse
	if err := c.postJSON(ctx, "/v1/auctions", api.CreateAuctionRequest{Identity: c.self.Name, Auction: sealed}, &resp); err != nil {
		return "", err
	}

	return resp.Message, nil
}

// CloseAuction closes an auction owned by the caller.
func (c *Client) CloseAuction(ctx context.Context, id uint64) (string, error) {
	var resp api.MessageResponse

	path := fmt.Sprintf("/v1/auctions/%d/close", id)
	if err := c.postJSON(ctx, path, api.SignedRequest{Signed: wire.SignIdentity(c.self)}, &resp); err != nil {
		return "", err
	}

	return resp.Message, nil
}

// Bid places a bid of amount on auction id.
func (c *Client) Bid(ctx context.Context, id uint64, amount float64) (string, error) {
	var resp api.MessageResponse

	if err := c.postJSON(ctx, "/v1/bids", api.SignedRequest{Signed: wire.SignBid(c.self, id, amount)}, &resp); err != nil {
		return "", err
	}

	return resp.Message, nil
}

// Auctions returns the listing table.
func (c *Client) Auctions(ctx context.Context) (string, error) {
	return c.getText(ctx, "/v1/auctions")
}

// requireSession returns the established session.
func (c *Client) requireSession() (*auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, failure.New(failure.KindAuthentication, "handshake required")
	}

	return c.session, nil
}
