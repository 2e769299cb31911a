// Package coordinator is the front end of the auction service. It
// authenticates clients, allocates auction IDs, broadcasts operations to the
// replica group and resolves their answers by vote.
package coordinator

import (
	"context"
	"sync"
	"time"

	"AuctionHouse/internal/auth"
	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/group"
	"AuctionHouse/internal/keystore"
	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/metrics"
	"AuctionHouse/internal/vote"
	"AuctionHouse/internal/wire"
)

// Options configures a Coordinator.
type Options struct {
	Timeout time.Duration     // Timeout bounds one broadcast, group.DefaultTimeout if zero
	Metrics *metrics.Frontend // Metrics records operations, may be nil
}

// Coordinator serves client operations over a replica group.
type Coordinator struct {
	auth    *auth.Authenticator // auth runs handshakes and holds sessions
	group   group.Group         // group reaches the replicas
	keys    keystore.Store      // keys verifies client signatures
	ids     *IDAllocator        // ids assigns auction IDs
	timeout time.Duration       // timeout bounds broadcasts
	metrics *metrics.Frontend

	seedMu sync.Mutex // seedMu serializes seeding
	seeded bool       // seeded is set once IDs and sequence were read from the cluster
}

// New creates a coordinator.
func New(authn *auth.Authenticator, g group.Group, keys keystore.Store, ids *IDAllocator, opts Options) *Coordinator {
	if ids == nil {
		ids = &IDAllocator{}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = group.DefaultTimeout
	}

	return &Coordinator{
		auth:    authn,
		group:   g,
		keys:    keys,
		ids:     ids,
		timeout: timeout,
		metrics: opts.Metrics,
	}
}

// Seed reads the highest auction ID and sequence from every reachable
// replica. Later ID and sequence assignments continue above them.
func (c *Coordinator) Seed(ctx context.Context) error {
	c.seedMu.Lock()
	defer c.seedMu.Unlock()

	return c.seedLocked(ctx)
}

// ensureSeeded seeds once before the first mutating operation.
func (c *Coordinator) ensureSeeded(ctx context.Context) error {
	c.seedMu.Lock()
	defer c.seedMu.Unlock()

	if c.seeded {
		return nil
	}

	return c.seedLocked(ctx)
}

// seedLocked runs the getIdCounter query. Callers hold seedMu.
func (c *Coordinator) seedLocked(ctx context.Context) error {
	req := wire.EncodeRequest(&wire.Request{Op: wire.OpGetIDCounter})

	replies, err := c.group.Broadcast(ctx, req, group.Options{Mode: group.ModeAll, Timeout: c.timeout})
	if err != nil {
		logger.Warn("seed broadcast failed", "error", err)
		return failure.ErrBackendUnavailable
	}

	var maxID, maxSeq uint64
	counted := 0

	for _, r := range replies {
		resp, err := wire.DecodeResponse(r.Data)
		if err != nil || resp.Status != wire.StatusOK {
			continue
		}

		counter, err := wire.DecodeCounter(resp.Payload)
		if err != nil {
			continue
		}

		counted++
		maxID = max(maxID, counter.IDCounter)
		maxSeq = max(maxSeq, counter.LastSeq)
	}

	if counted == 0 {
		return failure.ErrBackendUnavailable
	}

	c.ids.Raise(maxID)
	c.group.SetSequence(maxSeq)
	c.seeded = true

	logger.Info("seeded from replicas",
		"replicas", counted,
		"id_counter", c.ids.Last(),
		"sequence", maxSeq,
	)

	return nil
}

// ChallengeServer runs the first handshake step for identity.
func (c *Coordinator) ChallengeServer(identity string, sealedNonce []byte) ([]byte, error) {
	bundle, err := c.auth.Challenge(identity, sealedNonce)
	c.countHandshake("challenge", err)

	return bundle, err
}

// AnswerChallenge runs the second handshake step for identity.
func (c *Coordinator) AnswerChallenge(identity string, proof []byte) (bool, error) {
	ok, err := c.auth.Answer(identity, proof)
	c.countHandshake("answer", err)

	return ok, err
}

// CreateAuction opens the auction sealed by seller under its session key,
// assigns it an ID and adds it on every replica.
func (c *Coordinator) CreateAuction(ctx context.Context, seller string, sealed []byte) (msg string, err error) {
	defer func() { c.countOutcome(wire.OpAddAuction, err) }()

	sess, err := c.auth.RequireEstablished(seller)
	if err != nil {
		return "", err
	}

	plain, err := sess.Open(seller, sealed)
	if err != nil {
		return "", failure.Authentication()
	}

	a, err := wire.DecodeAuction(plain)
	if err != nil {
		return "", failure.Newf(failure.KindProtocol, "malformed auction: %v", err)
	}

	if a.ID != 0 {
		logger.Warn("auction submitted with an ID", "seller", seller, "id", a.ID)
		return "", failure.New(failure.KindValidation, "auction must not carry an ID")
	}

	if a.Owner != seller {
		return "", failure.Newf(failure.KindAuthorization, "%s cannot create an auction owned by %s", seller, a.Owner)
	}

	if err := a.Validate(); err != nil {
		return "", err
	}

	if err := c.ensureSeeded(ctx); err != nil {
		return "", err
	}

	a.ID = c.ids.Next()

	resp, err := c.broadcast(ctx, &wire.Request{
		Op:        wire.OpAddAuction,
		AuctionID: a.ID,
		Identity:  seller,
		Body:      wire.EncodeAuction(a),
	}, group.ModeAll, true)
	if err != nil {
		return "", err
	}

	logger.Info("auction created", "id", a.ID, "owner", seller)

	return resp.Message, nil
}

// CloseAuction closes auctionID on behalf of the signer, who must own it.
func (c *Coordinator) CloseAuction(ctx context.Context, signed wire.Signed, auctionID uint64) (msg string, err error) {
	defer func() { c.countOutcome(wire.OpClose, err) }()

	if err := c.verify(signed, crypto.DomainIdentity); err != nil {
		return "", err
	}

	if string(signed.Payload) != signed.Identity {
		return "", failure.Authentication()
	}

	if _, err := c.auth.RequireEstablished(signed.Identity); err != nil {
		return "", err
	}

	if err := c.ensureSeeded(ctx); err != nil {
		return "", err
	}

	current, err := c.broadcast(ctx, &wire.Request{Op: wire.OpGetAuction, AuctionID: auctionID}, group.ModeFirst, false)
	if err != nil {
		return "", err
	}

	a, err := wire.DecodeAuction(current.Payload)
	if err != nil {
		return "", failure.Newf(failure.KindProtocol, "malformed auction: %v", err)
	}

	if a.Owner != signed.Identity {
		return "", failure.Newf(failure.KindAuthorization, "%s is not the owner of auction %d", signed.Identity, auctionID)
	}

	resp, err := c.broadcast(ctx, &wire.Request{
		Op:        wire.OpClose,
		AuctionID: auctionID,
		Identity:  signed.Identity,
	}, group.ModeAll, true)
	if err != nil {
		return "", err
	}

	logger.Info("auction closed", "id", auctionID, "result", resp.Message)

	return resp.Message, nil
}

// Bid places the signed bid on every replica.
func (c *Coordinator) Bid(ctx context.Context, signed wire.Signed) (msg string, err error) {
	defer func() { c.countOutcome(wire.OpBid, err) }()

	if err := c.verify(signed, crypto.DomainBid); err != nil {
		return "", err
	}

	bid, err := wire.DecodeBid(signed.Payload)
	if err != nil {
		return "", failure.Newf(failure.KindProtocol, "malformed bid: %v", err)
	}

	if bid.Bidder != signed.Identity {
		return "", failure.Authentication()
	}

	if _, err := c.auth.RequireEstablished(signed.Identity); err != nil {
		return "", err
	}

	if err := c.ensureSeeded(ctx); err != nil {
		return "", err
	}

	resp, err := c.broadcast(ctx, &wire.Request{
		Op:        wire.OpBid,
		AuctionID: bid.AuctionID,
		Amount:    bid.Amount,
		Identity:  bid.Bidder,
	}, group.ModeAll, true)
	if err != nil {
		return "", err
	}

	return resp.Message, nil
}

// Auctions returns the listing table from the first replica to answer.
func (c *Coordinator) Auctions(ctx context.Context) (msg string, err error) {
	defer func() { c.countOutcome(wire.OpGetAuctionList, err) }()

	resp, err := c.broadcast(ctx, &wire.Request{Op: wire.OpGetAuctionList}, group.ModeFirst, false)
	if err != nil {
		return "", err
	}

	return resp.Message, nil
}

// Sessions returns the number of established sessions.
func (c *Coordinator) Sessions() int {
	return c.auth.Sessions().Len()
}

// Reachable returns the number of replicas in the group view.
func (c *Coordinator) Reachable() int {
	return len(c.group.View())
}

// verify checks the signature of signed in domain against the signer's key.
func (c *Coordinator) verify(signed wire.Signed, domain string) error {
	pub, err := c.keys.Public(signed.Identity)
	if err != nil {
		return failure.Authentication()
	}

	if !signed.Verify(domain, pub) {
		logger.Debug("signature rejected", "identity", signed.Identity, "domain", domain)
		return failure.Authentication()
	}

	return nil
}

// broadcast sends req to the group and returns the winning answer, or the
// typed error it carries.
func (c *Coordinator) broadcast(ctx context.Context, req *wire.Request, mode group.Mode, ordered bool) (*wire.Response, error) {
	start := time.Now()

	replies, err := c.group.Broadcast(ctx, wire.EncodeRequest(req), group.Options{
		Mode:    mode,
		Timeout: c.timeout,
		Ordered: ordered,
	})
	if err != nil {
		logger.Warn("broadcast failed", "op", req.Op, "error", err)
		return nil, failure.ErrBackendUnavailable
	}

	if c.metrics != nil {
		c.metrics.Broadcasts.WithLabelValues(req.Op.String()).Observe(time.Since(start).Seconds())
		c.metrics.Replies.WithLabelValues(req.Op.String()).Observe(float64(len(replies)))
	}

	out, err := vote.Tally(replies)
	if err != nil {
		return nil, err
	}

	if out.Groups > 1 && c.metrics != nil {
		c.metrics.Disagreements.Inc()
	}

	logger.Debug("tallied",
		"op", req.Op,
		"votes", out.Votes,
		"counted", out.Counted,
		"groups", out.Groups,
		logger.Timed(start),
	)

	if err := out.Response.Err(); err != nil {
		return nil, err
	}

	return out.Response, nil
}

// countOutcome records the result kind of a client operation.
func (c *Coordinator) countOutcome(op wire.Op, err error) {
	if c.metrics != nil {
		c.metrics.Outcomes.WithLabelValues(op.String(), failure.KindOf(err).String()).Inc()
	}
}

// countHandshake records a handshake step.
func (c *Coordinator) countHandshake(step string, err error) {
	if c.metrics == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "rejected"
	}

	c.metrics.Handshakes.WithLabelValues(step, result).Inc()
}
