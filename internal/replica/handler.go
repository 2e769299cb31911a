package replica

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AuctionHouse/internal/auction"
	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/group"
	"AuctionHouse/internal/logger"
	statesync "AuctionHouse/internal/sync"
	"AuctionHouse/internal/wire"
)

const (
	// retryBackoffMin is the first pause between transfer attempts.
	retryBackoffMin = 50 * time.Millisecond

	// retryBackoffMax caps the pause between transfer attempts.
	retryBackoffMax = time.Second
)

// HandleFrame handles one framed request from the front end or a peer and
// returns the encoded response. Errors are carried inside the response.
func (r *Replica) HandleFrame(data []byte) []byte {
	seq, payload, err := group.ParseFrame(data)
	if err != nil {
		return wire.EncodeResponse(wire.FromError(failure.New(failure.KindProtocol, err.Error())))
	}

	req, err := wire.DecodeRequest(payload)
	if err != nil {
		return wire.EncodeResponse(wire.FromError(failure.New(failure.KindProtocol, err.Error())))
	}

	resp := r.Handle(seq, req)
	r.observe(req.Op, resp)

	return wire.EncodeResponse(resp)
}

// Handle executes one request. seq is 0 for unordered requests.
func (r *Replica) Handle(seq uint64, req *wire.Request) *wire.Response {
	if req.Op == wire.OpSnapshot {
		return r.handleSnapshot(req)
	}

	if err := r.waitReady(); err != nil {
		return wire.FromError(err)
	}

	var (
		resp *wire.Response
		err  error
	)

	if req.Op.Mutating() {
		resp, err = r.applyOrdered(seq, req)
	} else {
		resp, err = r.query(req)
	}

	if err != nil {
		return wire.FromError(err)
	}

	return resp
}

// handleSnapshot serves a state transfer request from a peer.
func (r *Replica) handleSnapshot(req *wire.Request) *wire.Response {
	data, err := statesync.HandleSnapshotRequest(req.Body, r)
	if errors.Is(err, statesync.ErrBehind) {
		return wire.FromError(failure.New(failure.KindNotFound, err.Error()))
	}
	if err != nil {
		return wire.FromError(failure.New(failure.KindBackendUnavailable, err.Error()))
	}

	return wire.OK("", data)
}

// waitReady blocks until the join completed or the timeout expires.
func (r *Replica) waitReady() error {
	select {
	case <-r.ready:
		return nil
	default:
	}

	timer := time.NewTimer(r.readyTimeout)
	defer timer.Stop()

	select {
	case <-r.ready:
		return nil
	case <-timer.C:
		return failure.New(failure.KindBackendUnavailable, ErrNotReady.Error())
	}
}

// applyOrdered applies a mutation in sequence order. An already applied
// sequence is answered Stale; a gap triggers a state transfer first.
func (r *Replica) applyOrdered(seq uint64, req *wire.Request) (*wire.Response, error) {
	if seq == 0 {
		return nil, failure.Newf(failure.KindProtocol, "%s without sequence", req.Op)
	}

	r.seqMu.Lock()
	defer r.seqMu.Unlock()

	last := r.lastSeq.Load()
	if seq <= last {
		logger.Debug("stale operation", "op", req.Op, "seq", seq, "last_seq", last)
		return wire.Stale(), nil
	}

	if seq > last+1 {
		r.resync(seq - 1)

		if last = r.lastSeq.Load(); seq <= last {
			logger.Debug("operation covered by transfer", "op", req.Op, "seq", seq, "last_seq", last)
			return wire.Stale(), nil
		}
	}

	return r.apply(seq, req)
}

// apply executes one mutation.
func (r *Replica) apply(seq uint64, req *wire.Request) (*wire.Response, error) {
	switch req.Op {
	case wire.OpAddAuction:
		a, err := wire.DecodeAuction(req.Body)
		if err != nil {
			return nil, failure.New(failure.KindProtocol, err.Error())
		}
		return r.addAuction(a, seq)

	case wire.OpBid:
		return r.bid(req.AuctionID, req.Amount, req.Identity, seq)

	case wire.OpClose:
		return r.closeAuction(req.AuctionID, req.Identity, seq)

	default:
		return nil, failure.Newf(failure.KindProtocol, "unknown mutation %s", req.Op)
	}
}

// query answers a read.
func (r *Replica) query(req *wire.Request) (*wire.Response, error) {
	switch req.Op {
	case wire.OpGetAuction:
		a, err := r.Auction(req.AuctionID)
		if err != nil {
			return nil, err
		}
		return wire.OK("", wire.EncodeAuction(a)), nil

	case wire.OpGetAuctionList:
		return wire.OK(auction.FormatList(r.Auctions()), nil), nil

	case wire.OpGetIDCounter:
		r.mu.RLock()
		c := wire.Counter{IDCounter: r.idCounter, LastSeq: r.lastSeq.Load()}
		r.mu.RUnlock()
		return wire.OK("", wire.EncodeCounter(c)), nil

	default:
		return nil, failure.Newf(failure.KindProtocol, "unknown op %s", req.Op)
	}
}

// resync fetches a state holding at least minSeq. Callers hold seqMu.
// Failed transfers are retried until the resync timeout; the gap is only
// adopted when no peer could provide the state by then.
func (r *Replica) resync(minSeq uint64) {
	last := r.lastSeq.Load()

	if r.syncer == nil {
		logger.Warn("sequence gap without peers, adopting", "last_seq", last, "want", minSeq)
		r.countResync("adopted")
		return
	}

	logger.Info("sequence gap, fetching state", "last_seq", last, "want", minSeq)

	ctx, cancel := context.WithTimeout(context.Background(), r.resyncTimeout)
	defer cancel()

	var (
		st       *statesync.State
		from     string
		err      error
		attempts int
	)

	retry(ctx, func() bool {
		attempts++
		st, from, err = r.syncer.Fetch(ctx, minSeq)
		if err == nil || errors.Is(err, statesync.ErrNoMembers) {
			return true
		}
		logger.Debug("state transfer attempt failed", "attempt", attempts, "want", minSeq, "error", err)
		return false
	})

	if err != nil {
		logger.Warn("state transfer failed, adopting gap",
			"last_seq", last,
			"want", minSeq,
			"attempts", attempts,
			"error", err,
		)
		r.countResync("adopted")
		return
	}

	if err := r.Restore(st); err != nil {
		logger.Error("restore state", "from", from, "error", err)
		r.countResync("failed")
		return
	}

	logger.Info("state transferred",
		"from", from,
		"last_seq", st.LastSeq,
		"auctions", len(st.Auctions),
		"attempts", attempts,
	)
	r.countResync("ok")
}

// Join loads the freshest state held by the peers in view, then opens the
// replica to requests. Peers that cannot answer yet are asked again until
// ctx ends; local state is kept when no peer is ahead.
func (r *Replica) Join(ctx context.Context) error {
	defer r.MarkReady()

	if r.syncer == nil {
		return nil
	}

	r.seqMu.Lock()
	defer r.seqMu.Unlock()

	last := r.lastSeq.Load()

	var (
		best *statesync.State
		from string
		err  error
	)

	retry(ctx, func() bool {
		var (
			st  *statesync.State
			src string
		)

		st, src, err = r.syncer.Freshest(ctx, last)
		if st != nil && (best == nil || st.LastSeq > best.LastSeq) {
			best, from = st, src
		}

		if err == nil || errors.Is(err, statesync.ErrNoMembers) {
			return true
		}
		logger.Debug("waiting for peer state", "error", err)
		return false
	})

	if err != nil && !errors.Is(err, statesync.ErrNoMembers) {
		logger.Info("not every peer answered before the join deadline", "reason", err)
	}

	if best == nil || best.LastSeq <= last {
		logger.Info("local state is current", "last_seq", last)
		return nil
	}

	if err := r.Restore(best); err != nil {
		return fmt.Errorf("restore joined state:\n%w", err)
	}

	logger.Info("joined group",
		"from", from,
		"last_seq", best.LastSeq,
		"auctions", len(best.Auctions),
	)
	r.countResync("ok")

	return nil
}

// retry calls fn until it reports done or ctx ends, doubling the pause
// between attempts up to retryBackoffMax.
func retry(ctx context.Context, fn func() bool) {
	backoff := retryBackoffMin

	for !fn() {
		timer := time.NewTimer(backoff)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		backoff = min(backoff*2, retryBackoffMax)
	}
}

// observe records a handled request.
func (r *Replica) observe(op wire.Op, resp *wire.Response) {
	if r.metrics == nil {
		return
	}

	status := "ok"
	switch resp.Status {
	case wire.StatusStale:
		status = "stale"
	case wire.StatusError:
		status = resp.Kind.String()
	}

	r.metrics.Applied.WithLabelValues(op.String(), status).Inc()
}

// countResync records a state transfer outcome.
func (r *Replica) countResync(result string) {
	if r.metrics != nil {
		r.metrics.Resyncs.WithLabelValues(result).Inc()
	}
}
