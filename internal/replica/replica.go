// Package replica holds the auction state of one replica. Mutations arrive
// with a sequence number assigned by the front end and are applied in that
// order; a replica that misses messages fetches the state from a peer.
package replica

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"AuctionHouse/internal/auction"
	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/metrics"
	"AuctionHouse/internal/storage"
	statesync "AuctionHouse/internal/sync"
	"AuctionHouse/internal/wire"
)

const (
	// defaultReadyTimeout bounds how long a request waits for the join.
	defaultReadyTimeout = 30 * time.Second

	// defaultResyncTimeout bounds the state transfer triggered by a gap.
	defaultResyncTimeout = 10 * time.Second

	// auctionPrefix is the storage prefix of auction records.
	auctionPrefix = "a:"
)

// keyLastSeq stores the last applied sequence.
var keyLastSeq = []byte("m:seq")

// ErrNotReady is returned while the replica has not finished joining.
var ErrNotReady = errors.New("replica not ready")

// Options configures a replica.
type Options struct {
	Store         *storage.Storage // Store persists state, nil keeps it in memory
	Syncer        Syncer           // Syncer fetches state from peers, nil disables transfers
	Metrics       *metrics.Replica // Metrics records handled ops, may be nil
	ReadyTimeout  time.Duration    // ReadyTimeout bounds waiting for the join
	ResyncTimeout time.Duration    // ResyncTimeout bounds retrying a transfer before a gap is adopted
}

// entry guards one auction.
type entry struct {
	mu sync.Mutex
	a  *auction.Auction
}

// Replica is the auction state machine of one replica.
type Replica struct {
	mu        sync.RWMutex      // mu guards auctions and idCounter, held exclusively to insert or snapshot
	auctions  map[uint64]*entry // auctions maps ID to auction
	idCounter uint64            // idCounter is the highest stored auction ID

	lastSeq atomic.Uint64 // lastSeq is the last applied sequence, written under mu
	seqMu   sync.Mutex    // seqMu serializes ordered operations

	store         *storage.Storage
	syncer        Syncer
	metrics       *metrics.Replica
	readyTimeout  time.Duration
	resyncTimeout time.Duration

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a replica and loads any state found in the store.
func New(opts Options) (*Replica, error) {
	r := &Replica{
		auctions:      make(map[uint64]*entry),
		store:         opts.Store,
		syncer:        opts.Syncer,
		metrics:       opts.Metrics,
		readyTimeout:  opts.ReadyTimeout,
		resyncTimeout: opts.ResyncTimeout,
		ready:         make(chan struct{}),
	}

	if r.readyTimeout <= 0 {
		r.readyTimeout = defaultReadyTimeout
	}

	if r.resyncTimeout <= 0 {
		r.resyncTimeout = defaultResyncTimeout
	}

	if err := r.load(); err != nil {
		return nil, fmt.Errorf("load state:\n%w", err)
	}

	return r, nil
}

// load reads persisted auctions and the last sequence.
func (r *Replica) load() error {
	if r.store == nil {
		return nil
	}

	err := r.store.IteratePrefix([]byte(auctionPrefix), func(_, value []byte) error {
		a, err := wire.DecodeAuction(value)
		if err != nil {
			return err
		}

		r.auctions[a.ID] = &entry{a: a}
		if a.ID > r.idCounter {
			r.idCounter = a.ID
		}

		return nil
	})
	if err != nil {
		return err
	}

	data, err := r.store.Get(keyLastSeq)
	if err != nil {
		return err
	}

	if len(data) == 8 {
		r.lastSeq.Store(binary.BigEndian.Uint64(data))
	}

	if len(r.auctions) > 0 || r.lastSeq.Load() > 0 {
		logger.Info("loaded persisted state",
			"auctions", len(r.auctions),
			"last_seq", r.lastSeq.Load(),
		)
	}

	return nil
}

// MarkReady opens the replica to requests.
func (r *Replica) MarkReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Ready reports whether the replica finished joining.
func (r *Replica) Ready() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// LastSeq returns the last applied sequence.
func (r *Replica) LastSeq() uint64 {
	return r.lastSeq.Load()
}

// Len returns the number of stored auctions.
func (r *Replica) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.auctions)
}

// IDCounter returns the highest stored auction ID.
func (r *Replica) IDCounter() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.idCounter
}

// Auction returns a copy of one auction.
func (r *Replica) Auction(id uint64) (*auction.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.auctions[id]
	if !ok {
		return nil, failure.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.a.Clone(), nil
}

// Auctions returns a copy of every auction.
func (r *Replica) Auctions() []*auction.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*auction.Auction, 0, len(r.auctions))
	for _, e := range r.auctions {
		e.mu.Lock()
		out = append(out, e.a.Clone())
		e.mu.Unlock()
	}

	return out
}

// Snapshot implements sync.Source. The exclusive lock excludes every
// in-flight mutation, so the sequence matches the auctions.
func (r *Replica) Snapshot() (*statesync.State, error) {
	if !r.Ready() {
		return nil, ErrNotReady
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st := &statesync.State{
		LastSeq:   r.lastSeq.Load(),
		IDCounter: r.idCounter,
		Auctions:  make([]*auction.Auction, 0, len(r.auctions)),
	}

	for _, e := range r.auctions {
		st.Auctions = append(st.Auctions, e.a.Clone())
	}

	return st, nil
}

// Restore replaces the whole state with st.
func (r *Replica) Restore(st *statesync.State) error {
	auctions := make(map[uint64]*entry, len(st.Auctions))
	pairs := make([]storage.KeyValue, 0, len(st.Auctions))

	counter := st.IDCounter
	for _, a := range st.Auctions {
		auctions[a.ID] = &entry{a: a.Clone()}
		pairs = append(pairs, storage.KeyValue{Key: auctionKey(a.ID), Value: wire.EncodeAuction(a)})

		if a.ID > counter {
			counter = a.ID
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		pairs = append(pairs, storage.KeyValue{Key: keyLastSeq, Value: seqValue(st.LastSeq)})

		if err := r.store.ReplacePrefix([]byte(auctionPrefix), pairs); err != nil {
			return fmt.Errorf("persist snapshot:\n%w", err)
		}
	}

	r.auctions = auctions
	r.idCounter = counter
	r.lastSeq.Store(st.LastSeq)

	return nil
}

// addAuction inserts an auction carrying its assigned ID.
func (r *Replica) addAuction(a *auction.Auction, seq uint64) (*wire.Response, error) {
	if a.ID == 0 {
		return nil, failure.New(failure.KindValidation, "auction has no ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.auctions[a.ID] = &entry{a: a}
	if a.ID > r.idCounter {
		r.idCounter = a.ID
	}

	r.persist(a, seq)
	r.advance(seq)

	return wire.OK(fmt.Sprintf("Successfully added an auction with ID %d", a.ID), nil), nil
}

// bid places a bid. Rejections still consume the sequence.
func (r *Replica) bid(id uint64, amount float64, bidder string, seq uint64) (*wire.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.auctions[id]
	if !ok {
		r.persist(nil, seq)
		r.advance(seq)
		return nil, failure.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	msg, err := e.a.Bid(amount, bidder)
	if err != nil {
		r.persist(nil, seq)
	} else {
		r.persist(e.a, seq)
	}
	r.advance(seq)

	if err != nil {
		return nil, err
	}

	return wire.OK(msg, nil), nil
}

// closeAuction closes an auction on behalf of requester.
func (r *Replica) closeAuction(id uint64, requester string, seq uint64) (*wire.Response, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.auctions[id]
	if !ok {
		r.persist(nil, seq)
		r.advance(seq)
		return nil, failure.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	msg, err := e.a.Close(requester)
	if err != nil {
		r.persist(nil, seq)
	} else {
		r.persist(e.a, seq)
	}
	r.advance(seq)

	if err != nil {
		return nil, err
	}

	return wire.OK(msg, wire.EncodeAuction(e.a)), nil
}

// advance records seq as applied. Callers hold mu.
func (r *Replica) advance(seq uint64) {
	if seq > r.lastSeq.Load() {
		r.lastSeq.Store(seq)
	}
}

// persist writes one auction and the sequence in a single batch. A nil
// auction only records the sequence. Failures are logged: the in-memory
// state stays authoritative.
func (r *Replica) persist(a *auction.Auction, seq uint64) {
	if r.store == nil {
		return
	}

	var pairs []storage.KeyValue
	if a != nil {
		pairs = append(pairs, storage.KeyValue{Key: auctionKey(a.ID), Value: wire.EncodeAuction(a)})
	}
	if seq > 0 {
		pairs = append(pairs, storage.KeyValue{Key: keyLastSeq, Value: seqValue(seq)})
	}

	if len(pairs) == 0 {
		return
	}

	if err := r.store.SetBatch(pairs); err != nil {
		logger.Error("persist state", "seq", seq, "error", err)
	}
}

// auctionKey returns the storage key of an auction.
func auctionKey(id uint64) []byte {
	key := make([]byte, len(auctionPrefix)+8)
	copy(key, auctionPrefix)
	binary.BigEndian.PutUint64(key[len(auctionPrefix):], id)

	return key
}

// seqValue encodes a sequence number.
func seqValue(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}
