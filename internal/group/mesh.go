package group

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/network"
)

const (
	// memberQueueSize is the number of pending messages per member.
	memberQueueSize = 1024

	// memberRequestTimeout bounds one delivery to one member. It is longer
	// than broadcast timeouts so slow members keep applying ordered messages
	// after the caller stopped waiting.
	memberRequestTimeout = 30 * time.Second
)

// ErrClosed is returned by operations on a closed mesh.
var ErrClosed = errors.New("group closed")

// job is one message queued for one member.
type job struct {
	frame   []byte       // frame is the sequenced message
	replies chan<- reply // replies receives the outcome, buffered
}

// reply is the outcome of one delivery.
type reply struct {
	member string
	data   []byte
	err    error
}

// member serializes deliveries to one address.
type member struct {
	addr  string
	queue chan job
}

// Mesh is a Group over QUIC connections to a fixed member list.
type Mesh struct {
	node    *network.Node      // node owns the connections
	members map[string]*member // members maps address to its delivery queue
	order   []string           // order lists member addresses, sorted

	sendMu sync.Mutex // sendMu orders enqueues across members
	seq    uint64     // seq is the last assigned sequence, guarded by sendMu

	viewMu   sync.Mutex   // viewMu protects onChange
	onChange []func(View) // onChange are view callbacks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMesh creates a mesh over node with the given member addresses and
// starts maintaining a connection to each of them.
func NewMesh(node *network.Node, addrs []string) *Mesh {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Mesh{
		node:    node,
		members: make(map[string]*member, len(addrs)),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, addr := range addrs {
		if _, dup := m.members[addr]; dup {
			continue
		}

		mem := &member{addr: addr, queue: make(chan job, memberQueueSize)}
		m.members[addr] = mem
		m.order = append(m.order, addr)

		m.wg.Add(1)
		go m.deliverLoop(mem)
	}
	sort.Strings(m.order)

	node.OnConnect(func(p *network.Peer) { m.viewChanged(p.Address(), true) })
	node.OnDisconnect(func(p *network.Peer) { m.viewChanged(p.Address(), false) })

	for _, addr := range m.order {
		node.Maintain(addr)
	}

	return m
}

// Members returns every configured member, reachable or not.
func (m *Mesh) Members() []string {
	return append([]string(nil), m.order...)
}

// Broadcast implements Group.
func (m *Mesh) Broadcast(ctx context.Context, payload []byte, opts Options) ([]Reply, error) {
	if m.ctx.Err() != nil {
		return nil, ErrClosed
	}

	if len(m.order) == 0 {
		return nil, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	results := make(chan reply, len(m.order))

	m.sendMu.Lock()
	var seq uint64
	if opts.Ordered {
		m.seq++
		seq = m.seq
	}
	frame := Frame(seq, payload)

	for _, addr := range m.order {
		mem := m.members[addr]
		select {
		case mem.queue <- job{frame: frame, replies: results}:
		default:
			// the member falls behind and resynchronizes on the next sequence gap
			logger.Warn("member queue full, message dropped", "member", addr, "seq", seq)
			results <- reply{member: addr, err: fmt.Errorf("queue full")}
		}
	}
	m.sendMu.Unlock()

	return collect(ctx, results, len(m.order), opts.Mode, timeout), nil
}

// collect gathers successful replies until the mode is satisfied, every
// member reported, or the timeout fires.
func collect(ctx context.Context, results <-chan reply, expected int, mode Mode, timeout time.Duration) []Reply {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var out []Reply

	for received := 0; received < expected; received++ {
		select {
		case r := <-results:
			if r.err != nil {
				logger.Debug("member delivery failed", "member", r.member, "error", r.err)
				continue
			}

			out = append(out, Reply{Member: r.member, Data: r.data})
			if mode == ModeFirst {
				return out
			}
		case <-timer.C:
			return out
		case <-ctx.Done():
			return out
		}
	}

	return out
}

// Transfer implements Group.
func (m *Mesh) Transfer(ctx context.Context, addr string, payload []byte) ([]byte, error) {
	peer := m.node.Peer(addr)
	if peer == nil {
		return nil, fmt.Errorf("member %s not connected", addr)
	}

	return peer.Request(ctx, Frame(0, payload))
}

// View implements Group.
func (m *Mesh) View() View {
	connected := m.node.Peers()

	view := make(View, 0, len(connected))
	for _, addr := range connected {
		if _, ok := m.members[addr]; ok {
			view = append(view, addr)
		}
	}

	return view
}

// OnViewChange implements Group.
func (m *Mesh) OnViewChange(fn func(View)) {
	m.viewMu.Lock()
	m.onChange = append(m.onChange, fn)
	m.viewMu.Unlock()
}

// SetSequence implements Group.
func (m *Mesh) SetSequence(n uint64) {
	m.sendMu.Lock()
	if n > m.seq {
		m.seq = n
	}
	m.sendMu.Unlock()
}

// Sequence implements Group.
func (m *Mesh) Sequence() uint64 {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	return m.seq
}

// Close stops the delivery workers. Queued messages are dropped.
func (m *Mesh) Close() {
	m.cancel()
	m.wg.Wait()
}

// deliverLoop sends queued messages to one member, one at a time.
func (m *Mesh) deliverLoop(mem *member) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case j := <-mem.queue:
			data, err := m.deliver(mem.addr, j.frame)
			j.replies <- reply{member: mem.addr, data: data, err: err}
		}
	}
}

// deliver sends one frame and waits for the answer.
func (m *Mesh) deliver(addr string, frame []byte) ([]byte, error) {
	peer := m.node.Peer(addr)
	if peer == nil {
		return nil, fmt.Errorf("not connected")
	}

	ctx, cancel := context.WithTimeout(m.ctx, memberRequestTimeout)
	defer cancel()

	return peer.Request(ctx, frame)
}

// viewChanged notifies callbacks of a membership change.
func (m *Mesh) viewChanged(addr string, up bool) {
	if _, ok := m.members[addr]; !ok {
		return
	}

	view := m.View()
	logger.Info("group view changed", "member", addr, "up", up, "size", len(view))

	m.viewMu.Lock()
	callbacks := append([]func(View)(nil), m.onChange...)
	m.viewMu.Unlock()

	for _, fn := range callbacks {
		fn(view)
	}
}
