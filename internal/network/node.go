package network

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"AuctionHouse/internal/logger"
)

const (
	// defaultReconnectDelay is the default delay between reconnection attempts.
	defaultReconnectDelay = 500 * time.Millisecond

	// maxReconnectDelay is the maximum delay between reconnection attempts.
	maxReconnectDelay = 30 * time.Second

	// dialTimeout bounds a single connection attempt.
	dialTimeout = 5 * time.Second

	// alpnProtocol is the ALPN protocol identifier.
	alpnProtocol = "auctionhouse/1"
)

// ErrKeyNotAllowed is returned for a peer whose key is not in AllowedKeys.
var ErrKeyNotAllowed = errors.New("peer key not allowed")

// Config holds the configuration for a Node.
type Config struct {
	PrivateKey     ed25519.PrivateKey  // PrivateKey is the node's ed25519 TLS key
	ListenAddr     string              // ListenAddr is the address to listen on, empty for dial-only nodes
	ReconnectDelay time.Duration       // ReconnectDelay is the initial delay between reconnection attempts
	AllowedKeys    []ed25519.PublicKey // AllowedKeys restricts peers in both directions, empty allows any key
}

// Node accepts request streams from allowed peers and keeps outgoing
// connections to a set of maintained addresses.
type Node struct {
	publicKey  ed25519.PublicKey // publicKey is the node's ed25519 public key
	listenAddr string            // listenAddr is the address to listen on
	tlsConfig  *tls.Config       // tlsConfig is the TLS configuration
	quicConfig *quic.Config      // quicConfig is the QUIC configuration

	listener *quic.Listener // listener is the QUIC listener, nil for dial-only nodes

	allowed map[string]struct{} // allowed holds the accepted peer keys, nil accepts any

	peers   map[string]*Peer // peers maps dial address to outgoing peer
	inbound map[*Peer]struct{}
	peersMu sync.RWMutex // peersMu protects peers and inbound

	maintained   map[string]bool // maintained holds addresses redialed after loss
	maintainedMu sync.Mutex      // maintainedMu protects maintained

	reconnectDelay time.Duration // reconnectDelay is the initial reconnection delay

	onConnect    func(*Peer)                         // onConnect is called when an outgoing peer connects
	onDisconnect func(*Peer)                         // onDisconnect is called when an outgoing peer is lost
	onRequest    func(*Peer, []byte) ([]byte, error) // onRequest handles bidirectional request/response
	handlersMu   sync.RWMutex                        // handlersMu protects event handlers

	ctx    context.Context    // ctx is the node's context
	cancel context.CancelFunc // cancel cancels the node's context
	wg     sync.WaitGroup     // wg waits for goroutines to finish
}

// NewNode creates a new network node.
func NewNode(cfg Config) (*Node, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay == 0 {
		reconnectDelay = defaultReconnectDelay
	}

	cert, err := generateCertificate(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("generate certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates:       []tls.Certificate{cert},
		ClientAuth:         tls.RequireAnyClientCert,
		InsecureSkipVerify: true, // peers are identified by their key, not a CA
		NextProtos:         []string{alpnProtocol},
		MinVersion:         tls.VersionTLS13,
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 10 * time.Second,
	}

	var allowed map[string]struct{}
	if len(cfg.AllowedKeys) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedKeys))
		for _, k := range cfg.AllowedKeys {
			if len(k) != ed25519.PublicKeySize {
				return nil, fmt.Errorf("allowed key has %d bytes, want %d", len(k), ed25519.PublicKeySize)
			}
			allowed[string(k)] = struct{}{}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		publicKey:      cfg.PrivateKey.Public().(ed25519.PublicKey),
		listenAddr:     cfg.ListenAddr,
		tlsConfig:      tlsConfig,
		quicConfig:     quicConfig,
		allowed:        allowed,
		peers:          make(map[string]*Peer),
		inbound:        make(map[*Peer]struct{}),
		maintained:     make(map[string]bool),
		reconnectDelay: reconnectDelay,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// PublicKey returns the node's public key.
func (n *Node) PublicKey() ed25519.PublicKey {
	return n.publicKey
}

// Allows reports whether a peer presenting key may connect.
func (n *Node) Allows(key ed25519.PublicKey) bool {
	if n.allowed == nil {
		return true
	}

	_, ok := n.allowed[string(key)]

	return ok
}

// Addr returns the listener's address. Returns empty string if not listening.
func (n *Node) Addr() string {
	if n.listener == nil {
		return ""
	}

	return n.listener.Addr().String()
}

// Start begins accepting connections. Dial-only nodes need not call it.
func (n *Node) Start() error {
	if n.listenAddr == "" {
		return fmt.Errorf("listen address is required")
	}

	listener, err := quic.ListenAddr(n.listenAddr, n.tlsConfig, n.quicConfig)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	n.listener = listener

	n.wg.Add(1)
	go n.acceptLoop()

	return nil
}

// Connect dials addr, or returns the existing outgoing peer for it.
func (n *Node) Connect(addr string) (*Peer, error) {
	if p := n.Peer(addr); p != nil {
		return p, nil
	}

	ctx, cancel := context.WithTimeout(n.ctx, dialTimeout)
	defer cancel()

	conn, err := quic.DialAddr(ctx, addr, n.tlsConfig, n.quicConfig)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return n.setupPeer(conn, addr, true)
}

// Maintain keeps an outgoing connection to addr, redialing with
// exponential backoff whenever it is lost.
func (n *Node) Maintain(addr string) {
	n.maintainedMu.Lock()
	if n.maintained[addr] {
		n.maintainedMu.Unlock()
		return
	}
	n.maintained[addr] = true
	n.maintainedMu.Unlock()

	n.startReconnect(addr, 0)
}

// Peer returns the outgoing peer for addr, or nil if not connected.
func (n *Node) Peer(addr string) *Peer {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()

	return n.peers[addr]
}

// Peers returns the dial addresses of all connected outgoing peers, sorted.
func (n *Node) Peers() []string {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()

	addrs := make([]string, 0, len(n.peers))
	for addr := range n.peers {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	return addrs
}

// OnConnect sets the handler called when an outgoing peer connects.
func (n *Node) OnConnect(fn func(*Peer)) {
	n.handlersMu.Lock()
	n.onConnect = fn
	n.handlersMu.Unlock()
}

// OnDisconnect sets the handler called when an outgoing peer disconnects.
func (n *Node) OnDisconnect(fn func(*Peer)) {
	n.handlersMu.Lock()
	n.onDisconnect = fn
	n.handlersMu.Unlock()
}

// OnRequest sets the handler for incoming bidirectional requests.
// The handler receives request data and returns response data.
func (n *Node) OnRequest(fn func(*Peer, []byte) ([]byte, error)) {
	n.handlersMu.Lock()
	n.onRequest = fn
	n.handlersMu.Unlock()
}

// Close stops the node and closes all connections.
func (n *Node) Close() error {
	n.cancel()

	if n.listener != nil {
		n.listener.Close()
	}

	n.peersMu.Lock()
	peers := make([]*Peer, 0, len(n.peers)+len(n.inbound))
	for _, p := range n.peers {
		peers = append(peers, p)
	}
	for p := range n.inbound {
		peers = append(peers, p)
	}
	n.peersMu.Unlock()

	for _, p := range peers {
		p.Close()
	}

	n.wg.Wait()

	return nil
}

// acceptLoop accepts incoming connections.
func (n *Node) acceptLoop() {
	defer n.wg.Done()

	for {
		conn, err := n.listener.Accept(n.ctx)
		if err != nil {
			return // Listener closed
		}

		if _, err := n.setupPeer(conn, conn.RemoteAddr().String(), false); err != nil {
			logger.Debug("inbound setup failed", "remote", conn.RemoteAddr(), "error", err)
			conn.CloseWithError(1, "setup failed")
		}
	}
}

// setupPeer creates a Peer from a QUIC connection and starts serving it.
func (n *Node) setupPeer(conn *quic.Conn, addr string, outbound bool) (*Peer, error) {
	pubKey, err := extractPublicKey(conn.ConnectionState().TLS)
	if err != nil {
		conn.CloseWithError(1, "no identity")
		return nil, fmt.Errorf("extract public key: %w", err)
	}

	if !n.Allows(pubKey) {
		conn.CloseWithError(2, "key not allowed")
		logger.Warn("refused peer", "addr", addr, "key", hex.EncodeToString(pubKey))
		return nil, fmt.Errorf("%w: %x", ErrKeyNotAllowed, pubKey)
	}

	peer := &Peer{
		publicKey: pubKey,
		address:   addr,
		outbound:  outbound,
		conn:      conn,
		node:      n,
	}

	n.peersMu.Lock()
	if outbound {
		if existing, ok := n.peers[addr]; ok {
			n.peersMu.Unlock()
			conn.CloseWithError(0, "duplicate")
			return existing, nil
		}
		n.peers[addr] = peer
	} else {
		n.inbound[peer] = struct{}{}
	}
	n.peersMu.Unlock()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		peer.receiveLoop(n.ctx)
	}()

	if outbound {
		logger.Debug("peer connected", "addr", addr, "key", peer.Fingerprint())
		n.callOnConnect(peer)
	}

	return peer, nil
}

// handlePeerDisconnect forgets a lost peer and schedules a redial if maintained.
func (n *Node) handlePeerDisconnect(p *Peer) {
	n.peersMu.Lock()
	if p.outbound {
		if n.peers[p.address] == p {
			delete(n.peers, p.address)
		}
	} else {
		delete(n.inbound, p)
	}
	n.peersMu.Unlock()

	if !p.outbound {
		return
	}

	logger.Debug("peer disconnected", "addr", p.address)
	n.callOnDisconnect(p)

	n.maintainedMu.Lock()
	maintained := n.maintained[p.address]
	n.maintainedMu.Unlock()

	if maintained && n.ctx.Err() == nil {
		n.startReconnect(p.address, n.reconnectDelay)
	}
}

// startReconnect runs the dial loop for addr in the background.
func (n *Node) startReconnect(addr string, first time.Duration) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.reconnectPeer(addr, first)
	}()
}

// reconnectPeer dials addr until connected, with exponential backoff.
func (n *Node) reconnectPeer(addr string, delay time.Duration) {
	next := n.reconnectDelay

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-time.After(delay):
		}

		if n.Peer(addr) != nil {
			return // Already reconnected
		}

		if _, err := n.Connect(addr); err == nil {
			return
		}

		delay = next
		next *= 2
		if next > maxReconnectDelay {
			next = maxReconnectDelay
		}
	}
}

// callOnConnect calls the onConnect handler if set.
func (n *Node) callOnConnect(p *Peer) {
	n.handlersMu.RLock()
	fn := n.onConnect
	n.handlersMu.RUnlock()

	if fn != nil {
		fn(p)
	}
}

// callOnDisconnect calls the onDisconnect handler if set.
func (n *Node) callOnDisconnect(p *Peer) {
	n.handlersMu.RLock()
	fn := n.onDisconnect
	n.handlersMu.RUnlock()

	if fn != nil {
		fn(p)
	}
}

// callOnRequest calls the onRequest handler if set.
func (n *Node) callOnRequest(p *Peer, data []byte) ([]byte, error) {
	n.handlersMu.RLock()
	fn := n.onRequest
	n.handlersMu.RUnlock()

	if fn == nil {
		return nil, fmt.Errorf("no request handler registered")
	}

	return fn(p, data)
}
