package network

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// generateTestKey generates a random ed25519 key pair for testing.
func generateTestKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return priv
}

// newTestServer starts a listening node that echoes requests with a prefix.
func newTestServer(t *testing.T) *Node {
	t.Helper()

	server, err := NewNode(Config{
		PrivateKey: generateTestKey(t),
		ListenAddr: "127.0.0.1:0",
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	server.OnRequest(func(_ *Peer, data []byte) ([]byte, error) {
		return append([]byte("echo:"), data...), nil
	})

	if err := server.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}

	return server
}

// newTestClient creates a dial-only node.
func newTestClient(t *testing.T) *Node {
	t.Helper()

	client, err := NewNode(Config{
		PrivateKey:     generateTestKey(t),
		ReconnectDelay: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	return client
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}

	return cond()
}

func TestNodeStartStop(t *testing.T) {
	node := newTestServer(t)

	if node.Addr() == "" {
		t.Error("listening node has no address")
	}

	if err := node.Close(); err != nil {
		t.Fatalf("close node: %v", err)
	}
}

func TestStartWithoutListenAddr(t *testing.T) {
	node := newTestClient(t)
	defer node.Close()

	if err := node.Start(); err == nil {
		t.Error("expected error starting a dial-only node")
	}
}

func TestNodeRequest(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := newTestClient(t)
	defer client.Close()

	peer, err := client.Connect(server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	if !bytes.Equal(peer.PublicKey(), server.PublicKey()) {
		t.Error("peer public key mismatch")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := peer.Request(ctx, []byte("ping"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if string(resp) != "echo:ping" {
		t.Errorf("got %q, want %q", resp, "echo:ping")
	}
}

func TestNodeConcurrentRequests(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := newTestClient(t)
	defer client.Close()

	peer, err := client.Connect(server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			msg := fmt.Sprintf("req-%d", i)
			resp, err := peer.Request(ctx, []byte(msg))
			if err == nil && string(resp) != "echo:"+msg {
				err = fmt.Errorf("got %q for %q", resp, msg)
			}
			errs <- err
		}(i)
	}

	for i := 0; i < 20; i++ {
		if err := <-errs; err != nil {
			t.Errorf("request: %v", err)
		}
	}
}

func TestConnectReusesPeer(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := newTestClient(t)
	defer client.Close()

	first, err := client.Connect(server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	second, err := client.Connect(server.Addr())
	if err != nil {
		t.Fatalf("connect again: %v", err)
	}

	if first != second {
		t.Error("second connect opened a new peer")
	}
	if got := len(client.Peers()); got != 1 {
		t.Errorf("peer count: got %d, want 1", got)
	}
}

func TestHandlerErrorFailsRequest(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	server.OnRequest(func(_ *Peer, _ []byte) ([]byte, error) {
		return nil, fmt.Errorf("refused")
	})

	client := newTestClient(t)
	defer client.Close()

	peer, err := client.Connect(server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := peer.Request(ctx, []byte("x")); err == nil {
		t.Error("expected request to fail when handler errors")
	}
}

func TestMaintainReconnects(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := newTestClient(t)
	defer client.Close()

	var connects, disconnects atomic.Int32
	client.OnConnect(func(*Peer) { connects.Add(1) })
	client.OnDisconnect(func(*Peer) { disconnects.Add(1) })

	addr := server.Addr()
	client.Maintain(addr)

	if !waitFor(t, 5*time.Second, func() bool { return client.Peer(addr) != nil }) {
		t.Fatal("maintained peer never connected")
	}

	client.Peer(addr).Close()

	if !waitFor(t, 5*time.Second, func() bool { return disconnects.Load() == 1 && connects.Load() == 2 }) {
		t.Fatalf("connects=%d disconnects=%d, want 2 and 1", connects.Load(), disconnects.Load())
	}

	if client.Peer(addr) == nil {
		t.Error("peer not restored after reconnect")
	}
}

func TestMaintainUnreachableThenUp(t *testing.T) {
	// reserve an address, then free it so the first dials fail
	scratch := newTestServer(t)
	addr := scratch.Addr()
	scratch.Close()

	client := newTestClient(t)
	defer client.Close()

	client.Maintain(addr)
	time.Sleep(200 * time.Millisecond)

	if client.Peer(addr) != nil {
		t.Fatal("connected to a closed address")
	}

	server, err := NewNode(Config{PrivateKey: generateTestKey(t), ListenAddr: addr})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Skipf("address %s not reusable: %v", addr, err)
	}
	defer server.Close()

	if !waitFor(t, 10*time.Second, func() bool { return client.Peer(addr) != nil }) {
		t.Error("client did not connect once the server came up")
	}
}

func TestAllowedKeysRefuseUnknownPeer(t *testing.T) {
	trusted := generateTestKey(t)

	server, err := NewNode(Config{
		PrivateKey:  generateTestKey(t),
		ListenAddr:  "127.0.0.1:0",
		AllowedKeys: []ed25519.PublicKey{trusted.Public().(ed25519.PublicKey)},
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	defer server.Close()

	var served atomic.Int32
	server.OnRequest(func(_ *Peer, data []byte) ([]byte, error) {
		served.Add(1)
		return data, nil
	})
	if err := server.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}

	stranger := newTestClient(t)
	defer stranger.Close()

	if peer, err := stranger.Connect(server.Addr()); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err = peer.Request(ctx, []byte("ping"))
		cancel()

		if err == nil {
			t.Error("request from a key outside the allowlist succeeded")
		}
	}

	friend, err := NewNode(Config{PrivateKey: trusted})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer friend.Close()

	peer, err := friend.Connect(server.Addr())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := peer.Request(ctx, []byte("ping")); err != nil {
		t.Fatalf("allowed request: %v", err)
	}
	if got := served.Load(); got != 1 {
		t.Errorf("served %d requests, want 1", got)
	}
}

func TestAllowedKeysRejectMalformedKey(t *testing.T) {
	_, err := NewNode(Config{
		PrivateKey:  generateTestKey(t),
		AllowedKeys: []ed25519.PublicKey{make([]byte, 5)},
	})
	if err == nil {
		t.Error("expected error for a short allowed key")
	}
}

func TestAllowsWithoutListAcceptsAny(t *testing.T) {
	node := newTestClient(t)
	defer node.Close()

	if !node.Allows(generateTestKey(t).Public().(ed25519.PublicKey)) {
		t.Error("node without allowlist refused a key")
	}
}
