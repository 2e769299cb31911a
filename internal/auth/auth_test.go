package auth

import (
	"errors"
	"sync"
	"testing"

	"AuctionHouse/internal/crypto"
	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/keystore"
)

// testEnv holds a server authenticator and a registered client.
type testEnv struct {
	server *crypto.Identity
	client *crypto.Identity
	keys   *keystore.Memory
	auth   *Authenticator
}

// newTestEnv creates a server identity and one registered client "alice".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	server, err := crypto.GenerateIdentity(keystore.ServerIdentity)
	if err != nil {
		t.Fatalf("server identity: %v", err)
	}

	client, err := crypto.GenerateIdentity("alice")
	if err != nil {
		t.Fatalf("client identity: %v", err)
	}

	keys := keystore.NewMemory()
	keys.Add(server)
	keys.AddPublic(client.Public())

	return &testEnv{
		server: server,
		client: client,
		keys:   keys,
		auth:   NewAuthenticator(server, keys, crypto.DefaultAlgorithm),
	}
}

// handshake runs a full handshake for id and returns the client session.
func (e *testEnv) handshake(t *testing.T, id *crypto.Identity) Session {
	t.Helper()

	sess, err := e.runHandshake(id)
	if err != nil {
		t.Fatalf("handshake %s: %v", id.Name, err)
	}

	return sess
}

// runHandshake performs the client and server steps in sequence.
func (e *testEnv) runHandshake(id *crypto.Identity) (Session, error) {
	h := NewHandshake(id, e.server.Public())

	sealed, err := h.Begin()
	if err != nil {
		return Session{}, err
	}

	bundle, err := e.auth.Challenge(id.Name, sealed)
	if err != nil {
		return Session{}, err
	}

	proof, sess, err := h.Respond(bundle)
	if err != nil {
		return Session{}, err
	}

	if _, err := e.auth.Answer(id.Name, proof); err != nil {
		return Session{}, err
	}

	return sess, nil
}

func TestHandshakeEstablishesSession(t *testing.T) {
	e := newTestEnv(t)

	sess := e.handshake(t, e.client)

	got, err := e.auth.RequireEstablished("alice")
	if err != nil {
		t.Fatalf("require established: %v", err)
	}
	if got.Key != sess.Key {
		t.Error("server and client session keys differ")
	}

	sealed, err := sess.Seal("alice", []byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	plain, err := got.Open("alice", sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(plain) != "payload" {
		t.Errorf("got %q, want %q", plain, "payload")
	}
}

func TestUnknownIdentityRejected(t *testing.T) {
	e := newTestEnv(t)

	stranger, _ := crypto.GenerateIdentity("mallory")
	h := NewHandshake(stranger, e.server.Public())
	sealed, _ := h.Begin()

	if _, err := e.auth.Challenge("mallory", sealed); !errors.Is(err, failure.ErrAuthentication) {
		t.Errorf("got %v, want authentication error", err)
	}

	if _, err := e.auth.RequireEstablished("mallory"); !errors.Is(err, failure.ErrAuthentication) {
		t.Errorf("got %v, want authentication error", err)
	}
}

func TestWrongPrivateKeyNeverEstablishes(t *testing.T) {
	e := newTestEnv(t)

	// impostor claims to be alice but holds different keys
	impostor, _ := crypto.GenerateIdentity("alice")
	h := NewHandshake(impostor, e.server.Public())

	sealed, err := h.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	bundle, err := e.auth.Challenge("alice", sealed)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}

	if _, _, err := h.Respond(bundle); !errors.Is(err, ErrServerNotAuthenticated) {
		t.Errorf("got %v, want ErrServerNotAuthenticated", err)
	}

	if _, err := e.auth.RequireEstablished("alice"); err == nil {
		t.Error("impostor reached established state")
	}
}

func TestWrongServerKeyDetectedByClient(t *testing.T) {
	e := newTestEnv(t)

	fake, _ := crypto.GenerateIdentity(keystore.ServerIdentity)
	h := NewHandshake(e.client, fake.Public())

	sealed, _ := h.Begin()

	// the real server cannot read a challenge sealed to another key
	if _, err := e.auth.Challenge("alice", sealed); !errors.Is(err, failure.ErrAuthentication) {
		t.Errorf("got %v, want authentication error", err)
	}
}

func TestBadProofStaysPending(t *testing.T) {
	e := newTestEnv(t)

	h := NewHandshake(e.client, e.server.Public())
	sealed, _ := h.Begin()

	bundle, err := e.auth.Challenge("alice", sealed)
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}

	wrongKey, _ := crypto.NewSessionKey()
	bad, _ := Session{Key: wrongKey, Algorithm: crypto.DefaultAlgorithm}.Seal("alice", []byte("guess"))

	ok, err := e.auth.Answer("alice", bad)
	if ok || !errors.Is(err, failure.ErrAuthentication) {
		t.Fatalf("bad proof: ok=%v err=%v", ok, err)
	}

	// the genuine answer still completes the pending handshake
	proof, _, err := h.Respond(bundle)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	ok, err = e.auth.Answer("alice", proof)
	if !ok || err != nil {
		t.Fatalf("genuine proof: ok=%v err=%v", ok, err)
	}
}

func TestAnswerWithoutChallenge(t *testing.T) {
	e := newTestEnv(t)

	ok, err := e.auth.Answer("alice", []byte{1, 2, 3})
	if ok || !errors.Is(err, failure.ErrAuthentication) {
		t.Errorf("ok=%v err=%v, want authentication error", ok, err)
	}
}

func TestAnswerReplayRejected(t *testing.T) {
	e := newTestEnv(t)

	h := NewHandshake(e.client, e.server.Public())
	sealed, _ := h.Begin()
	bundle, _ := e.auth.Challenge("alice", sealed)
	proof, _, _ := h.Respond(bundle)

	if ok, err := e.auth.Answer("alice", proof); !ok || err != nil {
		t.Fatalf("first answer: ok=%v err=%v", ok, err)
	}

	// pending record is gone once established
	if ok, _ := e.auth.Answer("alice", proof); ok {
		t.Error("replayed answer accepted")
	}
}

func TestConcurrentHandshakes(t *testing.T) {
	e := newTestEnv(t)

	ids := make([]*crypto.Identity, 8)
	for i := range ids {
		id, err := crypto.GenerateIdentity(string(rune('a'+i)) + "-user")
		if err != nil {
			t.Fatalf("identity: %v", err)
		}
		e.keys.AddPublic(id.Public())
		ids[i] = id
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(id *crypto.Identity) {
			defer wg.Done()
			if _, err := e.runHandshake(id); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("handshake: %v", err)
	}

	if got := e.auth.Sessions().Len(); got != len(ids) {
		t.Errorf("got %d sessions, want %d", got, len(ids))
	}
}
