package keystore

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"AuctionHouse/internal/crypto"
)

// newTestDir creates a temporary key directory for testing.
func newTestDir(t *testing.T) (*Dir, func()) {
	t.Helper()

	root, err := os.MkdirTemp("", "keystore-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	d, err := NewDir(root)
	if err != nil {
		os.RemoveAll(root)
		t.Fatalf("failed to open key dir: %v", err)
	}

	return d, func() { os.RemoveAll(root) }
}

func TestMemoryLookup(t *testing.T) {
	m := NewMemory()

	id, err := crypto.GenerateIdentity("alice")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	m.Add(id)

	pub, err := m.Public("alice")
	if err != nil {
		t.Fatalf("public: %v", err)
	}
	if pub.Box != id.Box.Public {
		t.Error("box key mismatch")
	}

	if _, err := m.Public("bob"); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("got %v, want ErrUnknownIdentity", err)
	}
}

func TestMemoryPublicOnly(t *testing.T) {
	m := NewMemory()

	id, _ := crypto.GenerateIdentity("alice")
	m.AddPublic(id.Public())

	if _, err := m.Public("alice"); err != nil {
		t.Fatalf("public: %v", err)
	}
	if _, err := m.Identity("alice"); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("got %v, want ErrUnknownIdentity", err)
	}
}

func TestDirSaveAndLoad(t *testing.T) {
	d, cleanup := newTestDir(t)
	defer cleanup()

	id, err := crypto.GenerateIdentity(ServerIdentity)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}

	if err := d.Save(id); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := d.Identity(ServerIdentity)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if loaded.Box.Private != id.Box.Private {
		t.Error("box private key mismatch")
	}
	if !bytes.Equal(loaded.Public().Sign, id.Public().Sign) {
		t.Error("signing key mismatch")
	}

	pub, err := d.Public(ServerIdentity)
	if err != nil {
		t.Fatalf("public: %v", err)
	}
	if pub.Box != id.Box.Public {
		t.Error("public box key mismatch")
	}
}

func TestDirUnknownIdentity(t *testing.T) {
	d, cleanup := newTestDir(t)
	defer cleanup()

	if _, err := d.Public("nobody"); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("got %v, want ErrUnknownIdentity", err)
	}
	if _, err := d.Identity("nobody"); !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("got %v, want ErrUnknownIdentity", err)
	}
}

func TestDirRejectsPathNames(t *testing.T) {
	d, cleanup := newTestDir(t)
	defer cleanup()

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		if _, err := d.Public(name); err == nil {
			t.Errorf("name %q accepted", name)
		}
	}
}
