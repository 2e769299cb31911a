// Package keystore looks up key material by identity.
package keystore

import (
	"errors"
	"fmt"
	"sync"

	"AuctionHouse/internal/crypto"
)

// ServerIdentity is the identity of the front end.
const ServerIdentity = "SERVER"

// ErrUnknownIdentity is returned for identities with no stored keys.
var ErrUnknownIdentity = errors.New("unknown identity")

// Store resolves identities to keys.
type Store interface {
	// Public returns the public keys of name.
	Public(name string) (crypto.PublicIdentity, error)
	// Identity returns the full key material of name.
	Identity(name string) (*crypto.Identity, error)
}

// Memory is an in-process Store.
type Memory struct {
	mu         sync.RWMutex
	publics    map[string]crypto.PublicIdentity
	identities map[string]*crypto.Identity
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		publics:    make(map[string]crypto.PublicIdentity),
		identities: make(map[string]*crypto.Identity),
	}
}

// Add stores the full key material of id.
func (m *Memory) Add(id *crypto.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.identities[id.Name] = id
	m.publics[id.Name] = id.Public()
}

// AddPublic stores only the public half of an identity.
func (m *Memory) AddPublic(pub crypto.PublicIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.publics[pub.Name] = pub
}

// Public implements Store.
func (m *Memory) Public(name string) (crypto.PublicIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pub, ok := m.publics[name]
	if !ok {
		return crypto.PublicIdentity{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, name)
	}

	return pub, nil
}

// Identity implements Store.
func (m *Memory) Identity(name string) (*crypto.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.identities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIdentity, name)
	}

	return id, nil
}
