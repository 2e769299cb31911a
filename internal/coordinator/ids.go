package coordinator

import "sync"

// IDAllocator hands out auction IDs above the highest ID seen in the cluster.
type IDAllocator struct {
	mu   sync.Mutex
	last uint64
}

// Next returns a fresh ID.
func (a *IDAllocator) Next() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.last++

	return a.last
}

// Raise moves the counter to at least n.
func (a *IDAllocator) Raise(n uint64) {
	a.mu.Lock()
	if n > a.last {
		a.last = n
	}
	a.mu.Unlock()
}

// Last returns the last allocated or observed ID.
func (a *IDAllocator) Last() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.last
}
