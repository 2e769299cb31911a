package coordinator

import (
	"sync"
	"testing"
)

func TestIDAllocatorRaise(t *testing.T) {
	var ids IDAllocator

	ids.Raise(5)
	ids.Raise(3)

	if got := ids.Next(); got != 6 {
		t.Errorf("got %d, want 6", got)
	}
	if got := ids.Last(); got != 6 {
		t.Errorf("last: got %d, want 6", got)
	}
}

func TestIDAllocatorConcurrent(t *testing.T) {
	var ids IDAllocator

	var mu sync.Mutex
	seen := make(map[uint64]bool)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := ids.Next()

				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate ID %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 800 {
		t.Errorf("got %d IDs, want 800", len(seen))
	}
}
