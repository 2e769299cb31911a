// Package group is the multicast RPC layer between the front end and the
// replicas. A broadcast is delivered to every member in the same order and
// the caller chooses whether to wait for the first answer or for all of them.
package group

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

// Mode selects how many replies a broadcast waits for.
type Mode uint8

const (
	// ModeFirst returns as soon as one member answered.
	ModeFirst Mode = iota
	// ModeAll waits for every member or the timeout.
	ModeAll
)

// DefaultTimeout bounds a broadcast when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Options configures one broadcast.
type Options struct {
	Mode    Mode          // Mode is the response collection mode
	Timeout time.Duration // Timeout bounds the wait for replies
	Ordered bool          // Ordered stamps the message with the next sequence number
}

// Reply is one member's answer.
type Reply struct {
	Member string // Member is the replying member address
	Data   []byte // Data is the raw response
}

// View is the set of reachable members, sorted.
type View []string

// Contains reports whether member is in the view.
func (v View) Contains(member string) bool {
	for _, m := range v {
		if m == member {
			return true
		}
	}

	return false
}

// Group delivers messages to the members of a replica group.
type Group interface {
	// Broadcast sends payload to every member and collects replies in arrival order.
	Broadcast(ctx context.Context, payload []byte, opts Options) ([]Reply, error)
	// Transfer sends payload to one member and returns its answer.
	Transfer(ctx context.Context, member string, payload []byte) ([]byte, error)
	// View returns the currently reachable members.
	View() View
	// OnViewChange registers a callback invoked after the view changes.
	OnViewChange(fn func(View))
	// SetSequence raises the sequence counter to at least n.
	SetSequence(n uint64)
	// Sequence returns the last assigned sequence number.
	Sequence() uint64
}

// frameHeaderSize is the size of the sequence header.
const frameHeaderSize = 8

// Frame prefixes payload with its sequence number.
// Sequence 0 marks an unordered message.
// Format: [8B seq] [payload]
func Frame(seq uint64, payload []byte) []byte {
	buf := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint64(buf, seq)

	return append(buf, payload...)
}

// ParseFrame splits a framed message.
func ParseFrame(data []byte) (uint64, []byte, error) {
	if len(data) < frameHeaderSize {
		return 0, nil, fmt.Errorf("frame too short: %d < %d", len(data), frameHeaderSize)
	}

	return binary.BigEndian.Uint64(data[:frameHeaderSize]), data[frameHeaderSize:], nil
}
