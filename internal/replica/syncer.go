package replica

import (
	"context"
	"fmt"

	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/group"
	statesync "AuctionHouse/internal/sync"
	"AuctionHouse/internal/wire"
)

// Syncer fetches state from other replicas.
type Syncer interface {
	// Fetch returns the first state found holding at least minSeq.
	Fetch(ctx context.Context, minSeq uint64) (*statesync.State, string, error)

	// Freshest asks every peer and returns the newest state holding at
	// least minSeq. See statesync.Freshest for the error contract.
	Freshest(ctx context.Context, minSeq uint64) (*statesync.State, string, error)
}

// GroupSyncer fetches state from the reachable members of a group.
type GroupSyncer struct {
	Group group.Group // Group reaches the peer replicas
}

// Fetch implements Syncer. Members are asked in view order.
func (g *GroupSyncer) Fetch(ctx context.Context, minSeq uint64) (*statesync.State, string, error) {
	return statesync.Fetch(ctx, g.members(), minSeq)
}

// Freshest implements Syncer.
func (g *GroupSyncer) Freshest(ctx context.Context, minSeq uint64) (*statesync.State, string, error) {
	return statesync.Freshest(ctx, g.members(), minSeq)
}

// members lists the current view as snapshot sources.
func (g *GroupSyncer) members() []statesync.Member {
	view := g.Group.View()

	members := make([]statesync.Member, 0, len(view))
	for _, addr := range view {
		members = append(members, statesync.Member{
			Name:      addr,
			Requester: &memberRequester{group: g.Group, addr: addr},
		})
	}

	return members
}

// memberRequester carries snapshot messages inside replica requests.
type memberRequester struct {
	group group.Group
	addr  string
}

// Request implements sync.Requester. A NotFound answer means the member
// is behind the requested sequence.
func (m *memberRequester) Request(ctx context.Context, data []byte) ([]byte, error) {
	req := wire.EncodeRequest(&wire.Request{Op: wire.OpSnapshot, Body: data})

	raw, err := m.group.Transfer(ctx, m.addr, req)
	if err != nil {
		return nil, err
	}

	resp, err := wire.DecodeResponse(raw)
	if err != nil {
		return nil, err
	}

	if err := resp.Err(); err != nil {
		if failure.KindOf(err) == failure.KindNotFound {
			return nil, fmt.Errorf("%w: %s", statesync.ErrBehind, failure.MessageOf(err))
		}
		return nil, err
	}

	return resp.Payload, nil
}
