package wire

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"AuctionHouse/internal/auction"
	"AuctionHouse/internal/types"
)

// EncodeAuction serializes an auction as a FlatBuffers Auction table.
func EncodeAuction(a *auction.Auction) []byte {
	builder := flatbuffers.NewBuilder(256)
	offset := BuildAuction(builder, a)
	builder.Finish(offset)

	return builder.FinishedBytes()
}

// BuildAuction writes a into builder and returns its table offset.
func BuildAuction(builder *flatbuffers.Builder, a *auction.Auction) flatbuffers.UOffsetT {
	historyOffsets := make([]flatbuffers.UOffsetT, len(a.History))
	for i, b := range a.History {
		bidder := builder.CreateString(b.Bidder)
		item := builder.CreateString(b.Item)

		types.BidEntryStart(builder)
		types.BidEntryAddBidder(builder, bidder)
		types.BidEntryAddAmount(builder, b.Amount)
		types.BidEntryAddItem(builder, item)
		historyOffsets[i] = types.BidEntryEnd(builder)
	}

	types.AuctionStartHistoryVector(builder, len(historyOffsets))
	for i := len(historyOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(historyOffsets[i])
	}
	history := builder.EndVector(len(historyOffsets))

	description := builder.CreateString(a.Description)
	owner := builder.CreateString(a.Owner)
	winner := builder.CreateString(a.Winner)

	types.AuctionStart(builder)
	types.AuctionAddId(builder, a.ID)
	types.AuctionAddDescription(builder, description)
	types.AuctionAddOwner(builder, owner)
	types.AuctionAddStartPrice(builder, a.StartPrice)
	types.AuctionAddReservePrice(builder, a.ReservePrice)
	types.AuctionAddCurrentBid(builder, a.CurrentBid)
	types.AuctionAddWinner(builder, winner)
	types.AuctionAddHistory(builder, history)
	types.AuctionAddClosed(builder, a.Closed)
	types.AuctionAddWon(builder, a.Won)

	return types.AuctionEnd(builder)
}

// DecodeAuction parses a FlatBuffers Auction table.
func DecodeAuction(data []byte) (a *auction.Auction, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("auction too short: %d bytes", len(data))
	}

	// malformed offsets make the generated accessors index out of range
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("malformed auction: %v", r)
		}
	}()

	return AuctionFromTable(types.GetRootAsAuction(data, 0))
}

// AuctionFromTable copies a FlatBuffers auction into the entity type.
func AuctionFromTable(t *types.Auction) (*auction.Auction, error) {
	a := &auction.Auction{
		ID:           t.Id(),
		Description:  string(t.Description()),
		Owner:        string(t.Owner()),
		StartPrice:   t.StartPrice(),
		ReservePrice: t.ReservePrice(),
		CurrentBid:   t.CurrentBid(),
		Winner:       string(t.Winner()),
		Closed:       t.Closed(),
		Won:          t.Won(),
	}

	n := t.HistoryLength()
	if n > 0 {
		a.History = make([]auction.Bid, n)
	}

	var entry types.BidEntry
	for i := 0; i < n; i++ {
		if !t.History(&entry, i) {
			return nil, fmt.Errorf("read bid %d", i)
		}

		a.History[i] = auction.Bid{
			Bidder: string(entry.Bidder()),
			Amount: entry.Amount(),
			Item:   string(entry.Item()),
		}
	}

	return a, nil
}
