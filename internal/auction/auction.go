// Package auction holds the auction entity and its bid and close transitions.
// It has no knowledge of replication or networking.
package auction

import (
	"fmt"
	"math"
	"strings"

	"AuctionHouse/internal/failure"
)

// Bid is one accepted bid in an auction's history.
type Bid struct {
	Bidder string  // Bidder is the identity that placed the bid
	Amount float64 // Amount is the bid value
	Item   string  // Item is the description of the auctioned item
}

// Auction is a single auction and its bidding state.
// The zero ID means the auction has not been assigned one yet.
type Auction struct {
	ID           uint64  // ID is assigned once by the front end
	Description  string  // Description names the item
	Owner        string  // Owner is the seller identity
	StartPrice   float64 // StartPrice is the opening price
	ReservePrice float64 // ReservePrice must be exceeded for the auction to be won
	CurrentBid   float64 // CurrentBid never decreases
	Winner       string  // Winner is the current highest bidder, empty if none
	History      []Bid   // History lists accepted bids, newest first
	Closed       bool    // Closed is set once and never cleared
	Won          bool    // Won is meaningful only when Closed
}

// New creates an open auction with no ID.
// The reserve defaults to the start price when zero.
func New(description, owner string, startPrice, reservePrice float64) (*Auction, error) {
	if reservePrice == 0 {
		reservePrice = startPrice
	}

	a := &Auction{
		Description:  description,
		Owner:        owner,
		StartPrice:   startPrice,
		ReservePrice: reservePrice,
		CurrentBid:   startPrice,
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return a, nil
}

// Validate checks the creation invariants of a new auction.
func (a *Auction) Validate() error {
	if strings.TrimSpace(a.Description) == "" {
		return failure.New(failure.KindValidation, "item description is required")
	}

	if a.Owner == "" {
		return failure.New(failure.KindValidation, "owner is required")
	}

	if !validAmount(a.StartPrice) {
		return failure.New(failure.KindValidation, "start price must be a positive number")
	}

	if !validAmount(a.ReservePrice) || a.ReservePrice < a.StartPrice {
		return failure.New(failure.KindValidation, "reserve price must be at least the start price")
	}

	if a.CurrentBid != a.StartPrice || a.Winner != "" || len(a.History) != 0 || a.Closed || a.Won {
		return failure.New(failure.KindValidation, "new auction carries bidding state")
	}

	return nil
}

// Bid places a bid of value by bidder.
// The bid must be strictly higher than the current bid on an open auction.
// A rejected bid leaves the auction unchanged.
func (a *Auction) Bid(value float64, bidder string) (string, error) {
	if a.Closed {
		return "", failure.Newf(failure.KindValidation, "auction %d is closed", a.ID)
	}

	if !validAmount(value) {
		return "", failure.New(failure.KindValidation, "bid must be a positive number")
	}

	if value <= a.CurrentBid {
		return "", failure.Newf(failure.KindValidation,
			"bid of %s must be higher than the current bid of %s", formatAmount(value), formatAmount(a.CurrentBid))
	}

	a.CurrentBid = value
	a.Winner = bidder
	a.History = append([]Bid{{Bidder: bidder, Amount: value, Item: a.Description}}, a.History...)

	return fmt.Sprintf("Successful bid of %s on %s, you are currently the highest bidder",
		formatAmount(value), a.Description), nil
}

// Close closes the auction on behalf of requester, who must be the owner.
// The auction is won only if the highest bid exceeds the reserve price.
func (a *Auction) Close(requester string) (string, error) {
	if requester != a.Owner {
		return "", failure.Newf(failure.KindAuthorization, "%s is not the owner of auction %d", requester, a.ID)
	}

	if a.Closed {
		return "", failure.Newf(failure.KindValidation, "auction %d is already closed", a.ID)
	}

	a.Closed = true
	a.Won = a.Winner != "" && a.CurrentBid > a.ReservePrice

	return a.Result(), nil
}

// Result describes the outcome of a closed auction.
func (a *Auction) Result() string {
	if !a.Closed {
		return fmt.Sprintf("Auction %d is still open", a.ID)
	}

	if !a.Won {
		return "Auction closed with no winner"
	}

	return fmt.Sprintf("Auction won by %s with the highest bid of %s", a.Winner, formatAmount(a.CurrentBid))
}

// Clone returns a deep copy.
func (a *Auction) Clone() *Auction {
	c := *a
	c.History = append([]Bid(nil), a.History...)

	return &c
}

// validAmount reports whether v is a finite positive amount.
func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// formatAmount renders an amount with two decimals.
func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
