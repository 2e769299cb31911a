package auction

import (
	"fmt"
	"sort"
	"strings"
)

// listRow is the fixed-width layout of the auction table.
const listRow = "%-15s %-20s %-10s %-10s %-15s %-20s\n"

// FormatList renders auctions as a table ordered by ID.
// An empty slice renders the header only.
func FormatList(auctions []*Auction) string {
	sorted := append([]*Auction(nil), auctions...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	var b strings.Builder
	fmt.Fprintf(&b, listRow, "Auction ID", "Item Name", "Closed", "Won", "Highest Bid", "Highest Bidder")

	for _, a := range sorted {
		winner := a.Winner
		if winner == "" {
			winner = "-"
		}

		fmt.Fprintf(&b, listRow,
			fmt.Sprint(a.ID),
			a.Description,
			fmt.Sprint(a.Closed),
			fmt.Sprint(a.Won),
			formatAmount(a.CurrentBid),
			winner,
		)
	}

	return b.String()
}
