// Package vote resolves the replies of a broadcast into a single answer by
// plurality over byte-identical responses.
package vote

import (
	"github.com/zeebo/blake3"

	"AuctionHouse/internal/failure"
	"AuctionHouse/internal/group"
	"AuctionHouse/internal/logger"
	"AuctionHouse/internal/wire"
)

// Outcome is the result of a tally.
type Outcome struct {
	Response *wire.Response // Response is the winning decoded response
	Votes    int            // Votes is the size of the winning group
	Counted  int            // Counted is the number of replies that took part
	Groups   int            // Groups is the number of distinct answers
}

// bucket is one group of identical replies.
type bucket struct {
	data  []byte
	count int
}

// Tally decodes replies and returns the answer given by the most replicas.
// Stale and undecodable replies do not vote. Ties go to the answer observed
// first. With no counted reply the backend is reported unavailable.
func Tally(replies []group.Reply) (*Outcome, error) {
	var order [][32]byte
	buckets := make(map[[32]byte]*bucket)

	counted := 0

	for _, r := range replies {
		resp, err := wire.DecodeResponse(r.Data)
		if err != nil {
			logger.Warn("undecodable replica reply", "member", r.Member, "error", err)
			continue
		}

		if resp.Status == wire.StatusStale {
			continue
		}

		counted++

		key := blake3.Sum256(r.Data)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{data: r.Data}
			buckets[key] = b
			order = append(order, key)
		}
		b.count++
	}

	if counted == 0 {
		return nil, failure.ErrBackendUnavailable
	}

	var winner *bucket
	for _, key := range order {
		if b := buckets[key]; winner == nil || b.count > winner.count {
			winner = b
		}
	}

	resp, err := wire.DecodeResponse(winner.data)
	if err != nil {
		return nil, err
	}

	if len(order) > 1 {
		logger.Warn("replicas disagree", "groups", len(order), "votes", winner.count, "counted", counted)
	}

	return &Outcome{
		Response: resp,
		Votes:    winner.count,
		Counted:  counted,
		Groups:   len(order),
	}, nil
}
