package sync

import (
	"context"
	"errors"
	"fmt"

	"AuctionHouse/internal/logger"
)

var (
	// ErrNoSource is returned when no member could provide a snapshot.
	ErrNoSource = errors.New("no member provided a snapshot")

	// ErrNoMembers is returned when there is nobody to ask.
	ErrNoMembers = errors.New("no members to ask")
)

// Member is a named snapshot source.
type Member struct {
	Name      string    // Name identifies the member in logs
	Requester Requester // Requester reaches the member
}

// Fetch asks members in order and returns the first snapshot holding at
// least minSeq, along with the name of the member that served it.
func Fetch(ctx context.Context, members []Member, minSeq uint64) (*State, string, error) {
	if len(members) == 0 {
		return nil, "", fmt.Errorf("%w: %w", ErrNoSource, ErrNoMembers)
	}

	var errs []error

	for _, m := range members {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		st, err := RequestSnapshot(ctx, m.Requester, minSeq)
		if err != nil {
			logger.Debug("snapshot source failed", "member", m.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
			continue
		}

		return st, m.Name, nil
	}

	return nil, "", fmt.Errorf("%w:\n%w", ErrNoSource, errors.Join(errs...))
}

// Freshest asks every member and returns the snapshot with the highest
// sequence among those holding at least minSeq. Members that are behind
// count as answered. The error lists members that could not answer; the
// best snapshot found so far is returned alongside it and may be nil.
func Freshest(ctx context.Context, members []Member, minSeq uint64) (*State, string, error) {
	if len(members) == 0 {
		return nil, "", ErrNoMembers
	}

	var (
		best *State
		from string
		errs []error
	)

	for _, m := range members {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		st, err := RequestSnapshot(ctx, m.Requester, minSeq)
		switch {
		case errors.Is(err, ErrBehind):
			logger.Debug("snapshot source behind", "member", m.Name, "min_seq", minSeq)
		case err != nil:
			logger.Debug("snapshot source failed", "member", m.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", m.Name, err))
		case best == nil || st.LastSeq > best.LastSeq:
			best, from = st, m.Name
		}
	}

	if len(errs) > 0 {
		return best, from, errors.Join(errs...)
	}

	return best, from, nil
}
