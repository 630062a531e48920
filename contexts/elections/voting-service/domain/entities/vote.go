package entities

import "time"

// BallotSize is the number of distinct recipients every ballot must name.
const BallotSize = 3

// Vote is one append-only ballot line. VoterID and VotedForID are candidate
// IDs, not login identifiers.
type Vote struct {
	ID         int64
	VoterID    int64
	VotedForID int64
	CreatedAt  time.Time
}

// IsWellFormedSelection reports whether ids holds exactly BallotSize pairwise
// distinct entries.
func IsWellFormedSelection(ids []int64) bool {
	if len(ids) != BallotSize {
		return false
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}
