package entities

import "time"

// Candidate is a registered participant. Every candidate is also a voter and
// logs in with VoterID.
type Candidate struct {
	ID            int64
	Name          string
	VoterID       string
	HasVoted      bool
	VotesReceived int
	CreatedAt     time.Time
}

// NewCandidate is the admin-supplied input for registration.
type NewCandidate struct {
	Name    string
	VoterID string
}

// PartitionByParticipation splits candidates into those who have voted and
// those still pending, preserving input order in both slices.
func PartitionByParticipation(candidates []Candidate) (voted []Candidate, pending []Candidate) {
	voted = make([]Candidate, 0, len(candidates))
	pending = make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.HasVoted {
			voted = append(voted, candidate)
			continue
		}
		pending = append(pending, candidate)
	}
	return voted, pending
}
