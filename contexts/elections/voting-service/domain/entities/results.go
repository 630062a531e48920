package entities

import "math"

type VotingStats struct {
	TotalVotes         int
	VotersParticipated int
	RemainingVoters    int
	ParticipationRate  int
}

// NewVotingStats derives the remaining voter count and the participation rate
// (whole percent) from raw counts. A store with no candidates reports 0%.
func NewVotingStats(totalCandidates int, votersParticipated int, totalVotes int) VotingStats {
	rate := 0
	if totalCandidates > 0 {
		rate = int(math.Round(float64(votersParticipated) / float64(totalCandidates) * 100))
	}
	return VotingStats{
		TotalVotes:         totalVotes,
		VotersParticipated: votersParticipated,
		RemainingVoters:    totalCandidates - votersParticipated,
		ParticipationRate:  rate,
	}
}

// VoteShare returns votes as a percentage of totalVotes with one decimal place.
func VoteShare(votes int, totalVotes int) float64 {
	if totalVotes <= 0 {
		return 0
	}
	return math.Round(float64(votes)/float64(totalVotes)*1000) / 10
}

type CandidateResult struct {
	Candidate
	Percentage float64
}

// Results is the leaderboard view: candidates ordered by votes received
// (descending, ties in registration order) plus the aggregate stats.
type Results struct {
	Candidates []CandidateResult
	Stats      VotingStats
}

// NewResults attaches vote shares to an already ordered leaderboard.
func NewResults(leaderboard []Candidate, stats VotingStats) Results {
	items := make([]CandidateResult, 0, len(leaderboard))
	for _, candidate := range leaderboard {
		items = append(items, CandidateResult{
			Candidate:  candidate,
			Percentage: VoteShare(candidate.VotesReceived, stats.TotalVotes),
		})
	}
	return Results{Candidates: items, Stats: stats}
}

// ParticipationStatus splits the electorate by whether a ballot was cast.
type ParticipationStatus struct {
	Voted   []Candidate
	Pending []Candidate
}
