package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type LoginRequest struct {
	VoterID string `json:"voter_id"`
}

type LoginResponse struct {
	Candidate CandidateIdentity `json:"candidate"`
}

// CandidateIdentity is what a client keeps after login.
type CandidateIdentity struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	VoterID  string `json:"voter_id"`
	HasVoted bool   `json:"has_voted"`
}

type CandidateResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	VoterID       string    `json:"voter_id"`
	HasVoted      bool      `json:"has_voted"`
	VotesReceived int       `json:"votes_received"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateCandidateRequest struct {
	Name    string `json:"name"`
	VoterID string `json:"voter_id"`
}

type BulkCreateCandidatesRequest struct {
	Candidates []CreateCandidateRequest `json:"candidates"`
}

type BulkCreateCandidatesResponse struct {
	Items []CandidateResponse `json:"items"`
}

type SubmitVotesRequest struct {
	VoterID            string  `json:"voter_id"`
	SelectedCandidates []int64 `json:"selected_candidates"`
}

type VoteResponse struct {
	ID         int64     `json:"id"`
	VoterID    int64     `json:"voter_id"`
	VotedForID int64     `json:"voted_for_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type SubmitVotesResponse struct {
	Message string         `json:"message"`
	Votes   []VoteResponse `json:"votes"`
}

type ResultItem struct {
	CandidateResponse
	Percentage float64 `json:"percentage"`
}

type VotingStatsResponse struct {
	TotalVotes         int `json:"total_votes"`
	VotersParticipated int `json:"voters_participated"`
	RemainingVoters    int `json:"remaining_voters"`
	ParticipationRate  int `json:"participation_rate"`
}

type ResultsResponse struct {
	Candidates []ResultItem        `json:"candidates"`
	Stats      VotingStatsResponse `json:"stats"`
}

type StatusResponse struct {
	Voted   []CandidateResponse `json:"voted"`
	Pending []CandidateResponse `json:"pending"`
}

type BallotReceiptResponse struct {
	VoterID  string         `json:"voter_id"`
	HasVoted bool           `json:"has_voted"`
	Votes    []VoteResponse `json:"votes"`
}
