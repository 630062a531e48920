package httpadapter

import (
	"context"
	"io"
	"log/slog"

	"voteboard/contexts/elections/voting-service/application/commands"
	"voteboard/contexts/elections/voting-service/application/queries"
	"voteboard/contexts/elections/voting-service/domain/entities"
	httptransport "voteboard/contexts/elections/voting-service/transport/http"
)

const ballotAcceptedMessage = "Votes submitted successfully"

type Handler struct {
	Ballots    commands.BallotUseCase
	Candidates commands.CandidateUseCase
	Voters     queries.VoterUseCase
	Results    queries.ResultsUseCase
	Logger     *slog.Logger
}

func (h Handler) LoginHandler(ctx context.Context, req httptransport.LoginRequest) (httptransport.LoginResponse, error) {
	candidate, err := h.Voters.Login(ctx, req.VoterID)
	if err != nil {
		return httptransport.LoginResponse{}, err
	}
	return httptransport.LoginResponse{
		Candidate: httptransport.CandidateIdentity{
			ID:       candidate.ID,
			Name:     candidate.Name,
			VoterID:  candidate.VoterID,
			HasVoted: candidate.HasVoted,
		},
	}, nil
}

func (h Handler) ListCandidatesHandler(ctx context.Context) ([]httptransport.CandidateResponse, error) {
	candidates, err := h.Voters.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return mapCandidates(candidates), nil
}

func (h Handler) CreateCandidateHandler(
	ctx context.Context,
	req httptransport.CreateCandidateRequest,
) (httptransport.CandidateResponse, error) {
	candidate, err := h.Candidates.RegisterCandidate(ctx, entities.NewCandidate{
		Name:    req.Name,
		VoterID: req.VoterID,
	})
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	return mapCandidate(candidate), nil
}

func (h Handler) BulkCreateCandidatesHandler(
	ctx context.Context,
	req httptransport.BulkCreateCandidatesRequest,
) (httptransport.BulkCreateCandidatesResponse, error) {
	inputs := make([]entities.NewCandidate, 0, len(req.Candidates))
	for _, item := range req.Candidates {
		inputs = append(inputs, entities.NewCandidate{Name: item.Name, VoterID: item.VoterID})
	}
	created, err := h.Candidates.ImportCandidates(ctx, inputs)
	if err != nil {
		return httptransport.BulkCreateCandidatesResponse{}, err
	}
	return httptransport.BulkCreateCandidatesResponse{Items: mapCandidates(created)}, nil
}

func (h Handler) SubmitVotesHandler(
	ctx context.Context,
	req httptransport.SubmitVotesRequest,
) (httptransport.SubmitVotesResponse, error) {
	result, err := h.Ballots.SubmitBallot(ctx, commands.SubmitBallotCommand{
		VoterID:              req.VoterID,
		SelectedCandidateIDs: req.SelectedCandidates,
	})
	if err != nil {
		return httptransport.SubmitVotesResponse{}, err
	}
	return httptransport.SubmitVotesResponse{
		Message: ballotAcceptedMessage,
		Votes:   mapVotes(result.Votes),
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context) (httptransport.ResultsResponse, error) {
	results, err := h.Results.Results(ctx)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	items := make([]httptransport.ResultItem, 0, len(results.Candidates))
	for _, item := range results.Candidates {
		items = append(items, httptransport.ResultItem{
			CandidateResponse: mapCandidate(item.Candidate),
			Percentage:        item.Percentage,
		})
	}
	return httptransport.ResultsResponse{
		Candidates: items,
		Stats: httptransport.VotingStatsResponse{
			TotalVotes:         results.Stats.TotalVotes,
			VotersParticipated: results.Stats.VotersParticipated,
			RemainingVoters:    results.Stats.RemainingVoters,
			ParticipationRate:  results.Stats.ParticipationRate,
		},
	}, nil
}

// ExportResultsHandler writes the leaderboard as CSV to w.
func (h Handler) ExportResultsHandler(ctx context.Context, w io.Writer) error {
	results, err := h.Results.Results(ctx)
	if err != nil {
		return err
	}
	return queries.WriteResultsCSV(w, results)
}

func (h Handler) StatusHandler(ctx context.Context) (httptransport.StatusResponse, error) {
	status, err := h.Results.Status(ctx)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{
		Voted:   mapCandidates(status.Voted),
		Pending: mapCandidates(status.Pending),
	}, nil
}

func (h Handler) BallotReceiptHandler(ctx context.Context, voterID string) (httptransport.BallotReceiptResponse, error) {
	receipt, err := h.Voters.Receipt(ctx, voterID)
	if err != nil {
		return httptransport.BallotReceiptResponse{}, err
	}
	return httptransport.BallotReceiptResponse{
		VoterID:  receipt.Voter.VoterID,
		HasVoted: receipt.Voter.HasVoted,
		Votes:    mapVotes(receipt.Votes),
	}, nil
}

func mapCandidate(candidate entities.Candidate) httptransport.CandidateResponse {
	return httptransport.CandidateResponse{
		ID:            candidate.ID,
		Name:          candidate.Name,
		VoterID:       candidate.VoterID,
		HasVoted:      candidate.HasVoted,
		VotesReceived: candidate.VotesReceived,
		CreatedAt:     candidate.CreatedAt,
	}
}

func mapCandidates(items []entities.Candidate) []httptransport.CandidateResponse {
	out := make([]httptransport.CandidateResponse, 0, len(items))
	for _, item := range items {
		out = append(out, mapCandidate(item))
	}
	return out
}

func mapVotes(items []entities.Vote) []httptransport.VoteResponse {
	out := make([]httptransport.VoteResponse, 0, len(items))
	for _, item := range items {
		out = append(out, httptransport.VoteResponse{
			ID:         item.ID,
			VoterID:    item.VoterID,
			VotedForID: item.VotedForID,
			CreatedAt:  item.CreatedAt,
		})
	}
	return out
}
