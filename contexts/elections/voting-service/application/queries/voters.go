package queries

import (
	"context"
	"strings"

	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	"voteboard/contexts/elections/voting-service/ports"
)

type BallotReceipt struct {
	Voter entities.Candidate
	Votes []entities.Vote
}

type VoterUseCase struct {
	Candidates ports.CandidateRepository
}

// Login resolves a candidate by login identifier. It does not create a
// session; the caller keeps the returned identity.
func (uc VoterUseCase) Login(ctx context.Context, voterID string) (entities.Candidate, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return entities.Candidate{}, domainerrors.ErrVoterIDRequired
	}
	candidate, found, err := uc.Candidates.GetCandidateByVoterID(ctx, voterID)
	if err != nil {
		return entities.Candidate{}, err
	}
	if !found {
		return entities.Candidate{}, domainerrors.ErrUnknownVoter
	}
	return candidate, nil
}

func (uc VoterUseCase) ListCandidates(ctx context.Context) ([]entities.Candidate, error) {
	return uc.Candidates.ListCandidates(ctx)
}

// Receipt lists the votes cast by the voter, empty until they submit.
func (uc VoterUseCase) Receipt(ctx context.Context, voterID string) (BallotReceipt, error) {
	voter, err := uc.Login(ctx, voterID)
	if err != nil {
		return BallotReceipt{}, err
	}
	votes, err := uc.Candidates.ListVotesByVoter(ctx, voter.ID)
	if err != nil {
		return BallotReceipt{}, err
	}
	return BallotReceipt{Voter: voter, Votes: votes}, nil
}
