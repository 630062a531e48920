package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "voteboard/contexts/elections/voting-service/application"
	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	"voteboard/contexts/elections/voting-service/ports"
)

// SubmitBallotCommand carries the voter's login identifier and the candidate
// ids they selected, in request order.
type SubmitBallotCommand struct {
	VoterID              string
	SelectedCandidateIDs []int64
}

type SubmitBallotResult struct {
	Voter entities.Candidate
	Votes []entities.Vote
}

// BallotUseCase validates and applies one voter's ballot. All checks after
// the shape check and every write run inside a single store transaction, so a
// ballot is either fully applied or leaves no trace.
type BallotUseCase struct {
	Ballots ports.BallotUnitOfWork
	Cache   ports.ResultsCache
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

func (uc BallotUseCase) SubmitBallot(ctx context.Context, cmd SubmitBallotCommand) (SubmitBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	voterID := strings.TrimSpace(cmd.VoterID)
	if voterID == "" || !entities.IsWellFormedSelection(cmd.SelectedCandidateIDs) {
		logger.Warn("ballot rejected before transaction",
			"event", "voting_ballot_malformed",
			"module", application.ModuleName,
			"layer", "application",
			"voter_id", voterID,
			"selected_count", len(cmd.SelectedCandidateIDs),
		)
		return SubmitBallotResult{}, domainerrors.ErrMalformedBallot
	}

	now := uc.now()
	var result SubmitBallotResult
	err := uc.Ballots.WithinBallotTx(ctx, func(ctx context.Context, tx ports.BallotTx) error {
		resolved, found, err := tx.FindVoter(ctx, voterID)
		if err != nil {
			return err
		}
		if !found {
			return domainerrors.ErrUnknownVoter
		}

		// The voter and every recipient are locked in one call so concurrent
		// ballots always acquire rows in the same order.
		locked, err := tx.LockCandidates(ctx, ballotLockSet(resolved.ID, cmd.SelectedCandidateIDs))
		if err != nil {
			return err
		}
		voter, found := locked[resolved.ID]
		if !found {
			return domainerrors.ErrUnknownVoter
		}
		if voter.HasVoted {
			return domainerrors.ErrAlreadyVoted
		}

		for _, candidateID := range cmd.SelectedCandidateIDs {
			if _, exists := locked[candidateID]; !exists {
				return domainerrors.ErrUnknownCandidate
			}
			if candidateID == voter.ID {
				return domainerrors.ErrSelfVote
			}
		}

		votes := make([]entities.Vote, 0, len(cmd.SelectedCandidateIDs))
		for _, candidateID := range cmd.SelectedCandidateIDs {
			vote, err := tx.RecordVote(ctx, voter.ID, candidateID, now)
			if err != nil {
				return err
			}
			votes = append(votes, vote)
		}
		if err := tx.MarkVoted(ctx, voter.ID); err != nil {
			return err
		}

		envelope, err := uc.ballotEnvelope(ctx, voter, votes, now)
		if err != nil {
			return err
		}
		if err := tx.AppendOutbox(ctx, envelope); err != nil {
			return err
		}

		voter.HasVoted = true
		result = SubmitBallotResult{Voter: voter, Votes: votes}
		return nil
	})
	if err != nil {
		if domainerrors.IsRejection(err) {
			logger.Warn("ballot rejected",
				"event", "voting_ballot_rejected",
				"module", application.ModuleName,
				"layer", "application",
				"voter_id", voterID,
				"reason", err.Error(),
			)
			return SubmitBallotResult{}, err
		}
		logger.Error("ballot transaction failed",
			"event", "voting_ballot_failed",
			"module", application.ModuleName,
			"layer", "application",
			"voter_id", voterID,
			"error", err.Error(),
		)
		return SubmitBallotResult{}, wrapStorage(err)
	}

	invalidateResults(ctx, uc.Cache, logger)
	logger.Info("ballot recorded",
		"event", "voting_ballot_recorded",
		"module", application.ModuleName,
		"layer", "application",
		"voter_id", voterID,
		"candidate_id", result.Voter.ID,
		"votes", len(result.Votes),
	)
	return result, nil
}

func (uc BallotUseCase) ballotEnvelope(
	ctx context.Context,
	voter entities.Candidate,
	votes []entities.Vote,
	now time.Time,
) (ports.EventEnvelope, error) {
	eventID, err := newEventID(ctx, uc.IDGen)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	candidateIDs := make([]int64, 0, len(votes))
	voteIDs := make([]int64, 0, len(votes))
	for _, vote := range votes {
		candidateIDs = append(candidateIDs, vote.VotedForID)
		voteIDs = append(voteIDs, vote.ID)
	}
	return newBallotEnvelope(eventID, EventBallotSubmitted, voter.VoterID, now, map[string]any{
		"candidate_id":  voter.ID,
		"voter_id":      voter.VoterID,
		"candidate_ids": candidateIDs,
		"vote_ids":      voteIDs,
		"submitted_at":  now.UTC(),
	})
}

func ballotLockSet(voterID int64, selected []int64) []int64 {
	ids := make([]int64, 0, len(selected)+1)
	ids = append(ids, voterID)
	return append(ids, selected...)
}

func (uc BallotUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func newEventID(ctx context.Context, gen ports.IDGenerator) (string, error) {
	if gen == nil {
		return "", errors.New("id generator is not configured")
	}
	return gen.NewID(ctx)
}

// invalidateResults drops the cached leaderboard. A failure only delays
// freshness until the entry expires, so it is logged and not returned.
func invalidateResults(ctx context.Context, cache ports.ResultsCache, logger *slog.Logger) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateResults(ctx); err != nil {
		logger.Warn("results cache invalidation failed",
			"event", "voting_results_cache_invalidate_failed",
			"module", application.ModuleName,
			"layer", "application",
			"error", err.Error(),
		)
	}
}
