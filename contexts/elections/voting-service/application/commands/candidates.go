package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "voteboard/contexts/elections/voting-service/application"
	"voteboard/contexts/elections/voting-service/domain/entities"
	domainerrors "voteboard/contexts/elections/voting-service/domain/errors"
	"voteboard/contexts/elections/voting-service/ports"
)

// CandidateUseCase covers the admin registration paths.
type CandidateUseCase struct {
	Candidates ports.CandidateRepository
	Cache      ports.ResultsCache
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (uc CandidateUseCase) RegisterCandidate(ctx context.Context, input entities.NewCandidate) (entities.Candidate, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalized, ok := normalizeNewCandidate(input)
	if !ok {
		return entities.Candidate{}, domainerrors.ErrInvalidCandidateInput
	}

	candidate, err := uc.Candidates.CreateCandidate(ctx, normalized, uc.now())
	if err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateVoterID) {
			logger.Warn("candidate registration rejected",
				"event", "voting_candidate_duplicate_voter_id",
				"module", application.ModuleName,
				"layer", "application",
				"voter_id", normalized.VoterID,
			)
			return entities.Candidate{}, err
		}
		return entities.Candidate{}, wrapStorage(err)
	}

	invalidateResults(ctx, uc.Cache, logger)
	logger.Info("candidate registered",
		"event", "voting_candidate_registered",
		"module", application.ModuleName,
		"layer", "application",
		"candidate_id", candidate.ID,
		"voter_id", candidate.VoterID,
	)
	return candidate, nil
}

// ImportCandidates registers a batch atomically. A voter id repeated inside
// the batch or already present in the store rejects the whole batch.
func (uc CandidateUseCase) ImportCandidates(ctx context.Context, inputs []entities.NewCandidate) ([]entities.Candidate, error) {
	logger := application.ResolveLogger(uc.Logger)
	if len(inputs) == 0 {
		return nil, domainerrors.ErrInvalidCandidateInput
	}
	batch := make([]entities.NewCandidate, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		normalized, ok := normalizeNewCandidate(input)
		if !ok {
			return nil, domainerrors.ErrInvalidCandidateInput
		}
		if _, dup := seen[normalized.VoterID]; dup {
			return nil, domainerrors.ErrDuplicateVoterID
		}
		seen[normalized.VoterID] = struct{}{}
		batch = append(batch, normalized)
	}

	created, err := uc.Candidates.CreateCandidates(ctx, batch, uc.now())
	if err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateVoterID) {
			logger.Warn("candidate import rejected",
				"event", "voting_candidate_import_duplicate",
				"module", application.ModuleName,
				"layer", "application",
				"batch_size", len(batch),
			)
			return nil, err
		}
		return nil, wrapStorage(err)
	}

	invalidateResults(ctx, uc.Cache, logger)
	logger.Info("candidates imported",
		"event", "voting_candidates_imported",
		"module", application.ModuleName,
		"layer", "application",
		"count", len(created),
	)
	return created, nil
}

func (uc CandidateUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func normalizeNewCandidate(input entities.NewCandidate) (entities.NewCandidate, bool) {
	name := strings.TrimSpace(input.Name)
	voterID := strings.TrimSpace(input.VoterID)
	if name == "" || voterID == "" {
		return entities.NewCandidate{}, false
	}
	return entities.NewCandidate{Name: name, VoterID: voterID}, true
}

func wrapStorage(err error) error {
	if errors.Is(err, domainerrors.ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrStorageFailure, err)
}
