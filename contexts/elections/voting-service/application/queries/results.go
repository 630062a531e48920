package queries

import (
	"context"
	"log/slog"
	"time"

	application "voteboard/contexts/elections/voting-service/application"
	"voteboard/contexts/elections/voting-service/domain/entities"
	"voteboard/contexts/elections/voting-service/ports"
)

const defaultResultsCacheTTL = 2 * time.Second

// ResultsUseCase serves the leaderboard and participation views. Results are
// read cache-first; a cache fault falls back to the store.
type ResultsUseCase struct {
	Candidates ports.CandidateRepository
	Cache      ports.ResultsCache
	CacheTTL   time.Duration
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (uc ResultsUseCase) Results(ctx context.Context) (entities.Results, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := uc.now()
	cacheable := false
	var generation uint64
	if uc.Cache != nil {
		cached, hit, err := uc.Cache.GetResults(ctx, now)
		if err != nil {
			logger.Warn("results cache read failed",
				"event", "voting_results_cache_read_failed",
				"module", application.ModuleName,
				"layer", "application",
				"error", err.Error(),
			)
		} else if hit {
			return cached, nil
		}
		// The generation must be read before the store so that a ballot
		// committed during the read voids the write below.
		if generation, err = uc.Cache.Generation(ctx); err == nil {
			cacheable = true
		}
	}

	results, err := ComputeResults(ctx, uc.Candidates)
	if err != nil {
		return entities.Results{}, err
	}

	if cacheable {
		stored, err := uc.Cache.SetResults(ctx, results, generation, now.Add(uc.cacheTTL()))
		switch {
		case err != nil:
			logger.Warn("results cache write failed",
				"event", "voting_results_cache_write_failed",
				"module", application.ModuleName,
				"layer", "application",
				"error", err.Error(),
			)
		case !stored:
			logger.Debug("results cache write skipped after invalidation",
				"event", "voting_results_cache_write_skipped",
				"module", application.ModuleName,
				"layer", "application",
				"generation", generation,
			)
		}
	}
	return results, nil
}

func (uc ResultsUseCase) Status(ctx context.Context) (entities.ParticipationStatus, error) {
	candidates, err := uc.Candidates.ListCandidates(ctx)
	if err != nil {
		return entities.ParticipationStatus{}, err
	}
	voted, pending := entities.PartitionByParticipation(candidates)
	return entities.ParticipationStatus{Voted: voted, Pending: pending}, nil
}

// ComputeResults reads the leaderboard and stats from one store snapshot.
func ComputeResults(ctx context.Context, repo ports.CandidateRepository) (entities.Results, error) {
	leaderboard, stats, err := repo.LeaderboardSnapshot(ctx)
	if err != nil {
		return entities.Results{}, err
	}
	return entities.NewResults(leaderboard, stats), nil
}

func (uc ResultsUseCase) cacheTTL() time.Duration {
	if uc.CacheTTL <= 0 {
		return defaultResultsCacheTTL
	}
	return uc.CacheTTL
}

func (uc ResultsUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
