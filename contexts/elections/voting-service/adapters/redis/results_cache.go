package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"voteboard/contexts/elections/voting-service/domain/entities"

	"github.com/redis/go-redis/v9"
)

const defaultResultsKey = "voteboard:results:v1"

// ResultsCache stores the leaderboard as one JSON value shared by every API
// replica. Redis expires the key; the stored deadline is also checked against
// the caller's clock.
type ResultsCache struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

func NewResultsCache(client *redis.Client, key string, logger *slog.Logger) *ResultsCache {
	if strings.TrimSpace(key) == "" {
		key = defaultResultsKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsCache{client: client, key: key, logger: logger}
}

func (c *ResultsCache) GetResults(ctx context.Context, now time.Time) (entities.Results, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.Results{}, false, nil
		}
		return entities.Results{}, false, c.logError("voting_results_cache_get_failed", err)
	}
	var record cachedResults
	if err := json.Unmarshal(raw, &record); err != nil {
		return entities.Results{}, false, c.logError("voting_results_cache_decode_failed", err)
	}
	if !now.Before(record.ExpiresAt) {
		return entities.Results{}, false, nil
	}
	return record.toEntity(), true, nil
}

func (c *ResultsCache) generationKey() string {
	return c.key + ":generation"
}

func (c *ResultsCache) Generation(ctx context.Context) (uint64, error) {
	generation, err := c.client.Get(ctx, c.generationKey()).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, c.logError("voting_results_cache_generation_failed", err)
	}
	return generation, nil
}

// SetResults writes under WATCH on the generation key, so an invalidation
// from any replica between the caller's Generation read and this write
// leaves the cache empty.
func (c *ResultsCache) SetResults(
	ctx context.Context,
	results entities.Results,
	generation uint64,
	expiresAt time.Time,
) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return false, nil
	}
	payload, err := json.Marshal(cachedResultsFromEntity(results, expiresAt))
	if err != nil {
		return false, c.logError("voting_results_cache_encode_failed", err)
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.generationKey()).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, payload, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, c.generationKey())
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, c.logError("voting_results_cache_set_failed", err)
	}
	return stored, nil
}

func (c *ResultsCache) InvalidateResults(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.generationKey())
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return c.logError("voting_results_cache_invalidate_failed", err)
	}
	return nil
}

func (c *ResultsCache) logError(event string, err error) error {
	c.logger.Error("results cache operation failed",
		"event", event,
		"module", "elections/voting-service",
		"layer", "adapter",
		"key", c.key,
		"error", err.Error(),
	)
	return err
}

type cachedCandidate struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	VoterID       string    `json:"voter_id"`
	HasVoted      bool      `json:"has_voted"`
	VotesReceived int       `json:"votes_received"`
	CreatedAt     time.Time `json:"created_at"`
	Percentage    float64   `json:"percentage"`
}

type cachedResults struct {
	Candidates         []cachedCandidate `json:"candidates"`
	TotalVotes         int               `json:"total_votes"`
	VotersParticipated int               `json:"voters_participated"`
	RemainingVoters    int               `json:"remaining_voters"`
	ParticipationRate  int               `json:"participation_rate"`
	ExpiresAt          time.Time         `json:"expires_at"`
}

func cachedResultsFromEntity(results entities.Results, expiresAt time.Time) cachedResults {
	items := make([]cachedCandidate, 0, len(results.Candidates))
	for _, item := range results.Candidates {
		items = append(items, cachedCandidate{
			ID:            item.ID,
			Name:          item.Name,
			VoterID:       item.VoterID,
			HasVoted:      item.HasVoted,
			VotesReceived: item.VotesReceived,
			CreatedAt:     item.CreatedAt.UTC(),
			Percentage:    item.Percentage,
		})
	}
	return cachedResults{
		Candidates:         items,
		TotalVotes:         results.Stats.TotalVotes,
		VotersParticipated: results.Stats.VotersParticipated,
		RemainingVoters:    results.Stats.RemainingVoters,
		ParticipationRate:  results.Stats.ParticipationRate,
		ExpiresAt:          expiresAt.UTC(),
	}
}

func (r cachedResults) toEntity() entities.Results {
	items := make([]entities.CandidateResult, 0, len(r.Candidates))
	for _, item := range r.Candidates {
		items = append(items, entities.CandidateResult{
			Candidate: entities.Candidate{
				ID:            item.ID,
				Name:          item.Name,
				VoterID:       item.VoterID,
				HasVoted:      item.HasVoted,
				VotesReceived: item.VotesReceived,
				CreatedAt:     item.CreatedAt,
			},
			Percentage: item.Percentage,
		})
	}
	return entities.Results{
		Candidates: items,
		Stats: entities.VotingStats{
			TotalVotes:         r.TotalVotes,
			VotersParticipated: r.VotersParticipated,
			RemainingVoters:    r.RemainingVoters,
			ParticipationRate:  r.ParticipationRate,
		},
	}
}
