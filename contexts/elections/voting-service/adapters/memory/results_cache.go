package memory

import (
	"context"
	"sync"
	"time"

	"voteboard/contexts/elections/voting-service/domain/entities"
)

// ResultsCache keeps one leaderboard snapshot in process memory. It backs
// single-replica deployments that run without Redis.
type ResultsCache struct {
	mu         sync.RWMutex
	results    entities.Results
	expiresAt  time.Time
	cached     bool
	generation uint64
}

func NewResultsCache() *ResultsCache {
	return &ResultsCache{}
}

func (c *ResultsCache) GetResults(_ context.Context, now time.Time) (entities.Results, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.cached || !now.Before(c.expiresAt) {
		return entities.Results{}, false, nil
	}
	return c.results, true, nil
}

func (c *ResultsCache) Generation(_ context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation, nil
}

// SetResults stores results unless the cache was invalidated after
// generation was read.
func (c *ResultsCache) SetResults(
	_ context.Context,
	results entities.Results,
	generation uint64,
	expiresAt time.Time,
) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false, nil
	}
	c.results = results
	c.expiresAt = expiresAt
	c.cached = true
	return true, nil
}

func (c *ResultsCache) InvalidateResults(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = entities.Results{}
	c.cached = false
	c.generation++
	return nil
}
