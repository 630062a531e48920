package workers

import (
	"context"
	"log/slog"
	"strings"

	application "voteboard/contexts/elections/voting-service/application"
	"voteboard/contexts/elections/voting-service/ports"
)

const (
	ballotSubmittedTopic     = "ballot.submitted"
	defaultInvalidationGroup = "voting-service-results-cg"
)

// ResultsInvalidationConsumer drops the shared results cache whenever any
// replica commits a ballot.
type ResultsInvalidationConsumer struct {
	Subscriber    ports.EventSubscriber
	Cache         ports.ResultsCache
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c ResultsInvalidationConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultInvalidationGroup
	}
	if err := c.Subscriber.Subscribe(ctx, ballotSubmittedTopic, group, c.handleBallotSubmitted); err != nil {
		logger.Error("results invalidation subscribe failed",
			"event", "voting_results_consumer_subscribe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"topic", ballotSubmittedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("results invalidation consumer subscribed",
		"event", "voting_results_consumer_started",
		"module", application.ModuleName,
		"layer", "worker",
		"topic", ballotSubmittedTopic,
		"consumer_group", group,
	)
	return nil
}

func (c ResultsInvalidationConsumer) handleBallotSubmitted(ctx context.Context, event ports.EventEnvelope) error {
	if c.Cache == nil {
		return nil
	}
	if err := c.Cache.InvalidateResults(ctx); err != nil {
		application.ResolveLogger(c.Logger).Error("results invalidation failed",
			"event", "voting_results_consumer_invalidate_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
