package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "voteboard/contexts/elections/voting-service/application"
	"voteboard/contexts/elections/voting-service/ports"
)

const defaultRelayBatchSize = 100

// OutboxRelay moves committed ballot events from the outbox onto the bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// relayStage names the step of a row's delivery that failed.
type relayStage string

const (
	stageDecode  relayStage = "decode"
	stagePublish relayStage = "publish"
	stageMark    relayStage = "mark_published"
)

type relayError struct {
	stage    relayStage
	outboxID string
	err      error
}

func (e *relayError) Error() string {
	return fmt.Sprintf("outbox row %s: %s: %v", e.outboxID, e.stage, e.err)
}

func (e *relayError) Unwrap() error {
	return e.err
}

// RunOnce delivers up to BatchSize pending rows oldest first. A row is marked
// published only after the bus accepts it. The cycle stops at the first
// failing row so ordering per voter survives a retry.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = defaultRelayBatchSize
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, batchSize)
	if err != nil {
		logger.Error("ballot outbox list failed",
			"event", "voting_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	publishedAt := time.Now().UTC()
	if r.Clock != nil {
		publishedAt = r.Clock.Now().UTC()
	}

	for i, row := range pending {
		if err := r.deliver(ctx, row, publishedAt); err != nil {
			var failure *relayError
			stage := relayStage("unknown")
			if errors.As(err, &failure) {
				stage = failure.stage
			}
			logger.Error("ballot outbox delivery failed",
				"event", "voting_outbox_delivery_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"partition_key", row.PartitionKey,
				"stage", string(stage),
				"delivered_before_failure", i,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("ballot outbox batch relayed",
		"event", "voting_outbox_relay_completed",
		"module", application.ModuleName,
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}

func (r OutboxRelay) deliver(ctx context.Context, row ports.OutboxMessage, publishedAt time.Time) error {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return &relayError{stage: stageDecode, outboxID: row.OutboxID, err: err}
	}
	topic := event.EventType
	if topic == "" {
		topic = row.EventType
	}
	if err := r.Publisher.Publish(ctx, topic, event); err != nil {
		return &relayError{stage: stagePublish, outboxID: row.OutboxID, err: err}
	}
	if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, publishedAt); err != nil {
		return &relayError{stage: stageMark, outboxID: row.OutboxID, err: err}
	}
	return nil
}
