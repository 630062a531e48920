package commands

import (
	"encoding/json"
	"time"

	"voteboard/contexts/elections/voting-service/ports"
)

const (
	EventBallotSubmitted = "ballot.submitted"
	sourceService        = "voting-service"
)

func newBallotEnvelope(
	eventID string,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by voter so a voter's events stay ordered.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "voter_id",
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
