package events

import (
	"encoding/json"
	"time"
)

// Envelope is the versioned event shape written to the outbox and carried on
// the message bus. Keep it backward compatible: consumers decode Data by
// EventType and SchemaVersion.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}
