package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"voteboard/internal/shared/events"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "voteboard:events:"

// RedisBus fans events out over Redis pub/sub so every process subscribed to
// a topic sees it. Like Bus it is at-most-once; the outbox row stays the
// durable record.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, event events.Envelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.EventID, err)
	}
	if err := b.client.Publish(ctx, redisChannelPrefix+topic, payload).Err(); err != nil {
		b.logger.Error("redis publish failed",
			"event", "redis_bus_publish_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

// Subscribe returns once the subscription is confirmed by Redis and keeps
// consuming until ctx is cancelled.
func (b *RedisBus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	sub := b.client.Subscribe(ctx, redisChannelPrefix+topic)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	go func() {
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event events.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logConsumeFailure(b.logger, topic, consumerGroup, event, err)
					continue
				}
				if err := handler(ctx, event); err != nil {
					logConsumeFailure(b.logger, topic, consumerGroup, event, err)
				}
			}
		}
	}()
	return nil
}
