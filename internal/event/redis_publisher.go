package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "booking.events"

type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	log     *zap.Logger
}

func NewRedisPublisher(client redis.UniversalClient, channel string, log *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		log:     log.With(zap.String("publisher", "redis")),
	}
}

// Publish pipelines all events in one round trip.
func (p *RedisPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.Type, err)
		}
		pipe.Publish(ctx, p.channel, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Error("Failed to publish events",
			zap.Error(err),
			zap.String("channel", p.channel),
			zap.Int("count", len(events)),
		)
		return fmt.Errorf("publish %d events to %s: %w", len(events), p.channel, err)
	}
	return nil
}
