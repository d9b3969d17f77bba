package event

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher only records events; used when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(zap.String("publisher", "log"))}
}

func (p *LogPublisher) Publish(_ context.Context, events ...Event) error {
	for _, e := range events {
		p.log.Info("Domain event",
			zap.String("event_id", e.ID.String()),
			zap.String("type", string(e.Type)),
			zap.String("booking_id", e.BookingID.String()),
			zap.String("actor", e.Actor),
			zap.Any("data", e.Data),
		)
	}
	return nil
}
