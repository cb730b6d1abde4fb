package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher only logs that an event would have been sent. The body is not
// logged since it may carry a verification code.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, routingKey, key, eventID string, body []byte) error {
	p.logger.Info().
		Str("routing_key", routingKey).
		Str("key", key).
		Str("event_id", eventID).
		Int("bytes", len(body)).
		Msg("event not sent: log-only notifier")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
