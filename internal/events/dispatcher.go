package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
)

// Publisher delivers an encoded envelope. key is the partition key and eventID
// identifies this one message.
type Publisher interface {
	Publish(ctx context.Context, routingKey, key, eventID string, body []byte) error
	Close() error
}

// Sequencer hands out per-partition sequence numbers.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

// Dispatcher implements order.Notifier by publishing enveloped events.
type Dispatcher struct {
	pub      Publisher
	seq      Sequencer
	producer string
	logger   zerolog.Logger
	now      func() time.Time
}

var _ order.Notifier = (*Dispatcher)(nil)

func NewDispatcher(pub Publisher, seq Sequencer, producer string, logger zerolog.Logger) *Dispatcher {
	if producer == "" {
		producer = defaultProducer
	}
	return &Dispatcher{
		pub:      pub,
		seq:      seq,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

func (d *Dispatcher) OrderConfirmed(ctx context.Context, o order.ConfirmedOrder) error {
	return d.publish(ctx, OrderConfirmedRoutingKey, EventTypeOrderConfirmed, orderConfirmedSchema, o.ID, orderConfirmedPayload(o))
}

func (d *Dispatcher) VerificationCodeIssued(ctx context.Context, p order.PendingOrder, code string) error {
	return d.publish(ctx, VerificationCodeIssuedRoutingKey, EventTypeVerificationCodeIssued, verificationCodeIssuedSchema, p.ID, verificationCodeIssuedPayload(p, code))
}

func (d *Dispatcher) publish(ctx context.Context, routingKey, name, schema, partitionKey string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", name, err)
	}

	var seq int64
	if d.seq != nil {
		seq, err = d.seq.NextSequence(ctx, partitionKey)
		if err != nil {
			return fmt.Errorf("reserve sequence: %w", err)
		}
	}

	env := EventEnvelope{
		EventName:    name,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     d.producer,
		PartitionKey: partitionKey,
		Sequence:     seq,
		OccurredAt:   d.now().UTC(),
		Schema:       schema,
		Payload:      raw,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", name, err)
	}

	if err := d.pub.Publish(ctx, routingKey, partitionKey, env.EventID, body); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	d.logger.Debug().
		Str("event", name).
		Str("event_id", env.EventID).
		Str("partition_key", partitionKey).
		Int64("sequence", seq).
		Msg("event published")
	return nil
}
