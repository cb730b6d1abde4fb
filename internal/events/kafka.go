package events

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes every event to one topic keyed by order id, so events
// of an order stay in one partition. The routing key travels as a header.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokersCSV, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(splitBrokers(brokersCSV)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func splitBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (p *KafkaPublisher) Publish(ctx context.Context, routingKey, key, eventID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.w.WriteMessages(pubCtx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "routingKey", Value: []byte(routingKey)},
			{Key: "contentType", Value: []byte("application/json")},
			{Key: "eventId", Value: []byte(eventID)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
