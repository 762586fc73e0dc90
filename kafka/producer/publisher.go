package producer

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
)

// Publisher writes kafka.Event envelopes.
type Publisher struct {
	producer *Producer
	log      *logger.Logger
}

// NewPublisher creates a publisher over producer.
func NewPublisher(producer *Producer, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{producer: producer, log: log.WithComponent("kafka.publisher")}
}

// Publish writes event to topic. Events are keyed by Subject so all events of
// one subject land on one partition; events without a subject use their id.
func (p *Publisher) Publish(ctx context.Context, topic string, event kafka.Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	key := event.Subject
	if key == "" {
		key = event.ID
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-source", Value: []byte(event.Source)},
			{Key: "content-type", Value: []byte(event.ContentType)},
		},
		Time: event.Timestamp,
	}
	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.log.Debug("event published", logger.Fields("topic", topic, "event_type", event.Type, "event_id", event.ID))
	return nil
}
