package app

import (
	"context"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/kafka/producer"
	"github.com/kbukum/scribe/recording"
)

// kafkaEvents publishes completion events as kafka.Event envelopes keyed by
// session id.
type kafkaEvents struct {
	publisher *producer.Publisher
	topic     string
	source    string
}

var _ recording.EventPublisher = (*kafkaEvents)(nil)

func newKafkaEvents(p *producer.Publisher, topic, source string) *kafkaEvents {
	return &kafkaEvents{publisher: p, topic: topic, source: source}
}

func (k *kafkaEvents) PublishCompleted(ctx context.Context, evt recording.CompletionEvent) error {
	return k.publisher.Publish(ctx, k.topic, completionEvent(k.source, evt))
}

func completionEvent(source string, evt recording.CompletionEvent) kafka.Event {
	e := kafka.NewEvent(recording.EventCompleted, source, evt.SessionID, map[string]any{
		"sessionId":        evt.SessionID,
		"userId":           evt.OwnerID,
		"patientId":        evt.PatientID,
		"chunks":           evt.Chunks,
		"failedChunks":     evt.FailedChunks,
		"transcriptFailed": evt.TranscriptFailed,
		"reaped":           evt.Reaped,
	})
	e.Timestamp = evt.CompletedAt
	return e
}
