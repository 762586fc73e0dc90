package recording

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/kbukum/scribe/observability"
)

type instruments struct {
	sessionsStarted       metric.Int64Counter
	chunksReceived        metric.Int64Counter
	sessionsCompleted     metric.Int64Counter
	transcriptionFailures metric.Int64Counter
}

func newInstruments(meter metric.Meter) *instruments {
	if meter == nil {
		meter = observability.Meter()
	}
	return &instruments{
		sessionsStarted:       counter(meter, "scribe.sessions_started", "Sessions created"),
		chunksReceived:        counter(meter, "scribe.chunks_received", "Chunk uploads confirmed"),
		sessionsCompleted:     counter(meter, "scribe.sessions_completed", "Sessions completed"),
		transcriptionFailures: counter(meter, "scribe.transcription_failures", "Objects or batches that failed to transcribe"),
	}
}

// counter falls back to a no-op instrument if the meter rejects the name.
func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c, _ = noop.NewMeterProvider().Meter("").Int64Counter(name)
	}
	return c
}

func (in *instruments) completed(ctx context.Context, reaped bool, failedObjects int, batchFailed bool) {
	in.sessionsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("reaped", reaped)))
	switch {
	case batchFailed:
		in.transcriptionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", "batch")))
	case failedObjects > 0:
		in.transcriptionFailures.Add(ctx, int64(failedObjects), metric.WithAttributes(attribute.String("scope", "object")))
	}
}
