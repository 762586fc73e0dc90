// Package producer writes events to Kafka with retries and lifecycle support.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/resilience"
)

// messageWriter is the subset of *kafkago.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer wraps a kafka-go Writer.
type Producer struct {
	writer messageWriter
	cfg    kafka.Config
	log    *logger.Logger
	retry  resilience.RetryConfig
	mu     sync.RWMutex
	closed bool
}

var _ provider.Provider = (*Producer)(nil)

// NewProducer creates a producer. kafka-go dials brokers lazily on first write.
func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("kafka.producer")

	transport, err := kafka.NewTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Transport:              transport,
		Balancer:               &kafkago.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:            cfg.Codec(),
		AllowAutoTopicCreation: true,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			log.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}

	log.Info("kafka producer initialized", logger.Fields(
		"brokers", cfg.Brokers, "topic", cfg.Topic, "compression", cfg.Compression,
	))
	return newProducer(w, cfg, log), nil
}

func newProducer(w messageWriter, cfg kafka.Config, log *logger.Logger) *Producer {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Retries
	retry.RetryIf = kafka.IsRetryableError
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("kafka write failed, retrying", logger.Fields(
			"attempt", attempt, logger.FieldError, err.Error(), "backoff", backoff.String(),
		))
	}
	return &Producer{writer: w, cfg: cfg, log: log, retry: retry}
}

// Name implements provider.Provider.
func (p *Producer) Name() string { return "kafka" }

// IsAvailable reports whether the producer is open.
func (p *Producer) IsAvailable(_ context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// WriteMessages writes msgs, retrying transient failures.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("kafka producer is closed")
	}

	err := resilience.RetryFunc(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// SendJSON marshals value and writes it to topic under key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return p.WriteMessages(ctx, kafkago.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: []kafkago.Header{{Key: "content-type", Value: []byte("application/json")}},
	})
}

// Stats is a snapshot of writer counters since the last call.
type Stats struct {
	Messages int64
	Errors   int64
	Retries  int64
}

// Stats returns writer counters. The underlying writer resets them on read.
func (p *Producer) Stats() Stats {
	s := p.writer.Stats()
	return Stats{Messages: s.Messages, Errors: s.Errors, Retries: s.Retries}
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("kafka producer closing")
	return p.writer.Close()
}
