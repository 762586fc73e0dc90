package producer

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
)

// Component owns a Producer for the component registry.
type Component struct {
	cfg      kafka.Config
	log      *logger.Logger
	producer *Producer
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a producer component.
func NewComponent(cfg kafka.Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log}
}

func (c *Component) Name() string { return "kafka" }

// Start creates the producer.
func (c *Component) Start(_ context.Context) error {
	p, err := NewProducer(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("kafka start: %w", err)
	}
	c.producer = p
	return nil
}

// Stop flushes and closes the producer.
func (c *Component) Stop(_ context.Context) error {
	if c.producer == nil {
		return nil
	}
	return c.producer.Close()
}

// Producer returns the producer, or nil before Start.
func (c *Component) Producer() *Producer { return c.producer }

// Topic returns the configured event topic.
func (c *Component) Topic() string { return c.cfg.Topic }

func (c *Component) Health(ctx context.Context) component.Health {
	if c.producer == nil || !c.producer.IsAvailable(ctx) {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "producer not running"}
	}
	if s := c.producer.Stats(); s.Errors > 0 {
		return component.Health{
			Name: c.Name(), Status: component.StatusDegraded,
			Message: fmt.Sprintf("%d write errors", s.Errors),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Type:    "kafka",
		Details: fmt.Sprintf("%s topic=%s", strings.Join(c.cfg.Brokers, ","), c.cfg.Topic),
	}
}
