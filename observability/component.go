package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

// Component installs the tracer and meter providers on Start and flushes them on Stop.
type Component struct {
	cfg Config
	res Resource
	log *logger.Logger
	tp  *sdktrace.TracerProvider
	mp  *sdkmetric.MeterProvider
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the telemetry component.
func NewComponent(cfg Config, res Resource, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, res: res, log: log.WithComponent("observability")}
}

func (c *Component) Name() string { return "observability" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Debug("telemetry export disabled")
		return nil
	}
	tp, err := InitTracer(ctx, c.cfg, c.res)
	if err != nil {
		return fmt.Errorf("observability start: %w", err)
	}
	mp, err := InitMeter(ctx, c.cfg, c.res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("observability start: %w", err)
	}
	c.tp, c.mp = tp, mp
	c.log.Info("telemetry initialized", logger.Fields("endpoint", c.cfg.Endpoint, "sample_rate", c.cfg.SampleRate))
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
	}
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	if !c.cfg.Enabled {
		return component.Description{Type: "otel", Details: "disabled"}
	}
	return component.Description{Type: "otel", Details: fmt.Sprintf("otlp http %s", c.cfg.Endpoint)}
}
