package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/logger"
)

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1 || cfg.MetricInterval != 15*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	bad := Config{SampleRate: 1.5}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for sample rate > 1")
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "recording.notify")
	if TraceID(ctx) == "" {
		t.Error("expected a trace id in ctx")
	}
	EndSpan(span, errors.New("boom"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d", len(spans))
	}
	if spans[0].Name() != "recording.notify" || spans[0].Status().Code != codes.Error {
		t.Errorf("span = %s status = %v", spans[0].Name(), spans[0].Status())
	}
	if TraceID(context.Background()) != "" {
		t.Error("expected empty trace id without a span")
	}
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewHTTPMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	m.Start(ctx)
	m.End(ctx, "POST", "/upload-session", 200, 5*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if m.Name == "http.server.requests" {
				sum := m.Data.(metricdata.Sum[int64])
				if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
					t.Errorf("requests = %+v", sum.DataPoints)
				}
			}
		}
	}
	for _, name := range []string{"http.server.requests", "http.server.duration", "http.server.active_requests"} {
		if !found[name] {
			t.Errorf("metric %s not recorded", name)
		}
	}
}

func TestServiceHealth(t *testing.T) {
	tests := []struct {
		name   string
		inputs []component.HealthStatus
		want   component.HealthStatus
	}{
		{"none", nil, component.StatusHealthy},
		{"all healthy", []component.HealthStatus{component.StatusHealthy, component.StatusHealthy}, component.StatusHealthy},
		{"degraded", []component.HealthStatus{component.StatusHealthy, component.StatusDegraded}, component.StatusDegraded},
		{"unhealthy wins", []component.HealthStatus{component.StatusUnhealthy, component.StatusDegraded}, component.StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := NewServiceHealth("scribe", "dev")
			for _, s := range tt.inputs {
				sh.Add(component.Health{Name: "c", Status: s})
			}
			if sh.Status != tt.want {
				t.Fatalf("status = %s, want %s", sh.Status, tt.want)
			}
			if sh.Healthy() != (tt.want != component.StatusUnhealthy) {
				t.Fatal("Healthy() disagrees with status")
			}
		})
	}
}

func TestComponent_Disabled(t *testing.T) {
	c := NewComponent(Config{}, Resource{ServiceName: "scribe"}, logger.Nop())
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if d := c.Describe(); d.Details != "disabled" {
		t.Errorf("describe = %+v", d)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}
