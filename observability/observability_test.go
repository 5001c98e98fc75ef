package observability

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("orders")

	if cfg.ServiceName != "orders" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "orders")
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, "localhost:4318")
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to default to true")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v, want 1.0", cfg.SampleRate)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("orders")

	if cfg.ServiceName != "orders" {
		t.Errorf("ServiceName = %q, want %q", cfg.ServiceName, "orders")
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("Interval = %v, want 15s", cfg.Interval)
	}
}

func TestNewClientMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewClientMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewClientMetrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordRequest(ctx, "GET", 200, "success", 25*time.Millisecond)
	metrics.RecordRequest(ctx, "POST", 503, "http", 5*time.Millisecond)
	metrics.RecordRetry(ctx, "http://orders.internal")
	metrics.RecordBreakerTransition(ctx, "orders", "closed", "open")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected recorded metrics, got none")
	}

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{
		"client.request.total",
		"client.request.duration",
		"client.retry.total",
		"client.breaker.transitions",
	} {
		if !names[want] {
			t.Errorf("metric %q not recorded", want)
		}
	}
}

func TestClientMetricsNilReceiver(t *testing.T) {
	var metrics *ClientMetrics

	ctx := context.Background()
	metrics.RecordRequest(ctx, "GET", 200, "success", time.Millisecond)
	metrics.RecordRetry(ctx, "http://orders.internal")
	metrics.RecordBreakerTransition(ctx, "orders", "open", "half_open")
}
