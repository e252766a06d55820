package otel

import (
	"context"
	"testing"

	lumio "github.com/lumioedu/lumio-go"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	snapshot lumio.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() lumio.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                   { return f.dropped }

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("lumio-test")

	src := &fakeSource{
		snapshot: lumio.MetricsSnapshot{
			Counters: map[lumio.MetricID]uint64{
				lumio.MetricLoginSuccess: 3,
			},
			Histograms: map[lumio.MetricID][]uint64{
				lumio.MetricRequestLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exporter, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	t.Cleanup(func() { _ = exporter.Close() })

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	values := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] = dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					values[m.Name] = dp.Value
				}
			}
		}
	}

	if got := values["lumio_login_success_total"]; got != 3 {
		t.Fatalf("login counter = %d, want 3", got)
	}
	if got := values["lumio_request_latency_seconds_count"]; got != 8 {
		t.Fatalf("histogram count = %d, want 8", got)
	}
	if got := values["lumio_request_latency_seconds_bucket_le_inf"]; got != 8 {
		t.Fatalf("+Inf bucket = %d, want cumulative 8", got)
	}
	if got := values["lumio_request_latency_seconds_bucket_le_0_005"]; got != 1 {
		t.Fatalf("first bucket = %d, want 1", got)
	}
	if got := values["lumio_audit_dropped_total"]; got != 1 {
		t.Fatalf("dropped counter = %d, want 1", got)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("lumio-test")

	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}

func TestExporterCloseUnregisters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("lumio-test")

	exporter, err := NewExporterFromSource(meter, &fakeSource{
		snapshot: lumio.MetricsSnapshot{
			Counters:   map[lumio.MetricID]uint64{},
			Histograms: map[lumio.MetricID][]uint64{},
		},
	})
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Idempotent.
	if err := exporter.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
