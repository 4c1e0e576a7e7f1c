package otel

import (
	"context"
	"sync"
	"testing"

	waitgate "github.com/MrEthical07/waitgate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot waitgate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() waitgate.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := waitgate.MetricsSnapshot{
		Counters:   make(map[waitgate.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[waitgate.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("waitgate-test")

	src := &fakeSource{
		snapshot: waitgate.MetricsSnapshot{
			Counters: map[waitgate.MetricID]uint64{
				waitgate.MetricSignupAllowed:       3,
				waitgate.MetricWebhookSpamRejected: 2,
				waitgate.MetricStoreUnavailable:    4,
			},
			Histograms: map[waitgate.MetricID][]uint64{
				waitgate.MetricEvaluateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}
	if got := decisionValue(t, rm, "signup", "allowed"); got != 3 {
		t.Fatalf("expected 3 allowed signups, got %d", got)
	}
	if got := decisionValue(t, rm, "webhook", "spam"); got != 2 {
		t.Fatalf("expected 2 spam rejections, got %d", got)
	}
	if got := counterValue(t, rm, StoreUnavailableName); got != 4 {
		t.Fatalf("expected store_unavailable 4, got %d", got)
	}
	if got := counterValue(t, rm, AuditDroppedName); got != 1 {
		t.Fatalf("expected audit_dropped 1, got %d", got)
	}
	if got := bucketValue(t, rm, "+Inf"); got != 8 {
		t.Fatalf("expected +Inf bucket 8, got %d", got)
	}
	if got := bucketValue(t, rm, "0.001"); got != 1 {
		t.Fatalf("expected first bucket 1, got %d", got)
	}
}

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return metricdata.Metrics{}
}

func decisionValue(t *testing.T, rm metricdata.ResourceMetrics, flow, outcome string) int64 {
	t.Helper()
	sum, ok := findMetric(t, rm, DecisionsName).Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is not an int64 sum", DecisionsName)
	}
	for _, dp := range sum.DataPoints {
		f, _ := dp.Attributes.Value(attribute.Key("flow"))
		o, _ := dp.Attributes.Value(attribute.Key("outcome"))
		if f.AsString() == flow && o.AsString() == outcome {
			return dp.Value
		}
	}
	t.Fatalf("no %s point for flow=%s outcome=%s", DecisionsName, flow, outcome)
	return 0
}

func bucketValue(t *testing.T, rm metricdata.ResourceMetrics, le string) int64 {
	t.Helper()
	gauge, ok := findMetric(t, rm, LatencyBucketName).Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("%s is not an int64 gauge", LatencyBucketName)
	}
	for _, dp := range gauge.DataPoints {
		if v, _ := dp.Attributes.Value(attribute.Key("le")); v.AsString() == le {
			return dp.Value
		}
	}
	t.Fatalf("no bucket le=%s", le)
	return 0
}

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(t, rm, name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) == 0 {
		t.Fatalf("metric %s has unexpected data %T", name, m.Data)
	}
	return sum.DataPoints[0].Value
}

func TestExporterObservesLiveGate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	gate, err := waitgate.New().WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer gate.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	exp, err := NewOTelExporter(provider.Meter("waitgate-test"), gate)
	if err != nil {
		t.Fatalf("NewOTelExporter failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	gate.EvaluateSignup(context.Background(), "1.2.3.4", "alice@example.com")
	gate.EvaluateSignup(context.Background(), "1.2.3.4", "invalid")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got := decisionValue(t, rm, "signup", "allowed"); got != 1 {
		t.Fatalf("expected one admitted signup, got %d", got)
	}
	if got := decisionValue(t, rm, "signup", "invalid"); got != 1 {
		t.Fatalf("expected one invalid signup, got %d", got)
	}
	if got := decisionValue(t, rm, "endpoint", "rate_limited"); got != 0 {
		t.Fatalf("expected no endpoint rejections, got %d", got)
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("waitgate-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("waitgate-test")

	src := &fakeSource{
		snapshot: waitgate.MetricsSnapshot{
			Counters: map[waitgate.MetricID]uint64{
				waitgate.MetricSignupAllowed: 1,
			},
			Histograms: map[waitgate.MetricID][]uint64{
				waitgate.MetricEvaluateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[waitgate.MetricSignupAllowed] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
