package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	waitgate "github.com/MrEthical07/waitgate"
	"github.com/MrEthical07/waitgate/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names. Decision counts share one instrument split by flow and outcome.
const (
	DecisionsName        = "waitgate.decisions"
	StoreUnavailableName = "waitgate.store.unavailable"
	ConsumeFailedName    = "waitgate.consume.failed"
	AuditDroppedName     = "waitgate.audit.dropped"
	LatencyBucketName    = "waitgate.evaluate.latency.bucket"
	LatencyCountName     = "waitgate.evaluate.latency.count"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	// MetricsSnapshot must be safe to call from the SDK collection goroutine.
	MetricsSnapshot() waitgate.MetricsSnapshot
	AuditDropped() uint64
}

type decisionSeries struct {
	id    waitgate.MetricID
	attrs metric.ObserveOption
}

// OTelExporter bridges gate metrics into observable OTel instruments.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration

	decisions        metric.Int64ObservableCounter
	series           []decisionSeries
	storeUnavailable metric.Int64ObservableCounter
	consumeFailed    metric.Int64ObservableCounter
	auditDropped     metric.Int64ObservableCounter
	latencyBucket    metric.Int64ObservableGauge
	latencyCount     metric.Int64ObservableGauge
	bucketAttrs      []metric.ObserveOption
}

// NewOTelExporter observes gate counters on every collection cycle of meter's provider.
func NewOTelExporter(meter metric.Meter, gate *waitgate.Gate) (*OTelExporter, error) {
	if gate == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, gate)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var err error

	if e.decisions, err = meter.Int64ObservableCounter(DecisionsName,
		metric.WithDescription("Gate decisions by flow and outcome.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", DecisionsName, err)
	}
	for _, def := range internaldefs.CounterDefs {
		if def.Flow == "" {
			continue
		}
		e.series = append(e.series, decisionSeries{
			id: def.ID,
			attrs: metric.WithAttributes(
				attribute.String("flow", def.Flow),
				attribute.String("outcome", def.Outcome),
			),
		})
	}

	if e.storeUnavailable, err = meter.Int64ObservableCounter(StoreUnavailableName,
		metric.WithDescription("Checks that failed closed because the counter store was unreachable.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", StoreUnavailableName, err)
	}
	if e.consumeFailed, err = meter.Int64ObservableCounter(ConsumeFailedName,
		metric.WithDescription("Counter increments lost after admission.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", ConsumeFailedName, err)
	}
	if e.auditDropped, err = meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription("Audit events dropped under dispatcher backpressure.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", AuditDroppedName, err)
	}

	if e.latencyBucket, err = meter.Int64ObservableGauge(LatencyBucketName,
		metric.WithDescription("Cumulative evaluation latency bucket counts, labelled by upper bound in seconds.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyBucketName, err)
	}
	if e.latencyCount, err = meter.Int64ObservableGauge(LatencyCountName,
		metric.WithDescription("Evaluations observed by the latency histogram.")); err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyCountName, err)
	}
	for _, bound := range internaldefs.HistogramUpperBounds {
		e.bucketAttrs = append(e.bucketAttrs,
			metric.WithAttributes(attribute.String("le", strconv.FormatFloat(bound, 'f', -1, 64))))
	}
	e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(attribute.String("le", "+Inf")))

	e.registration, err = meter.RegisterCallback(e.observe,
		e.decisions, e.storeUnavailable, e.consumeFailed, e.auditDropped, e.latencyBucket, e.latencyCount)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, s := range e.series {
		o.ObserveInt64(e.decisions, int64(snap.Counters[s.id]), s.attrs)
	}
	o.ObserveInt64(e.storeUnavailable, int64(snap.Counters[waitgate.MetricStoreUnavailable]))
	o.ObserveInt64(e.consumeFailed, int64(snap.Counters[waitgate.MetricConsumeFailed]))
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[waitgate.MetricEvaluateLatency]))
	for i, attrs := range e.bucketAttrs {
		o.ObserveInt64(e.latencyBucket, int64(cumulative[i]), attrs)
	}
	o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]))
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
