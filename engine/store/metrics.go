package store

import (
	"context"
	"errors"
	"sync"
	"time"

	monitoringmetrics "github.com/compozy/quizbank/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const storeMeterName = "quizbank.store"

const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeCanceled = "canceled"
	OutcomeError    = "error"
)

// Metrics records accessor operation counts and latencies.
type Metrics struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// NewMetrics creates the store instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	operations, err := meter.Int64Counter(
		monitoringmetrics.MetricNameWithSubsystem("store", "operations_total"),
		metric.WithDescription("Accessor operations by table, operation and outcome"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("store", "operation_duration_seconds"),
		metric.WithDescription("Accessor operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.StoreDurationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{operations: operations, duration: duration}, nil
}

// globalMetrics lazily builds instruments on the global meter provider.
// A nil result disables recording.
func globalMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider().Meter(storeMeterName))
		if err == nil {
			defaultMetrics = m
		}
	})
	return defaultMetrics
}

func (m *Metrics) record(ctx context.Context, table, op string, started time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("table", table),
		attribute.String("operation", op),
		attribute.String("outcome", outcomeOf(err)),
	)
	// recording must survive a canceled caller context
	ctx = context.WithoutCancel(ctx)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(started).Seconds(), attrs)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case IsCanceled(err):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
