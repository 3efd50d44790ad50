package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"

	monitoringmetrics "github.com/compozy/quizbank/engine/infra/monitoring/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	postgresMeterName = "quizbank.postgres"
	defaultDBLabel    = "default"
)

// poolSnapshot is the subset of pool statistics reported as gauges.
type poolSnapshot struct {
	Total    int32
	Acquired int32
	Idle     int32
	Max      int32
}

func pgxPoolSnapshot(pool *pgxpool.Pool) func() poolSnapshot {
	return func() poolSnapshot {
		stats := pool.Stat()
		return poolSnapshot{
			Total:    stats.TotalConns(),
			Acquired: stats.AcquiredConns(),
			Idle:     stats.IdleConns(),
			Max:      stats.MaxConns(),
		}
	}
}

// poolMetrics observes the connection pool of one store. Gauges carry the
// driver and database labels so a snapshot names the quiz database it covers.
type poolMetrics struct {
	attrs        metric.MeasurementOption
	open         metric.Int64ObservableGauge
	inUse        metric.Int64ObservableGauge
	idle         metric.Int64ObservableGauge
	maxConns     metric.Int64ObservableGauge
	registration metric.Registration

	mu     sync.Mutex
	source func() poolSnapshot
}

func newPoolMetrics(meter metric.Meter, dbName string) (*poolMetrics, error) {
	m := &poolMetrics{
		attrs: metric.WithAttributes(
			attribute.String("driver", "postgres"),
			attribute.String("database", databaseLabel(dbName)),
		),
	}
	var err error
	if m.open, err = meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_open"),
		metric.WithDescription("Open connections in the quiz store pool"),
	); err != nil {
		return nil, fmt.Errorf("postgres: connections_open gauge: %w", err)
	}
	if m.inUse, err = meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_in_use"),
		metric.WithDescription("Connections held by running transactions"),
	); err != nil {
		return nil, fmt.Errorf("postgres: connections_in_use gauge: %w", err)
	}
	if m.idle, err = meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_idle"),
		metric.WithDescription("Idle connections in the quiz store pool"),
	); err != nil {
		return nil, fmt.Errorf("postgres: connections_idle gauge: %w", err)
	}
	if m.maxConns, err = meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "max_open_connections"),
		metric.WithDescription("Configured pool size"),
	); err != nil {
		return nil, fmt.Errorf("postgres: max_open_connections gauge: %w", err)
	}
	m.registration, err = meter.RegisterCallback(m.observe, m.open, m.inUse, m.idle, m.maxConns)
	if err != nil {
		return nil, fmt.Errorf("postgres: register pool callback: %w", err)
	}
	return m, nil
}

func (m *poolMetrics) observe(_ context.Context, observer metric.Observer) error {
	m.mu.Lock()
	source := m.source
	m.mu.Unlock()
	if source == nil {
		return nil
	}
	snap := source()
	observer.ObserveInt64(m.open, int64(snap.Total), m.attrs)
	observer.ObserveInt64(m.inUse, int64(snap.Acquired), m.attrs)
	observer.ObserveInt64(m.idle, int64(snap.Idle), m.attrs)
	observer.ObserveInt64(m.maxConns, int64(snap.Max), m.attrs)
	return nil
}

// attach starts reporting the statistics returned by source.
func (m *poolMetrics) attach(source func() poolSnapshot) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.source = source
	m.mu.Unlock()
}

// unregister stops reporting. Safe to call more than once.
func (m *poolMetrics) unregister() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.source = nil
	reg := m.registration
	m.registration = nil
	m.mu.Unlock()
	if reg != nil {
		_ = reg.Unregister()
	}
}

func databaseLabel(dbName string) string {
	if name := strings.ToLower(strings.TrimSpace(dbName)); name != "" {
		return name
	}
	return defaultDBLabel
}
