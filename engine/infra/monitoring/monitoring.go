package monitoring

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/compozy/quizbank/pkg/logger"
)

const meterName = "quizbank"

// Service encapsulates all monitoring and observability logic
type Service struct {
	meter             metric.Meter
	exporter          *prometheus.Exporter
	provider          *sdkmetric.MeterProvider
	registry          *prom.Registry
	config            *Config
	initialized       bool
	initializationErr error
}

// newDisabledService creates a service instance with no-op implementations
func newDisabledService(cfg *Config, initErr error) *Service {
	return &Service{
		config:            cfg,
		meter:             noop.NewMeterProvider().Meter(meterName),
		initialized:       false,
		initializationErr: initErr,
	}
}

// NewMonitoringService creates a new monitoring service with Prometheus exporter
func NewMonitoringService(ctx context.Context, cfg *Config) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug("Monitoring disabled, using no-op meter")
		return newDisabledService(cfg, nil), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)
	service := &Service{
		meter:       meter,
		exporter:    exporter,
		provider:    provider,
		registry:    registry,
		config:      cfg,
		initialized: true,
	}
	InitSystemMetrics(ctx, meter)
	log.Debug("Monitoring service initialized")
	return service, nil
}

// NewMonitoringServiceWithFallback creates a monitoring service with graceful degradation.
// If initialization fails it logs the error and returns a service with no-op implementations.
func NewMonitoringServiceWithFallback(ctx context.Context, cfg *Config) *Service {
	service, err := NewMonitoringService(ctx, cfg)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to initialize monitoring, using no-op implementation", "error", err)
		if cfg == nil {
			cfg = DefaultConfig()
		}
		return newDisabledService(cfg, err)
	}
	return service
}

// Meter returns the OpenTelemetry meter for custom instrumentation
func (s *Service) Meter() metric.Meter {
	return s.meter
}

// SetAsGlobal sets this monitoring service's provider as the global OpenTelemetry meter provider
func (s *Service) SetAsGlobal() {
	if s.provider != nil {
		otel.SetMeterProvider(s.provider)
	}
}

// WriteTo writes every gathered metric family in the Prometheus text format.
func (s *Service) WriteTo(w io.Writer) (int64, error) {
	if !s.initialized {
		return 0, fmt.Errorf("monitoring service not initialized")
	}
	families, err := s.registry.Gather()
	if err != nil {
		return 0, fmt.Errorf("failed to gather metrics: %w", err)
	}
	var written int64
	for _, mf := range families {
		n, err := expfmt.MetricFamilyToText(w, mf)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return written, nil
}

// Flush writes a metrics snapshot to the configured output. It is a no-op
// when monitoring is disabled.
func (s *Service) Flush(ctx context.Context) error {
	if !s.initialized {
		return nil
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return err
	}
	if s.config.Output == StderrOutput {
		_, err := os.Stderr.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(s.config.Output, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", s.config.Output, err)
	}
	logger.FromContext(ctx).Debug("Metrics written", "path", s.config.Output)
	return nil
}

// Shutdown gracefully shuts down the monitoring service
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}

// IsInitialized returns whether the monitoring service was successfully initialized
func (s *Service) IsInitialized() bool {
	return s.initialized
}

// InitializationError returns any error that occurred during initialization
func (s *Service) InitializationError() error {
	return s.initializationErr
}
