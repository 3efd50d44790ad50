package monitoring

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
)

func TestNewMonitoringService(t *testing.T) {
	t.Run("Should create disabled service when nil config provided", func(t *testing.T) {
		service, err := NewMonitoringService(context.Background(), nil)
		require.NoError(t, err)
		assert.False(t, service.IsInitialized())
		assert.NotNil(t, service.Meter())
		assert.Nil(t, service.provider)
	})

	t.Run("Should fail with invalid config", func(t *testing.T) {
		service, err := NewMonitoringService(context.Background(), &Config{Enabled: true})
		require.Error(t, err)
		assert.Nil(t, service)
		assert.Contains(t, err.Error(), "monitoring output cannot be empty")
	})

	t.Run("Should initialize with Prometheus exporter when enabled", func(t *testing.T) {
		ResetSystemMetricsForTesting()
		service, err := NewMonitoringService(context.Background(), &Config{Enabled: true, Output: StderrOutput})
		require.NoError(t, err)
		t.Cleanup(func() { _ = service.Shutdown(context.Background()) })
		assert.True(t, service.IsInitialized())
		assert.NotNil(t, service.exporter)
		assert.NotNil(t, service.registry)
		assert.Nil(t, service.InitializationError())
	})
}

func TestNewMonitoringServiceWithFallback(t *testing.T) {
	t.Run("Should degrade to no-op on invalid config", func(t *testing.T) {
		service := NewMonitoringServiceWithFallback(context.Background(), &Config{Enabled: true})
		require.NotNil(t, service)
		assert.False(t, service.IsInitialized())
		assert.Error(t, service.InitializationError())
		assert.NoError(t, service.Flush(context.Background()))
	})
}

func TestService_WriteTo(t *testing.T) {
	t.Run("Should expose recorded instruments in text format", func(t *testing.T) {
		ResetSystemMetricsForTesting()
		ctx := context.Background()
		service, err := NewMonitoringService(ctx, &Config{Enabled: true, Output: StderrOutput})
		require.NoError(t, err)
		t.Cleanup(func() { _ = service.Shutdown(ctx) })

		counter, err := service.Meter().Int64Counter("quizbank_test_events", metric.WithDescription("test events"))
		require.NoError(t, err)
		counter.Add(ctx, 3)

		var buf bytes.Buffer
		n, err := service.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(buf.Len()), n)
		assert.Contains(t, buf.String(), "quizbank_test_events")
		assert.Contains(t, buf.String(), "quizbank_build_info")
	})

	t.Run("Should refuse when disabled", func(t *testing.T) {
		service, err := NewMonitoringService(context.Background(), DefaultConfig())
		require.NoError(t, err)
		_, err = service.WriteTo(&bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestService_Flush(t *testing.T) {
	t.Run("Should write snapshot to file output", func(t *testing.T) {
		ResetSystemMetricsForTesting()
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "metrics.prom")
		service, err := NewMonitoringService(ctx, &Config{Enabled: true, Output: path})
		require.NoError(t, err)
		t.Cleanup(func() { _ = service.Shutdown(ctx) })
		require.NoError(t, service.Flush(ctx))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "quizbank_uptime_seconds")
	})
}
