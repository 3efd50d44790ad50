package monitoring

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/compozy/quizbank/pkg/version"
)

func collectSystemMetrics(t *testing.T) (*sdkmetric.ManualReader, context.Context) {
	t.Helper()
	ResetSystemMetricsForTesting()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	ctx := context.Background()
	InitSystemMetrics(ctx, provider.Meter("test"))
	return reader, ctx
}

func findGauge(t *testing.T, rm *metricdata.ResourceMetrics, name string) (metricdata.Gauge[float64], bool) {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				gauge, ok := m.Data.(metricdata.Gauge[float64])
				require.True(t, ok, "%s should be a float64 gauge", name)
				return gauge, true
			}
		}
	}
	return metricdata.Gauge[float64]{}, false
}

func TestSystemMetrics(t *testing.T) {
	t.Run("Should initialize build info gauge", func(t *testing.T) {
		reader, ctx := collectSystemMetrics(t)
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		gauge, found := findGauge(t, &rm, "quizbank_build_info")
		require.True(t, found, "quizbank_build_info metric not found")
		require.Len(t, gauge.DataPoints, 1)
		assert.Equal(t, float64(1), gauge.DataPoints[0].Value)
		labels := make(map[string]string)
		for _, attr := range gauge.DataPoints[0].Attributes.ToSlice() {
			labels[string(attr.Key)] = attr.Value.AsString()
		}
		assert.Len(t, labels, 3)
		assert.Contains(t, labels, "version")
		assert.Contains(t, labels, "commit_hash")
		assert.Equal(t, runtime.Version(), labels["go_version"])
	})

	t.Run("Should report monotonic uptime without labels", func(t *testing.T) {
		reader, ctx := collectSystemMetrics(t)
		var rm1 metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm1))
		first, found := findGauge(t, &rm1, "quizbank_uptime_seconds")
		require.True(t, found)
		require.Len(t, first.DataPoints, 1)
		assert.Zero(t, first.DataPoints[0].Attributes.Len())

		time.Sleep(20 * time.Millisecond)
		var rm2 metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm2))
		second, _ := findGauge(t, &rm2, "quizbank_uptime_seconds")
		assert.Greater(t, second.DataPoints[0].Value, first.DataPoints[0].Value)
	})

	t.Run("Should handle multiple initializations safely", func(t *testing.T) {
		ResetSystemMetricsForTesting()
		reader := sdkmetric.NewManualReader()
		meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
		ctx := context.Background()
		InitSystemMetrics(ctx, meter)
		InitSystemMetrics(ctx, meter)
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))
		count := 0
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				if m.Name == "quizbank_uptime_seconds" {
					count++
				}
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestBuildInfoExtraction(t *testing.T) {
	t.Run("Should use ldflags values when set", func(t *testing.T) {
		origVersion, origCommit := version.Version, version.CommitHash
		defer func() {
			version.Version, version.CommitHash = origVersion, origCommit
		}()
		version.Version = "v1.2.3-beta+build.456"
		version.CommitHash = "abc123"
		ver, commit, goVersion := getBuildInfo()
		assert.Equal(t, "v1.2.3-beta+build.456", ver)
		assert.Equal(t, "abc123", commit)
		assert.Equal(t, runtime.Version(), goVersion)
	})

	t.Run("Should fall back when ldflags are not set", func(t *testing.T) {
		origVersion, origCommit := version.Version, version.CommitHash
		defer func() {
			version.Version, version.CommitHash = origVersion, origCommit
		}()
		version.Version = "unknown"
		version.CommitHash = "unknown"
		ver, commit, _ := getBuildInfo()
		assert.NotEmpty(t, ver)
		assert.NotEmpty(t, commit)
	})
}
