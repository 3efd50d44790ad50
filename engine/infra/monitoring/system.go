package monitoring

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/compozy/quizbank/engine/infra/monitoring/metrics"
	"github.com/compozy/quizbank/pkg/logger"
	"github.com/compozy/quizbank/pkg/version"
)

var (
	buildInfo          metric.Float64Gauge
	uptimeGauge        metric.Float64ObservableGauge
	uptimeRegistration metric.Registration
	startTime          time.Time
	systemInitOnce     sync.Once
	systemResetMutex   sync.Mutex
)

// initSystemMetrics initializes system health metrics
func initSystemMetrics(ctx context.Context, meter metric.Meter) {
	log := logger.FromContext(ctx)
	systemInitOnce.Do(func() {
		var err error
		buildInfo, err = meter.Float64Gauge(
			monitoringmetrics.MetricName("build_info"),
			metric.WithDescription("Build information (value=1)"),
		)
		if err != nil {
			log.Error("Failed to create build info gauge", "error", err)
		}
		uptimeGauge, err = meter.Float64ObservableGauge(
			monitoringmetrics.MetricName("uptime_seconds"),
			metric.WithDescription("Process uptime in seconds"),
		)
		if err != nil {
			log.Error("Failed to create uptime gauge", "error", err)
			return
		}
		startTime = time.Now()
		uptimeRegistration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveFloat64(uptimeGauge, time.Since(startTime).Seconds())
			return nil
		}, uptimeGauge)
		if err != nil {
			log.Error("Failed to register uptime callback", "error", err)
		}
	})
}

// getBuildInfo returns build information with fallback strategies
func getBuildInfo() (ver, commit, goVersion string) {
	ver = version.GetVersion()
	commit = version.GetCommitHash()
	if info, ok := debug.ReadBuildInfo(); ok {
		if ver == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			ver = info.Main.Version
		}
		if commit == "unknown" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
					break
				}
			}
		}
	}
	return ver, commit, runtime.Version()
}

// recordBuildInfo records build information as a gauge metric with labels
func recordBuildInfo(ctx context.Context) {
	if buildInfo == nil {
		return
	}
	ver, commit, goVersion := getBuildInfo()
	buildInfo.Record(ctx, 1,
		metric.WithAttributes(
			attribute.String("version", ver),
			attribute.String("commit_hash", commit),
			attribute.String("go_version", goVersion),
		),
	)
	logger.FromContext(ctx).Debug("System metrics initialized",
		"version", ver,
		"commit", commit,
		"go_version", goVersion,
	)
}

// InitSystemMetrics initializes system health metrics and records build info
func InitSystemMetrics(ctx context.Context, meter metric.Meter) {
	initSystemMetrics(ctx, meter)
	recordBuildInfo(ctx)
}

// resetSystemMetrics is used for testing purposes only
func resetSystemMetrics() {
	if uptimeRegistration != nil {
		if err := uptimeRegistration.Unregister(); err != nil {
			logger.GetDefault().Error("Failed to unregister uptime callback during reset", "error", err)
		}
		uptimeRegistration = nil
	}
	buildInfo = nil
	uptimeGauge = nil
	startTime = time.Time{}
	systemInitOnce = sync.Once{}
}

// ResetSystemMetricsForTesting resets the system metrics initialization state for testing
func ResetSystemMetricsForTesting() {
	systemResetMutex.Lock()
	defer systemResetMutex.Unlock()
	resetSystemMetrics()
}
