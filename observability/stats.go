package observability

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"

	"github.com/benz9527/xrbt/lib/infra"
)

const appStatsPrefix = "xrbt/app"

type AppStats interface {
	// Unregister stops the observable callbacks.
	Unregister() error
}

var _ AppStats = (*appStats)(nil)

type appStats struct {
	goroutines metric.Int64ObservableUpDownCounter
	processes  metric.Int64ObservableUpDownCounter
	rss        metric.Int64ObservableGauge
	reg        metric.Registration
}

func (stats *appStats) Unregister() error {
	if stats == nil || stats.reg == nil {
		return nil
	}
	return stats.reg.Unregister()
}

func appStatsName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString(appStatsPrefix)
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitAppStats observes the goroutines, GOMAXPROCS, the process resident
// memory and the go runtime metrics. The global meter provider is used if
// provider is nil.
func InitAppStats(name string, provider metric.MeterProvider) (AppStats, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(
		appStatsName(name),
		metric.WithInstrumentationVersion(otelruntime.Version()),
	)
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[observability] current process")
	}

	stats := &appStats{
		goroutines: lo.Must(meter.Int64ObservableUpDownCounter(
			"app.core.goroutines",
			metric.WithDescription("The number of the application goroutines."),
		)),
		processes: lo.Must(meter.Int64ObservableUpDownCounter(
			"app.core.processes",
			metric.WithDescription("The GOMAXPROCS of the application."),
		)),
		rss: lo.Must(meter.Int64ObservableGauge(
			"app.process.memory.rss",
			metric.WithDescription("The resident set size of the application process."),
			metric.WithUnit("By"),
		)),
	}
	stats.reg, err = meter.RegisterCallback(func(ctx context.Context, ob metric.Observer) error {
		ob.ObserveInt64(stats.goroutines, int64(runtime.NumGoroutine()))
		ob.ObserveInt64(stats.processes, int64(runtime.GOMAXPROCS(0)))
		mem, err := proc.MemoryInfoWithContext(ctx)
		if err != nil {
			// The platform without the process memory info.
			return nil
		}
		ob.ObserveInt64(stats.rss, int64(mem.RSS))
		return nil
	}, stats.goroutines, stats.processes, stats.rss)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}

	if err = otelruntime.Start(otelruntime.WithMeterProvider(provider)); err != nil {
		return nil, multierr.Combine(infra.WrapErrorStack(err), stats.Unregister())
	}
	return stats, nil
}
