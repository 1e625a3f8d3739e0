package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/safeopen"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/multierr"

	"github.com/benz9527/xrbt/lib/infra"
)

// MetricsProvider is the meter provider of a run and it is set as the
// otel global meter provider.
type MetricsProvider struct {
	metric.MeterProvider
	shutdown func(ctx context.Context) error
	registry *prometheus.Registry
}

// Shutdown flushes the pending metrics.
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil || mp.shutdown == nil {
		return nil
	}
	return mp.shutdown(ctx)
}

// WriteTextfile dumps the metrics in the Prometheus text format, it is the
// node exporter textfile collector input. The file is created beneath dir
// and it is replaced at once by renaming a temporary file.
func (mp *MetricsProvider) WriteTextfile(dir, filename string) (err error) {
	if mp == nil || mp.registry == nil {
		return infra.NewErrorStack("[observability] provider without prometheus registry")
	}
	families, err := mp.registry.Gather()
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[observability] gather metrics")
	}

	buf := bytes.NewBuffer(make([]byte, 0, 4096))
	for _, mf := range families {
		if _, err = expfmt.MetricFamilyToText(buf, mf); err != nil {
			return infra.WrapErrorStackWithMessage(err, "[observability] encode metrics")
		}
	}

	tmp := "." + filename + ".tmp"
	f, err := safeopen.OpenFileBeneath(dir, tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return infra.WrapErrorStackWithMessage(err, "[observability] open metrics textfile")
	}
	_, err = io.Copy(f, buf)
	if err = multierr.Combine(err, f.Close()); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[observability] write metrics textfile")
	}
	if err = os.Rename(filepath.Join(dir, tmp), filepath.Join(dir, filename)); err != nil {
		return infra.WrapErrorStackWithMessage(err, "[observability] rename metrics textfile")
	}
	return nil
}

// NewConsoleMetricsProvider serves for test/dev environment,
// the metrics are printed to the stdout periodically and on shutdown.
func NewConsoleMetricsProvider(interval, timeout time.Duration, opts ...stdoutmetric.Option) (*MetricsProvider, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(interval),
		sdkmetric.WithTimeout(timeout),
	)))
	otel.SetMeterProvider(mp)
	return &MetricsProvider{
		MeterProvider: mp,
		shutdown:      mp.Shutdown,
	}, nil
}

// NewPrometheusMetricsProvider collects the metrics into a private
// registry, fetched by WriteTextfile at the end of a run.
func NewPrometheusMetricsProvider() (*MetricsProvider, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, infra.WrapErrorStack(err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return &MetricsProvider{
		MeterProvider: mp,
		shutdown:      mp.Shutdown,
		registry:      registry,
	}, nil
}
