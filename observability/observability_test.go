package observability

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestAppStatsName(t *testing.T) {
	require.Equal(t, "xrbt/app/default", appStatsName(""))
	require.Equal(t, "xrbt/app/default", appStatsName("  "))
	require.Equal(t, "xrbt/app/driver", appStatsName("driver"))
}

func TestInitAppStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() {
		require.NoError(t, provider.Shutdown(context.Background()))
	}()

	stats, err := InitAppStats("test", provider)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	values := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != appStatsName("test") {
			continue
		}
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				values[m.Name] = data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				values[m.Name] = data.DataPoints[0].Value
			default:
			}
		}
	}
	require.Greater(t, values["app.core.goroutines"], int64(0))
	require.Equal(t, int64(runtime.GOMAXPROCS(0)), values["app.core.processes"])
	if runtime.GOOS == "linux" {
		require.Greater(t, values["app.process.memory.rss"], int64(0))
	}

	require.NoError(t, stats.Unregister())
	var nilStats *appStats
	require.NoError(t, nilStats.Unregister())
}

func TestConsoleMetricsProvider(t *testing.T) {
	buf := &bytes.Buffer{}
	mp, err := NewConsoleMetricsProvider(time.Hour, time.Second, stdoutmetric.WithWriter(buf))
	require.NoError(t, err)

	counter, err := mp.Meter("xrbt/test").Int64Counter("xrbt.test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, mp.Shutdown(context.Background()))
	require.Contains(t, buf.String(), "xrbt.test.counter")

	var nilProvider *MetricsProvider
	require.NoError(t, nilProvider.Shutdown(context.Background()))
	require.Error(t, nilProvider.WriteTextfile(t.TempDir(), "xrbt.prom"))
	require.Error(t, mp.WriteTextfile(t.TempDir(), "xrbt.prom"))
}

func TestPrometheusMetricsProvider_WriteTextfile(t *testing.T) {
	mp, err := NewPrometheusMetricsProvider()
	require.NoError(t, err)
	defer func() {
		require.NoError(t, mp.Shutdown(context.Background()))
	}()

	counter, err := mp.Meter("xrbt/test").Int64Counter("xrbt.test.inserts")
	require.NoError(t, err)
	counter.Add(context.Background(), 5)

	dir := t.TempDir()
	require.NoError(t, mp.WriteTextfile(dir, "xrbt.prom"))
	data, err := os.ReadFile(filepath.Join(dir, "xrbt.prom"))
	require.NoError(t, err)
	require.Contains(t, string(data), "# TYPE xrbt_test_inserts_total counter")
	require.Contains(t, string(data), "xrbt_test_inserts_total")

	_, err = os.Stat(filepath.Join(dir, ".xrbt.prom.tmp"))
	require.True(t, os.IsNotExist(err))

	// Replaced by the latest values.
	counter.Add(context.Background(), 5)
	require.NoError(t, mp.WriteTextfile(dir, "xrbt.prom"))
	data, err = os.ReadFile(filepath.Join(dir, "xrbt.prom"))
	require.NoError(t, err)
	require.Regexp(t, `xrbt_test_inserts_total(\{[^}]*\})? 10\n`, string(data))

	require.Error(t, mp.WriteTextfile(filepath.Join(dir, "absent"), "xrbt.prom"))
}
