package main

import (
	"context"
	"math"
	"slices"
	"testing"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/multierr"

	"github.com/benz9527/xrbt/lib/infra"
	"github.com/benz9527/xrbt/xlog"
)

func newTestRunner(t *testing.T, cfg *config) (*trialRunner, *antsv2.Pool) {
	logger := xlog.NewXLogger(
		xlog.WithXLoggerLevel(xlog.LogLevelError),
		xlog.WithXLoggerContextFieldExtract(trialIDKey),
	)
	pool, err := antsv2.NewPool(cfg.workers, antsv2.WithLogger(xlog.NewAntsXLogger(logger)))
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Release()
		_ = logger.Sync()
	})
	return &trialRunner{cfg: cfg, logger: logger}, pool
}

func TestRunTrials(t *testing.T) {
	cfg := &config{
		keys:    100,
		min:     1,
		max:     1000,
		trials:  3,
		workers: 2,
		seed:    7,
		inorder: true,
	}
	runner, pool := newTestRunner(t, cfg)

	reports, err := runTrials(context.Background(), runner, pool)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for i, report := range reports {
		require.Equal(t, i+1, report.id)
		require.Equal(t, 100, report.keys)
		require.Equal(t, int64(100), report.size)
		require.LessOrEqual(t, float64(report.height), 2*math.Log2(101))
		require.GreaterOrEqual(t, report.height, uint(7))
		require.False(t, report.emptyBefore)
		require.True(t, report.emptyAfter)

		require.Len(t, report.inorder, 100)
		require.True(t, slices.IsSorted(report.inorder))
		require.Len(t, lo.Uniq(report.inorder), 100)
		require.Equal(t, lo.Sum(report.inorder), report.sum)
		require.GreaterOrEqual(t, report.inorder[0], uint64(1))
		require.LessOrEqual(t, report.inorder[99], uint64(1000))
		require.NotEmpty(t, report.fields())
	}

	// Seeded trials are reproducible.
	again, err := runTrials(context.Background(), runner, pool)
	require.NoError(t, err)
	for i := range reports {
		require.Equal(t, reports[i].inorder, again[i].inorder)
		require.Equal(t, reports[i].height, again[i].height)
	}
}

func TestRunTrials_WithoutInorder(t *testing.T) {
	cfg := &config{keys: 10, min: 1, max: 10, trials: 1, workers: 1}
	runner, pool := newTestRunner(t, cfg)

	reports, err := runTrials(context.Background(), runner, pool)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Nil(t, reports[0].inorder)
	// All keys of [1, 10].
	require.Equal(t, uint64(55), reports[0].sum)
	require.Len(t, reports[0].fields(), 6)
}

func TestRunTrials_EmptyTree(t *testing.T) {
	cfg := &config{keys: 0, min: 1, max: 1, trials: 2, workers: 1}
	runner, pool := newTestRunner(t, cfg)

	reports, err := runTrials(context.Background(), runner, pool)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, report := range reports {
		require.Equal(t, uint(0), report.height)
		require.Equal(t, int64(0), report.size)
		require.Equal(t, uint64(0), report.sum)
		require.True(t, report.emptyBefore)
		require.True(t, report.emptyAfter)
	}
}

func TestRunTrials_Failures(t *testing.T) {
	// The range is too narrow for the unique keys.
	cfg := &config{keys: 10, min: 1, max: 5, trials: 3, workers: 2}
	runner, pool := newTestRunner(t, cfg)

	reports, err := runTrials(context.Background(), runner, pool)
	require.Error(t, err)
	require.Empty(t, reports)
	errs := multierr.Errors(err)
	require.Len(t, errs, 3)
	for _, e := range errs {
		_, ok := e.(infra.ErrorStack)
		require.True(t, ok)
	}

	cfg.max = 100
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reports, err = runTrials(ctx, runner, pool)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, reports)

	pool.Release()
	reports, err = runTrials(context.Background(), runner, pool)
	require.ErrorIs(t, err, antsv2.ErrPoolClosed)
	require.Empty(t, reports)
}

func TestRunTrials_Stats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() {
		require.NoError(t, provider.Shutdown(context.Background()))
	}()

	cfg := &config{keys: 50, min: 1, max: 100_000, trials: 4, workers: 4}
	runner, pool := newTestRunner(t, cfg)
	runner.provider = provider

	_, err := runTrials(context.Background(), runner, pool)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	inserts, nodes := map[string]int64{}, map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				name, _ := dp.Attributes.Value(attribute.Key("xrbt.rbtree.name"))
				switch m.Name {
				case "xrbt.rbtree.inserts":
					inserts[name.AsString()] += dp.Value
				case "xrbt.rbtree.nodes":
					nodes[name.AsString()] += dp.Value
				default:
				}
			}
		}
	}
	require.Equal(t, map[string]int64{
		"trial-1": 50, "trial-2": 50, "trial-3": 50, "trial-4": 50,
	}, inserts)
	// Every tree is cleared after the report.
	require.Equal(t, map[string]int64{
		"trial-1": 0, "trial-2": 0, "trial-3": 0, "trial-4": 0,
	}, nodes)
}
