package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// metric name -> attribute value of key (or "" if absent) -> value.
func collectInt64Sums(t *testing.T, reader sdkmetric.Reader, key string) map[string]map[string]int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	res := make(map[string]map[string]int64, 4)
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != RBTreeStatsName {
			continue
		}
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			points := make(map[string]int64, len(sum.DataPoints))
			for _, dp := range sum.DataPoints {
				val, _ := dp.Attributes.Value(attribute.Key(key))
				points[val.AsString()] += dp.Value
			}
			res[m.Name] = points
		}
	}
	return res
}

func TestRbtreeStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() {
		require.NoError(t, provider.Shutdown(context.Background()))
	}()

	tree := NewRBTree[int](WithRBTreeStats[int]("stats-test", provider))
	tree.Insert(10) // root
	tree.Insert(20) // parent black
	tree.Insert(30) // outer grandchild, left rotation
	tree.Insert(5)  // red uncle, then root
	tree.Insert(7)  // inner grandchild, left and right rotations
	require.NoError(t, Validate(tree))

	fixups := collectInt64Sums(t, reader, statsFixupCaseKey)["xrbt.rbtree.fixup.steps"]
	require.Equal(t, map[string]int64{
		fixupRoot.String():            2,
		fixupParentBlack.String():     1,
		fixupRedUncle.String():        1,
		fixupOuterGrandchild.String(): 1,
		fixupInnerGrandchild.String(): 1,
	}, fixups)

	rotations := collectInt64Sums(t, reader, statsRotationDirKey)["xrbt.rbtree.rotations"]
	require.Equal(t, map[string]int64{
		Left.String():  2,
		Right.String(): 1,
	}, rotations)

	byTree := collectInt64Sums(t, reader, statsTreeNameKey)
	require.Equal(t, map[string]int64{"stats-test": 5}, byTree["xrbt.rbtree.inserts"])
	require.Equal(t, map[string]int64{"stats-test": 5}, byTree["xrbt.rbtree.nodes"])

	tree.Clear()
	tree.Clear()
	byTree = collectInt64Sums(t, reader, statsTreeNameKey)
	require.Equal(t, map[string]int64{"stats-test": 5}, byTree["xrbt.rbtree.inserts"])
	require.Equal(t, map[string]int64{"stats-test": 0}, byTree["xrbt.rbtree.nodes"])
}

func TestRbtreeStats_NilIsNoop(t *testing.T) {
	var stats *rbTreeStats
	require.NotPanics(t, func() {
		stats.RecordInsert()
		stats.RecordClear(10)
		stats.RecordRotation(Left)
		stats.RecordFixup(fixupRoot)
	})
	require.Equal(t, "unknown", _fixupCaseMax.String())
}
