package tree

import (
	"context"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RBTreeStatsName = "xrbt/rbtree"

	statsTreeNameKey    = "xrbt.rbtree.name"
	statsFixupCaseKey   = "xrbt.rbtree.fixup.case"
	statsRotationDirKey = "xrbt.rbtree.rotation.direction"
)

type fixupCase uint8

const (
	fixupRoot fixupCase = iota
	fixupParentBlack
	fixupRedUncle
	fixupOuterGrandchild
	fixupInnerGrandchild
	_fixupCaseMax
)

var fixupCaseNames = [_fixupCaseMax]string{
	fixupRoot:            "root",
	fixupParentBlack:     "parent_black",
	fixupRedUncle:        "red_uncle",
	fixupOuterGrandchild: "outer_grandchild",
	fixupInnerGrandchild: "inner_grandchild",
}

func (c fixupCase) String() string {
	if c >= _fixupCaseMax {
		return "unknown"
	}
	return fixupCaseNames[c]
}

// rbTreeStats records the structural mutations of a tree.
// A nil stats is a no-op.
type rbTreeStats struct {
	ctx        context.Context
	inserts    metric.Int64Counter
	rotations  metric.Int64Counter
	fixups     metric.Int64Counter
	nodes      metric.Int64UpDownCounter
	treeAttrs  metric.MeasurementOption
	caseAttrs  [_fixupCaseMax]metric.MeasurementOption
	leftAttrs  metric.MeasurementOption
	rightAttrs metric.MeasurementOption
}

func newRBTreeStats(name string, provider metric.MeterProvider) *rbTreeStats {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(RBTreeStatsName)
	treeName := attribute.String(statsTreeNameKey, name)

	stats := &rbTreeStats{
		ctx: context.Background(),
		inserts: lo.Must(meter.Int64Counter(
			"xrbt.rbtree.inserts",
			metric.WithDescription("The number of keys inserted into the rbtree."),
		)),
		rotations: lo.Must(meter.Int64Counter(
			"xrbt.rbtree.rotations",
			metric.WithDescription("The number of rotations applied by the insert fixup."),
		)),
		fixups: lo.Must(meter.Int64Counter(
			"xrbt.rbtree.fixup.steps",
			metric.WithDescription("The insert fixup steps grouped by case."),
		)),
		nodes: lo.Must(meter.Int64UpDownCounter(
			"xrbt.rbtree.nodes",
			metric.WithDescription("The number of nodes currently held by the rbtree."),
		)),
		treeAttrs: metric.WithAttributeSet(attribute.NewSet(treeName)),
		leftAttrs: metric.WithAttributeSet(attribute.NewSet(
			treeName, attribute.String(statsRotationDirKey, Left.String()),
		)),
		rightAttrs: metric.WithAttributeSet(attribute.NewSet(
			treeName, attribute.String(statsRotationDirKey, Right.String()),
		)),
	}
	for c := fixupRoot; c < _fixupCaseMax; c++ {
		stats.caseAttrs[c] = metric.WithAttributeSet(attribute.NewSet(
			treeName, attribute.String(statsFixupCaseKey, c.String()),
		))
	}
	return stats
}

func (stats *rbTreeStats) RecordInsert() {
	if stats == nil {
		return
	}
	stats.inserts.Add(stats.ctx, 1, stats.treeAttrs)
	stats.nodes.Add(stats.ctx, 1, stats.treeAttrs)
}

func (stats *rbTreeStats) RecordClear(released int64) {
	if stats == nil || released <= 0 {
		return
	}
	stats.nodes.Add(stats.ctx, -released, stats.treeAttrs)
}

func (stats *rbTreeStats) RecordRotation(dir RBDirection) {
	if stats == nil {
		return
	}
	switch dir {
	case Left:
		stats.rotations.Add(stats.ctx, 1, stats.leftAttrs)
	case Right:
		stats.rotations.Add(stats.ctx, 1, stats.rightAttrs)
	default:
	}
}

func (stats *rbTreeStats) RecordFixup(c fixupCase) {
	if stats == nil || c >= _fixupCaseMax {
		return
	}
	stats.fixups.Add(stats.ctx, 1, stats.caseAttrs[c])
}
