package main

import (
	"context"
	"slices"
	"strconv"
	"sync"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbt/lib/infra"
	"github.com/benz9527/xrbt/lib/keygen"
	"github.com/benz9527/xrbt/lib/tree"
	"github.com/benz9527/xrbt/xlog"
)

const trialIDKey = "trialID"

type trialReport struct {
	id          int
	keys        int
	height      uint
	size        int64
	sum         uint64
	inorder     []uint64
	emptyBefore bool
	emptyAfter  bool
}

func (r *trialReport) fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("keys", r.keys),
		zap.Uint("height", r.height),
		zap.Int64("size", r.size),
		zap.Uint64("sum", r.sum),
		zap.Bool("emptyBeforeClear", r.emptyBefore),
		zap.Bool("emptyAfterClear", r.emptyAfter),
	}
	if r.inorder != nil {
		fields = append(fields, zap.Uint64s("inorder", r.inorder))
	}
	return fields
}

type trialRunner struct {
	cfg      *config
	logger   xlog.XLogger
	provider metric.MeterProvider
}

func (runner *trialRunner) keyGenOpts(id int) []keygen.KeyGenOption {
	if runner.cfg.seed == 0 {
		return nil
	}
	return []keygen.KeyGenOption{keygen.WithSeed(runner.cfg.seed + uint64(id))}
}

// run builds a tree with unique random keys, validates it, reports
// and finally clears it.
func (runner *trialRunner) run(ctx context.Context, id int) (*trialReport, error) {
	cfg := runner.cfg
	ctx = context.WithValue(ctx, xlog.ContextKey(trialIDKey), id)

	keys, err := keygen.UniqueKeys(cfg.keys, cfg.min, cfg.max, runner.keyGenOpts(id)...)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[xrbt] trial "+strconv.Itoa(id)+" keygen")
	}

	opts := []tree.RBTreeOpt[uint64]{tree.WithRBTreeCapacity[uint64](len(keys))}
	if runner.provider != nil {
		opts = append(opts, tree.WithRBTreeStats[uint64]("trial-"+strconv.Itoa(id), runner.provider))
	}
	rbtree := tree.NewRBTree[uint64](opts...)
	for _, key := range keys {
		if err = ctx.Err(); err != nil {
			return nil, infra.WrapErrorStackWithMessage(err, "[xrbt] trial "+strconv.Itoa(id)+" canceled")
		}
		runner.logger.DebugContext(ctx, "adding key", zap.Uint64("key", key))
		rbtree.Insert(key)
	}

	if err = tree.Validate[uint64](rbtree); err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[xrbt] trial "+strconv.Itoa(id)+" rbtree violation")
	}

	inorder := slices.Collect(rbtree.Inorder())
	report := &trialReport{
		id:          id,
		keys:        len(keys),
		height:      rbtree.Height(),
		size:        rbtree.Len(),
		sum:         lo.Sum(inorder),
		emptyBefore: rbtree.IsEmpty(),
	}
	if cfg.inorder {
		report.inorder = inorder
	}
	if report.size != int64(len(keys)) || report.sum != lo.Sum(keys) {
		return nil, infra.NewErrorStack("[xrbt] trial " + strconv.Itoa(id) + " lost keys")
	}

	rbtree.Clear()
	report.emptyAfter = rbtree.IsEmpty()
	runner.logger.InfoContext(ctx, "trial report", report.fields()...)
	return report, nil
}

// runTrials runs every trial in the pool and waits for all of them.
// The reports are ordered by trial ID, the failed trials are absent.
func runTrials(ctx context.Context, runner *trialRunner, pool *antsv2.Pool) ([]*trialReport, error) {
	var (
		wg      sync.WaitGroup
		lock    sync.Mutex
		reports = make([]*trialReport, 0, runner.cfg.trials)
		errs    error
	)
	for id := 1; id <= runner.cfg.trials; id++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			report, err := runner.run(ctx, id)

			lock.Lock()
			defer lock.Unlock()
			if err != nil {
				errs = multierr.Append(errs, err)
				return
			}
			reports = append(reports, report)
		})
		if err != nil {
			wg.Done()
			lock.Lock()
			errs = multierr.Append(errs, infra.WrapErrorStackWithMessage(err, "[xrbt] submit trial "+strconv.Itoa(id)))
			lock.Unlock()
		}
	}
	wg.Wait()

	slices.SortFunc(reports, func(a, b *trialReport) int {
		return a.id - b.id
	})
	return reports, errs
}
