package main

import (
	"context"
	"path/filepath"
	"time"

	antsv2 "github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbt/lib/infra"
	"github.com/benz9527/xrbt/observability"
	"github.com/benz9527/xrbt/xlog"
)

const (
	appName             = "xrbt"
	metricsInterval     = 10 * time.Second
	metricsTimeout      = 5 * time.Second
	poolReleaseDeadline = 5 * time.Second
)

type banner struct{}

func (banner) JSON() string {
	return `{"app":"` + appName + `","desc":"red-black tree insertion trials"}`
}

func (banner) PlainText() string {
	return appName + " - red-black tree insertion trials"
}

func newLogger(lc fx.Lifecycle, cfg *config) xlog.XLogger {
	logger := xlog.NewXLogger(
		xlog.WithXLoggerStdOutWriter(),
		xlog.WithXLoggerEncoder(xlog.JSON),
		xlogLevel(cfg.logLevel),
		xlog.WithXLoggerContextFieldExtract(trialIDKey),
	)
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger
}

func newPool(lc fx.Lifecycle, cfg *config, logger xlog.XLogger) (*antsv2.Pool, error) {
	pool, err := antsv2.NewPool(cfg.workers,
		antsv2.WithLogger(xlog.NewAntsXLogger(logger)),
		antsv2.WithPreAlloc(true),
	)
	if err != nil {
		return nil, infra.WrapErrorStackWithMessage(err, "[xrbt] trial pool")
	}
	lc.Append(fx.StopHook(func() error {
		return pool.ReleaseTimeout(poolReleaseDeadline)
	}))
	return pool, nil
}

// newMeterProvider the metrics are disabled by the noop provider.
func newMeterProvider(lc fx.Lifecycle, cfg *config, logger xlog.XLogger) (metric.MeterProvider, error) {
	var (
		mp  *observability.MetricsProvider
		err error
	)
	switch {
	case cfg.metricsTextfile != "":
		mp, err = observability.NewPrometheusMetricsProvider()
	case cfg.metrics:
		mp, err = observability.NewConsoleMetricsProvider(metricsInterval, metricsTimeout)
	default:
		return noop.NewMeterProvider(), nil
	}
	if err != nil {
		return nil, err
	}
	stats, err := observability.InitAppStats(appName, mp)
	if err != nil {
		return nil, multierr.Combine(err, mp.Shutdown(context.Background()))
	}

	lc.Append(fx.StopHook(func(ctx context.Context) error {
		var err error
		if cfg.metricsTextfile != "" {
			dir, filename := filepath.Split(cfg.metricsTextfile)
			if dir == "" {
				dir = "."
			}
			err = mp.WriteTextfile(dir, filename)
			if err == nil {
				logger.Info("metrics textfile written", zap.String("path", cfg.metricsTextfile))
			}
		}
		return multierr.Combine(err, stats.Unregister(), mp.Shutdown(ctx))
	}))
	return mp, nil
}

func xlogLevel(level string) xlog.XLoggerOption {
	switch level {
	case xlog.LogLevelDebug.String():
		return xlog.WithXLoggerLevel(xlog.LogLevelDebug)
	case xlog.LogLevelWarn.String():
		return xlog.WithXLoggerLevel(xlog.LogLevelWarn)
	case xlog.LogLevelError.String():
		return xlog.WithXLoggerLevel(xlog.LogLevelError)
	default:
	}
	return xlog.WithXLoggerLevel(xlog.LogLevelInfo)
}

type runParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Config     *config
	Logger     xlog.XLogger
	Pool       *antsv2.Pool
	Provider   metric.MeterProvider
}

// registerRun starts the trials once the app started, the app is shut down
// with exit code 1 if any trial fails.
func registerRun(p runParams) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	runner := &trialRunner{
		cfg:      p.Config,
		logger:   p.Logger,
		provider: p.Provider,
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Logger.Banner(banner{})
			p.Logger.Info("trials started",
				zap.Int("trials", p.Config.trials),
				zap.Int("keys", p.Config.keys),
				zap.Uint64("min", p.Config.min),
				zap.Uint64("max", p.Config.max),
				zap.Int("workers", p.Config.workers),
			)
			go func() {
				defer close(done)
				start := time.Now()
				reports, err := runTrials(ctx, runner, p.Pool)
				code := 0
				if err != nil {
					code = 1
					for _, e := range multierr.Errors(err) {
						p.Logger.ErrorStack(e, "trial failed")
					}
				}
				p.Logger.Info("trials finished",
					zap.Int("succeeded", len(reports)),
					zap.Int("failed", len(multierr.Errors(err))),
					zap.Duration("elapsed", time.Since(start)),
				)
				if err := p.Shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					p.Logger.Error(err, "shutdown failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return infra.WrapErrorStack(ctx.Err())
			}
		},
	})
}

func appOptions(cfg *config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			newPool,
			newMeterProvider,
		),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Invoke(registerRun),
	}
}
