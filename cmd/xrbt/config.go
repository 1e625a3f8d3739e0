package main

import (
	"flag"
	"io"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/benz9527/xrbt/lib/infra"
)

type config struct {
	keys            int
	min             uint64
	max             uint64
	trials          int
	workers         int
	seed            uint64
	inorder         bool
	metrics         bool
	metricsTextfile string
	logLevel        string
}

type envLookup func(key string) (string, bool)

// env parses the environment values as the flag defaults.
type env struct {
	lookup envLookup
	err    error
}

func (e *env) strOr(key, def string) string {
	if v, ok := e.lookup(key); ok && len(strings.TrimSpace(v)) > 0 {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) intOr(key string, def int) int {
	v := e.strOr(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = multierr.Append(e.err, infra.WrapErrorStackWithMessage(err, "[xrbt] env "+key))
		return def
	}
	return n
}

func (e *env) uint64Or(key string, def uint64) uint64 {
	v := e.strOr(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		e.err = multierr.Append(e.err, infra.WrapErrorStackWithMessage(err, "[xrbt] env "+key))
		return def
	}
	return n
}

func (e *env) boolOr(key string, def bool) bool {
	v := e.strOr(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = multierr.Append(e.err, infra.WrapErrorStackWithMessage(err, "[xrbt] env "+key))
		return def
	}
	return b
}

// loadConfig the flags override the environment values.
func loadConfig(args []string, lookup envLookup, output io.Writer) (*config, error) {
	e := &env{lookup: lookup}
	cfg := &config{}

	fs := flag.NewFlagSet("xrbt", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&cfg.keys, "keys", e.intOr("XRBT_KEYS", 1000), "unique keys inserted per trial")
	fs.Uint64Var(&cfg.min, "min", e.uint64Or("XRBT_MIN", 1), "min key (inclusive)")
	fs.Uint64Var(&cfg.max, "max", e.uint64Or("XRBT_MAX", 10000), "max key (inclusive)")
	fs.IntVar(&cfg.trials, "trials", e.intOr("XRBT_TRIALS", 1), "independent trees to build")
	fs.IntVar(&cfg.workers, "workers", e.intOr("XRBT_WORKERS", 4), "trial worker pool size")
	fs.Uint64Var(&cfg.seed, "seed", e.uint64Or("XRBT_SEED", 0), "key generation seed, 0 is random")
	fs.BoolVar(&cfg.inorder, "inorder", e.boolOr("XRBT_INORDER", false), "log the in-order keys of every trial")
	fs.BoolVar(&cfg.metrics, "metrics", e.boolOr("XRBT_METRICS", false), "print the metrics to stdout")
	fs.StringVar(&cfg.metricsTextfile, "metrics-textfile", e.strOr("XRBT_METRICS_TEXTFILE", ""), "write the metrics in the prometheus text format to the file")
	fs.StringVar(&cfg.logLevel, "log-level", e.strOr("XLOG_LVL", "INFO"), "DEBUG, INFO, WARN or ERROR")
	if e.err != nil {
		return nil, e.err
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *config) validate() error {
	var err error
	if cfg.keys < 0 {
		err = multierr.Append(err, infra.NewErrorStack("[xrbt] negative keys"))
	}
	if cfg.min > cfg.max {
		err = multierr.Append(err, infra.NewErrorStack("[xrbt] min is greater than max"))
	} else if cfg.max-cfg.min < uint64(max(cfg.keys, 1)-1) {
		err = multierr.Append(err, infra.NewErrorStack("[xrbt] key range is too narrow for the unique keys"))
	}
	if cfg.trials < 1 {
		err = multierr.Append(err, infra.NewErrorStack("[xrbt] trials must be positive"))
	}
	if cfg.workers < 1 {
		err = multierr.Append(err, infra.NewErrorStack("[xrbt] workers must be positive"))
	}
	switch strings.ToUpper(cfg.logLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
		cfg.logLevel = strings.ToUpper(cfg.logLevel)
	default:
		err = multierr.Append(err, infra.NewErrorStack("[xrbt] unknown log level "+cfg.logLevel))
	}
	return err
}
