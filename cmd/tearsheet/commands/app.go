package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tearsheet/internal/input"
	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/pkg/config"
	"github.com/wonny/tearsheet/pkg/httputil"
	"github.com/wonny/tearsheet/pkg/logger"
)

// app bundles the process dependencies shared by every command
type app struct {
	cfg  *config.Config
	log  *logger.Logger
	opts reportconfig.Options
}

// bootstrap loads process config, the logger and the report options
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	opts := reportconfig.Default()
	path := configFile
	if path == "" {
		path = cfg.Report.OptionsPath
	}
	if path != "" {
		if opts, err = reportconfig.Load(path); err != nil {
			return nil, fmt.Errorf("load options: %w", err)
		}
		log.WithField("path", path).Debug("Report options loaded")
	}

	return &app{cfg: cfg, log: log, opts: opts}, nil
}

// ═══════════════════════════════════════════════════════════
// Series input flags (metrics, report, drawdowns, db import)
// ═══════════════════════════════════════════════════════════

type seriesFlags struct {
	input     string
	benchmark string
	prices    bool
	sheet     string
}

func (f *seriesFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "returns file (.csv/.xlsx) or http(s) URL")
	cmd.Flags().StringVarP(&f.benchmark, "benchmark", "b", "", "benchmark file or URL (first value column)")
	cmd.Flags().BoolVar(&f.prices, "prices", false, "value columns are prices, not returns")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	cmd.MarkFlagRequired("input")
}

// load reads the returns and the optional separate benchmark
func (f *seriesFlags) load(ctx context.Context, a *app) (metrics.Input, error) {
	client := httputil.New(a.log)
	opts := input.Options{Prices: f.prices, Sheet: f.sheet}

	in, err := input.Open(ctx, client, f.input, opts)
	if err != nil {
		return metrics.Input{}, fmt.Errorf("load %s: %w", f.input, err)
	}

	if f.benchmark != "" {
		b, err := input.Open(ctx, client, f.benchmark, opts)
		if err != nil {
			return metrics.Input{}, fmt.Errorf("load benchmark %s: %w", f.benchmark, err)
		}
		in.Benchmark = &b.Returns
	}

	a.log.WithFields(map[string]interface{}{
		"input":        f.input,
		"observations": in.Returns.Len(),
		"benchmark":    in.Benchmark != nil,
	}).Debug("Series loaded")
	return in, nil
}

// ═══════════════════════════════════════════════════════════
// Option override flags
// ═══════════════════════════════════════════════════════════

type optionFlags struct {
	mode    string
	rf      float64
	periods int
	title   string
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "metric list: full|basic")
	cmd.Flags().Float64Var(&f.rf, "rf", 0, "annual risk-free rate (e.g. 0.03)")
	cmd.Flags().IntVar(&f.periods, "periods", 0, "periods per year (252 daily, 52 weekly, 12 monthly)")
	cmd.Flags().StringVar(&f.title, "title", "", "report title")
}

// apply overlays explicitly set flags on opts
func (f *optionFlags) apply(cmd *cobra.Command, opts reportconfig.Options) (reportconfig.Options, error) {
	opts = opts.With(func(o *reportconfig.Options) {
		if cmd.Flags().Changed("mode") {
			o.Mode = reportconfig.Mode(f.mode)
		}
		if cmd.Flags().Changed("rf") {
			o.RiskFreeRate = f.rf
		}
		if cmd.Flags().Changed("periods") {
			o.PeriodsPerYear = f.periods
		}
		if cmd.Flags().Changed("title") {
			o.Title = f.title
		}
	})
	return opts, reportconfig.Validate(opts)
}
