package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/wonny/tearsheet/internal/drawdown"
	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/period"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/series"
)

// Report holds every dataset the tearsheet renders
type Report struct {
	Title       string               `json:"title"`
	GeneratedAt time.Time            `json:"generated_at"`
	Options     reportconfig.Options `json:"options"`
	Metrics     *metrics.Bundle      `json:"metrics"`
	Yearly      []YearRow            `json:"yearly,omitempty"`
	Drawdowns   []DrawdownRow        `json:"drawdowns"`
	Equity      []Point              `json:"equity"`
	BenchEquity []Point              `json:"benchmark_equity,omitempty"`
	Underwater  []Point              `json:"underwater"`
	Histogram   Histogram            `json:"histogram"`
	RollingVol  []Point              `json:"rolling_volatility,omitempty"`
	RollingSR   []Point              `json:"rolling_sharpe,omitempty"`
	RollingSort []Point              `json:"rolling_sortino,omitempty"`
	RollingBeta []Point              `json:"rolling_beta,omitempty"`
	Heatmap     *Heatmap             `json:"heatmap,omitempty"`
	Notes       []string             `json:"notes,omitempty"`
}

// Builder assembles reports from a metrics aggregator
type Builder struct {
	agg *metrics.Aggregator
	now func() time.Time
}

// NewBuilder creates a report builder
func NewBuilder(agg *metrics.Aggregator) *Builder {
	return &Builder{agg: agg, now: time.Now}
}

// Build computes the metrics bundle and every report dataset.
// Datasets that need calendar dates or a longer history are skipped with a note.
func (b *Builder) Build(in metrics.Input, opts reportconfig.Options) (*Report, error) {
	bundle, err := b.agg.Compute(in, opts)
	if err != nil {
		return nil, err
	}

	prep := opts.Prepare()
	prep.RiskFreeRate = 0

	s, err := series.Prepare(in.Returns, prep)
	if errors.Is(err, series.ErrEmptySeries) {
		// 지표는 전부 "-", 데이터셋은 만들 수 없다
		return &Report{
			Title:       opts.Title,
			GeneratedAt: b.now().UTC(),
			Options:     opts,
			Metrics:     bundle,
			Notes:       []string{fmt.Sprintf("report datasets skipped: %v", err)},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	var bench *series.Series
	if in.Benchmark != nil && bundle.HasBenchmark {
		pr, pb, err := series.PrepareWithBenchmark(in.Returns, *in.Benchmark, prep)
		if err != nil {
			return nil, err
		}
		s, bench = pr, &pb
	}

	rfp := series.PeriodicRate(opts.RiskFreeRate, opts.PeriodsPerYear)
	excess := make([]float64, s.Len())
	for i, v := range s.Values {
		excess[i] = v - rfp
	}

	rep := &Report{
		Title:       opts.Title,
		GeneratedAt: b.now().UTC(),
		Options:     opts,
		Metrics:     bundle,
		Equity:      EquityCurve(s),
		Underwater:  DrawdownCurve(s),
	}
	note := func(what string, err error) {
		rep.Notes = append(rep.Notes, fmt.Sprintf("%s skipped: %v", what, err))
	}

	an := drawdown.Analyze(s)
	rep.Drawdowns = DrawdownTable(s, an.Episodes, DrawdownTableSize)

	if bench != nil {
		rep.BenchEquity = EquityCurve(*bench)
	}

	// 날짜가 있으면 월간 수익률 분포, 없으면 기간 수익률 분포
	histValues := s.Values
	if s.HasDates() {
		yearly, err := YearlyReturns(s, bench)
		if err != nil {
			return nil, err
		}
		rep.Yearly = yearly

		hm, err := MonthlyHeatmap(s)
		if err != nil {
			return nil, err
		}
		rep.Heatmap = &hm

		if monthly, err := period.AggregateValues(s, period.Monthly); err == nil {
			histValues = monthly
		}
	} else {
		note("calendar tables", series.ErrNoDates)
	}

	if rep.Histogram, err = NewHistogram(histValues, opts.HistogramBins); err != nil {
		return nil, err
	}

	if rep.RollingVol, err = RollingVolatility(s, opts.RollingWindow, opts.PeriodsPerYear); err != nil {
		if !errors.Is(err, series.ErrInsufficientData) {
			return nil, err
		}
		note("rolling statistics", err)
	} else {
		rep.RollingSR, _ = RollingSharpe(s, excess, opts.RollingWindow, opts.PeriodsPerYear)
		rep.RollingSort, _ = RollingSortino(s, excess, opts.RollingWindow, opts.PeriodsPerYear)
	}

	if bench != nil {
		if rep.RollingBeta, err = RollingBeta(s, *bench, opts.BetaWindow); err != nil {
			if !errors.Is(err, series.ErrInsufficientData) {
				return nil, err
			}
			note("rolling beta", err)
		}
	}

	return rep, nil
}
