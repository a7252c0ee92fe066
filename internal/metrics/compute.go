package metrics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/wonny/tearsheet/internal/drawdown"
	"github.com/wonny/tearsheet/internal/period"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/stats"
	"github.com/wonny/tearsheet/pkg/logger"
	"github.com/wonny/tearsheet/pkg/monitoring"
)

// Input is one returns series with an optional benchmark
type Input struct {
	Returns   series.Series
	Benchmark *series.Series
}

// Aggregator builds metrics bundles
// ⭐ SSOT: 메트릭 라벨과 순서는 여기서만 정의
type Aggregator struct {
	log *logger.Logger
}

// NewAggregator creates an aggregator logging through log
func NewAggregator(log *logger.Logger) *Aggregator {
	return &Aggregator{log: log}
}

// Compute is a convenience wrapper that does not log
func Compute(in Input, opts reportconfig.Options) (*Bundle, error) {
	return NewAggregator(logger.Nop()).Compute(in, opts)
}

// Compute prepares the series and evaluates every row for opts.Mode.
// An unusable benchmark drops the benchmark rows with a warning. A returns
// series that cleans to nothing yields a bundle of Missing values with a warning.
func (a *Aggregator) Compute(in Input, opts reportconfig.Options) (*Bundle, error) {
	if err := reportconfig.Validate(opts); err != nil {
		return nil, err
	}

	// 원수익률로 준비하고 초과수익률은 비율 지표에서만 사용
	prep := opts.Prepare()
	prep.RiskFreeRate = 0

	bundle := &Bundle{}
	r, err := series.Prepare(in.Returns, prep)
	empty := errors.Is(err, series.ErrEmptySeries)
	switch {
	case empty:
		// 전부 0(선행 0 제거) 또는 전부 결측: 모든 지표를 "-"로
		bundle.Warnings = append(bundle.Warnings, fmt.Sprintf("returns ignored: %v", err))
		a.log.WithError(err).Warn("empty returns series, every metric missing")
	case err != nil:
		return nil, fmt.Errorf("prepare returns: %w", err)
	}

	var b *series.Series
	if in.Benchmark != nil && !empty {
		pr, pb, err := series.PrepareWithBenchmark(in.Returns, *in.Benchmark, prep)
		switch {
		case err == nil:
			r, b = pr, &pb
			bundle.HasBenchmark = true
		case errors.Is(err, series.ErrShapeMismatch), errors.Is(err, series.ErrEmptySeries):
			msg := fmt.Sprintf("benchmark ignored: %v", err)
			bundle.Warnings = append(bundle.Warnings, msg)
			a.log.WithError(err).Warn("benchmark metrics omitted")
		default:
			return nil, fmt.Errorf("prepare benchmark: %w", err)
		}
	}

	rfp := series.PeriodicRate(opts.RiskFreeRate, opts.PeriodsPerYear)
	strat := newCalc(r, rfp, opts)
	var bench *calc
	if b != nil {
		bench = newCalc(*b, rfp, opts)
	}

	for _, rw := range rows {
		if rw.full && opts.Mode != reportconfig.ModeFull {
			continue
		}
		e := Entry{Label: rw.label, Kind: rw.kind, Value: math.NaN(), Benchmark: math.NaN()}

		switch {
		case empty:
			if rw.relative != nil && !rw.always {
				continue
			}
		case rw.text != nil:
			e.Text = rw.text(strat)
			if bench != nil {
				e.BenchText = rw.text(bench)
			}
		case rw.relative != nil:
			if bench == nil && !rw.always {
				continue
			}
			if bench != nil {
				e.Value = rw.relative(strat, bench)
			}
		default:
			e.Value = rw.fn(strat)
			if bench != nil {
				e.Benchmark = rw.fn(bench)
			}
		}
		bundle.add(e)
	}

	monitoring.BundlesComputed.WithLabelValues(string(opts.Mode), strconv.FormatBool(bundle.HasBenchmark)).Inc()
	a.log.WithFields(map[string]interface{}{
		"observations": r.Len(),
		"benchmark":    bundle.HasBenchmark,
		"mode":         opts.Mode,
	}).Debug("metrics bundle computed")

	return bundle, nil
}

// =============================================================================
// Per-series precomputation
// =============================================================================

type calc struct {
	opts     reportconfig.Options
	s        series.Series // 원수익률
	ex       []float64     // 초과수익률
	dd       []float64
	episodes []drawdown.Episode

	// nil when undated
	monthly   []float64
	quarterly []float64
	yearly    []float64
}

func newCalc(s series.Series, rfp float64, opts reportconfig.Options) *calc {
	c := &calc{opts: opts, s: s}

	c.ex = s.Values
	if rfp != 0 {
		c.ex = make([]float64, s.Len())
		for i, v := range s.Values {
			c.ex[i] = v - rfp
		}
	}

	an := drawdown.Analyze(s)
	c.dd, c.episodes = an.Drawdowns, an.Episodes

	if s.HasDates() {
		c.monthly, _ = period.AggregateValues(s, period.Monthly)
		c.quarterly, _ = period.AggregateValues(s, period.Quarterly)
		c.yearly, _ = period.AggregateValues(s, period.Annual)
	}
	return c
}

func (c *calc) P() int { return c.opts.PeriodsPerYear }

// windowComp compounds the observations dated on or after from
func (c *calc) windowComp(from func(last time.Time) time.Time) float64 {
	if !c.s.HasDates() {
		return math.NaN()
	}
	w := c.s.Since(from(c.s.Last()))
	if w.Len() == 0 {
		return math.NaN()
	}
	return stats.Comp(w.Values)
}

// windowCAGR annualizes a trailing window; NaN when history is shorter than the window
func (c *calc) windowCAGR(years int) float64 {
	if !c.s.HasDates() {
		return math.NaN()
	}
	from := c.s.Last().AddDate(-years, 0, 0)
	if c.s.First().After(from) {
		return math.NaN()
	}
	w := c.s.Since(from)
	return stats.CAGR(w.Values, w.Dates, c.P())
}

func orNaN(x []float64, fn func([]float64) float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return fn(x)
}

func monthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func yearStart(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

func monthsBack(n int) func(time.Time) time.Time {
	return func(t time.Time) time.Time { return t.AddDate(0, -n, 0) }
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(series.DateLayout)
}

func ignoreErr(v float64, _ error) float64 { return v }

// =============================================================================
// Row table
// =============================================================================

type row struct {
	label string
	kind  Kind
	full  bool // full 모드 전용

	fn       func(c *calc) float64
	text     func(c *calc) string
	relative func(c, b *calc) float64 // 벤치마크 대비 지표 (전략 컬럼만)
	always   bool                     // relative row shown as "-" without a benchmark
}

var rows = []row{
	{label: "Start Period", kind: Date, text: func(c *calc) string { return dateText(c.s.First()) }},
	{label: "End Period", kind: Date, text: func(c *calc) string { return dateText(c.s.Last()) }},
	{label: "Risk-Free Rate", kind: Percent, fn: func(c *calc) float64 { return c.opts.RiskFreeRate }},
	{label: "Time in Market", kind: Percent, fn: func(c *calc) float64 { return stats.Exposure(c.s.Values) }},

	{label: "Cumulative Return", kind: Percent, fn: func(c *calc) float64 { return stats.Comp(c.s.Values) }},
	{label: "CAGR", kind: Percent, fn: func(c *calc) float64 { return stats.CAGR(c.s.Values, c.s.Dates, c.P()) }},

	{label: "Sharpe", kind: Ratio, fn: func(c *calc) float64 { return stats.Sharpe(c.ex, c.P()) }},
	{label: "Prob. Sharpe Ratio", kind: Percent, fn: func(c *calc) float64 { return stats.ProbabilisticSharpe(c.ex) }},
	{label: "Smart Sharpe", kind: Ratio, full: true, fn: func(c *calc) float64 {
		return stats.SmartSharpe(c.ex, c.P(), c.opts.SmartPenaltyLag)
	}},
	{label: "Sortino", kind: Ratio, fn: func(c *calc) float64 { return stats.Sortino(c.ex, c.P()) }},
	{label: "Smart Sortino", kind: Ratio, full: true, fn: func(c *calc) float64 {
		return stats.SmartSortino(c.ex, c.P(), c.opts.SmartPenaltyLag)
	}},
	{label: "Sortino/√2", kind: Ratio, fn: func(c *calc) float64 { return stats.AdjustedSortino(c.ex, c.P()) }},
	{label: "Smart Sortino/√2", kind: Ratio, full: true, fn: func(c *calc) float64 {
		return stats.SmartSortino(c.ex, c.P(), c.opts.SmartPenaltyLag) / math.Sqrt2
	}},
	{label: "Omega", kind: Ratio, fn: func(c *calc) float64 { return stats.Omega(c.ex, 0) }},

	{label: "Max Drawdown", kind: Percent, fn: func(c *calc) float64 { return drawdown.Max(c.dd) }},
	{label: "Longest DD Days", kind: Count, fn: func(c *calc) float64 {
		return float64(stats.LongestDrawdownDays(c.episodes))
	}},
	{label: "Volatility (ann.)", kind: Percent, fn: func(c *calc) float64 { return stats.Volatility(c.s.Values, c.P()) }},
	{label: "R²", kind: Ratio, always: true, relative: func(c, b *calc) float64 {
		return ignoreErr(stats.RSquared(c.s.Values, b.s.Values))
	}},
	{label: "Information Ratio", kind: Ratio, full: true, relative: func(c, b *calc) float64 {
		return ignoreErr(stats.InformationRatio(c.s.Values, b.s.Values))
	}},
	{label: "Calmar", kind: Ratio, fn: func(c *calc) float64 { return stats.Calmar(c.s.Values, c.s.Dates, c.P()) }},
	{label: "Skew", kind: Ratio, fn: func(c *calc) float64 { return stats.Skew(c.s.Values) }},
	{label: "Kurtosis", kind: Ratio, fn: func(c *calc) float64 { return stats.Kurtosis(c.s.Values) }},

	{label: "Expected Daily", kind: Percent, fn: func(c *calc) float64 { return stats.GeometricMean(c.s.Values) }},
	{label: "Expected Monthly", kind: Percent, fn: func(c *calc) float64 { return orNaN(c.monthly, stats.GeometricMean) }},
	{label: "Expected Yearly", kind: Percent, fn: func(c *calc) float64 { return orNaN(c.yearly, stats.GeometricMean) }},
	{label: "Kelly Criterion", kind: Percent, fn: func(c *calc) float64 { return stats.Kelly(c.s.Values) }},
	{label: "Risk of Ruin", kind: Percent, fn: func(c *calc) float64 { return stats.RiskOfRuin(c.s.Values) }},
	{label: "Daily VaR", kind: Percent, fn: func(c *calc) float64 { return stats.VaR(c.s.Values, c.opts.Confidence) }},
	{label: "Expected Shortfall (cVaR)", kind: Percent, fn: func(c *calc) float64 {
		return stats.CVaR(c.s.Values, c.opts.Confidence)
	}},

	{label: "Max Consecutive Wins", kind: Count, full: true, fn: func(c *calc) float64 {
		return float64(stats.ConsecutiveWins(c.s.Values))
	}},
	{label: "Max Consecutive Losses", kind: Count, full: true, fn: func(c *calc) float64 {
		return float64(stats.ConsecutiveLosses(c.s.Values))
	}},
	{label: "Gain/Pain Ratio", kind: Ratio, fn: func(c *calc) float64 { return stats.GainToPain(c.s.Values) }},
	{label: "Gain/Pain (1M)", kind: Ratio, full: true, fn: func(c *calc) float64 { return orNaN(c.monthly, stats.GainToPain) }},

	{label: "Payoff Ratio", kind: Ratio, full: true, fn: func(c *calc) float64 { return stats.PayoffRatio(c.s.Values) }},
	{label: "Profit Factor", kind: Ratio, full: true, fn: func(c *calc) float64 { return stats.ProfitFactor(c.s.Values) }},
	{label: "Common Sense Ratio", kind: Ratio, full: true, fn: func(c *calc) float64 { return stats.CommonSenseRatio(c.s.Values) }},
	{label: "CPC Index", kind: Ratio, full: true, fn: func(c *calc) float64 { return stats.CPCIndex(c.s.Values) }},
	{label: "Tail Ratio", kind: Ratio, full: true, fn: func(c *calc) float64 { return stats.TailRatio(c.s.Values) }},
	{label: "Outlier Win Ratio", kind: Ratio, full: true, fn: func(c *calc) float64 { return stats.OutlierWinRatio(c.s.Values) }},
	{label: "Outlier Loss Ratio", kind: Ratio, full: true, fn: func(c *calc) float64 { return stats.OutlierLossRatio(c.s.Values) }},

	{label: "MTD", kind: Percent, fn: func(c *calc) float64 { return c.windowComp(monthStart) }},
	{label: "3M", kind: Percent, fn: func(c *calc) float64 { return c.windowComp(monthsBack(3)) }},
	{label: "6M", kind: Percent, fn: func(c *calc) float64 { return c.windowComp(monthsBack(6)) }},
	{label: "YTD", kind: Percent, fn: func(c *calc) float64 { return c.windowComp(yearStart) }},
	{label: "1Y", kind: Percent, fn: func(c *calc) float64 { return c.windowComp(monthsBack(12)) }},
	{label: "3Y (ann.)", kind: Percent, fn: func(c *calc) float64 { return c.windowCAGR(3) }},
	{label: "5Y (ann.)", kind: Percent, fn: func(c *calc) float64 { return c.windowCAGR(5) }},
	{label: "10Y (ann.)", kind: Percent, fn: func(c *calc) float64 { return c.windowCAGR(10) }},
	{label: "All-time (ann.)", kind: Percent, fn: func(c *calc) float64 { return stats.CAGR(c.s.Values, c.s.Dates, c.P()) }},

	{label: "Best Day", kind: Percent, full: true, fn: func(c *calc) float64 { return stats.Best(c.s.Values) }},
	{label: "Worst Day", kind: Percent, full: true, fn: func(c *calc) float64 { return stats.Worst(c.s.Values) }},
	{label: "Best Month", kind: Percent, full: true, fn: func(c *calc) float64 { return orNaN(c.monthly, stats.Best) }},
	{label: "Worst Month", kind: Percent, full: true, fn: func(c *calc) float64 { return orNaN(c.monthly, stats.Worst) }},
	{label: "Best Year", kind: Percent, full: true, fn: func(c *calc) float64 { return orNaN(c.yearly, stats.Best) }},
	{label: "Worst Year", kind: Percent, full: true, fn: func(c *calc) float64 { return orNaN(c.yearly, stats.Worst) }},

	{label: "Avg. Drawdown", kind: Percent, fn: func(c *calc) float64 { return stats.AvgDrawdown(c.episodes) }},
	{label: "Avg. Drawdown Days", kind: Count, fn: func(c *calc) float64 { return stats.AvgDrawdownDays(c.episodes) }},
	{label: "Recovery Factor", kind: Ratio, fn: func(c *calc) float64 { return stats.RecoveryFactor(c.s.Values, c.dd) }},
	{label: "Ulcer Index", kind: Ratio, fn: func(c *calc) float64 { return stats.UlcerIndex(c.dd) }},
	{label: "Serenity Index", kind: Ratio, fn: func(c *calc) float64 {
		return stats.SerenityIndex(c.s.Values, c.dd, c.opts.Confidence)
	}},

	{label: "Avg. Up Month", kind: Percent, full: true, fn: func(c *calc) float64 { return orNaN(c.monthly, stats.AvgWin) }},
	{label: "Avg. Down Month", kind: Percent, full: true, fn: func(c *calc) float64 { return orNaN(c.monthly, stats.AvgLoss) }},
	{label: "Win Days", kind: Percent, fn: func(c *calc) float64 { return stats.WinRate(c.s.Values) }},
	{label: "Win Month", kind: Percent, fn: func(c *calc) float64 { return orNaN(c.monthly, stats.WinRate) }},
	{label: "Win Quarter", kind: Percent, fn: func(c *calc) float64 { return orNaN(c.quarterly, stats.WinRate) }},
	{label: "Win Year", kind: Percent, fn: func(c *calc) float64 { return orNaN(c.yearly, stats.WinRate) }},

	{label: "Beta", kind: Ratio, relative: func(c, b *calc) float64 {
		return ignoreErr(stats.Beta(c.s.Values, b.s.Values))
	}},
	{label: "Alpha", kind: Ratio, relative: func(c, b *calc) float64 {
		return ignoreErr(stats.Alpha(c.s.Values, b.s.Values, c.P()))
	}},
	{label: "Correlation", kind: Percent, relative: func(c, b *calc) float64 {
		return ignoreErr(stats.Correlation(c.s.Values, b.s.Values))
	}},
	{label: "Treynor Ratio", kind: Percent, relative: func(c, b *calc) float64 {
		return ignoreErr(stats.Treynor(c.s.Values, b.s.Values, c.opts.RiskFreeRate, c.P()))
	}},
}
