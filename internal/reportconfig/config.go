package reportconfig

import "github.com/wonny/tearsheet/internal/series"

// Mode selects the metric key list produced by the aggregator
type Mode string

const (
	ModeFull  Mode = "full"
	ModeBasic Mode = "basic"
)

// Options is the single immutable option set passed to the aggregator and report builders.
// ⭐ SSOT: 모든 계산 파라미터는 여기서만 정의
type Options struct {
	Title            string  `yaml:"title" json:"title"`
	PeriodsPerYear   int     `yaml:"periods_per_year" json:"periods_per_year"`
	RiskFreeRate     float64 `yaml:"risk_free_rate" json:"risk_free_rate"` // 연율
	Confidence       float64 `yaml:"confidence" json:"confidence"`
	RollingWindow    int     `yaml:"rolling_window" json:"rolling_window"`
	BetaWindow       int     `yaml:"beta_window" json:"beta_window"`
	HistogramBins    int     `yaml:"histogram_bins" json:"histogram_bins"`
	IncludeMissing   bool    `yaml:"include_missing" json:"include_missing"`
	TrimLeadingZeros bool    `yaml:"trim_leading_zeros" json:"trim_leading_zeros"`
	SmartPenaltyLag  int     `yaml:"smart_penalty_lag" json:"smart_penalty_lag"`
	Mode             Mode    `yaml:"mode" json:"mode"`
}

// Default returns the documented defaults
func Default() Options {
	return Options{
		Title:            "Strategy Tearsheet",
		PeriodsPerYear:   252,
		RiskFreeRate:     0,
		Confidence:       0.95,
		RollingWindow:    30,
		BetaWindow:       252,
		HistogramBins:    20,
		IncludeMissing:   false,
		TrimLeadingZeros: true,
		SmartPenaltyLag:  10,
		Mode:             ModeFull,
	}
}

// Prepare returns the subset consumed by series preparation
func (o Options) Prepare() series.PrepareOptions {
	return series.PrepareOptions{
		PeriodsPerYear:   o.PeriodsPerYear,
		RiskFreeRate:     o.RiskFreeRate,
		IncludeMissing:   o.IncludeMissing,
		TrimLeadingZeros: o.TrimLeadingZeros,
	}
}

// With returns a copy with fn applied; the receiver is never mutated
func (o Options) With(fn func(*Options)) Options {
	fn(&o)
	return o
}
