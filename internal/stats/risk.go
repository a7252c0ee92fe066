package stats

import (
	"math"

	"github.com/wonny/tearsheet/internal/drawdown"
)

// RuinUnits is the fixed capital-unit exponent k of RiskOfRuin
const RuinUnits = 100

// =============================================================================
// VaR / CVaR
// =============================================================================

// VaR is the parametric value at risk: mean + z_(1-c) * stdev.
// Non-positive for c > 0.5 on ordinary data (loss-negative convention).
func VaR(r []float64, confidence float64) float64 {
	if len(r) < 2 {
		return math.NaN()
	}
	return Mean(r) + NormInv(1-confidence)*StdDev(r)
}

// CVaR is the mean of observations at or below the empirical (1-c) quantile
func CVaR(r []float64, confidence float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	cut := Quantile(r, 1-confidence)
	return Mean(filter(r, func(v float64) bool { return v <= cut }))
}

// =============================================================================
// Drawdown-based Risk
// =============================================================================

// MaxDrawdown is the minimum of the drawdown series of r
func MaxDrawdown(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	return drawdown.Max(drawdown.Series(r))
}

// AvgDrawdown is the mean episode depth (0 when there are no episodes)
func AvgDrawdown(episodes []drawdown.Episode) float64 {
	if len(episodes) == 0 {
		return 0
	}
	var s float64
	for _, ep := range episodes {
		s += ep.MaxDrawdown
	}
	return s / float64(len(episodes))
}

// AvgDrawdownDays is the mean episode duration
func AvgDrawdownDays(episodes []drawdown.Episode) float64 {
	if len(episodes) == 0 {
		return 0
	}
	var s float64
	for _, ep := range episodes {
		s += float64(ep.Days)
	}
	return s / float64(len(episodes))
}

// LongestDrawdownDays is the longest episode duration
func LongestDrawdownDays(episodes []drawdown.Episode) int {
	longest := 0
	for _, ep := range episodes {
		if ep.Days > longest {
			longest = ep.Days
		}
	}
	return longest
}

// UlcerIndex is sqrt(mean((100*d)^2)) over the drawdown series (percent units)
func UlcerIndex(dd []float64) float64 {
	if len(dd) == 0 {
		return math.NaN()
	}
	var ss float64
	for _, d := range dd {
		p := d * 100
		ss += p * p
	}
	return math.Sqrt(ss / float64(len(dd)))
}

// SerenityIndex is Comp(r) / (UlcerIndex * pitfall), pitfall = -CVaR(dd) / stdev(r).
// UlcerIndex is in percent units.
func SerenityIndex(r, dd []float64, confidence float64) float64 {
	sd := StdDev(r)
	if math.IsNaN(sd) || sd == 0 {
		return math.NaN()
	}
	pitfall := -CVaR(dd, confidence) / sd
	ulcer := UlcerIndex(dd)
	den := ulcer * pitfall
	if den == 0 || math.IsNaN(den) {
		return math.NaN()
	}
	return Comp(r) / den
}

// =============================================================================
// Distribution Shape & Sizing
// =============================================================================

// Kelly is mean / variance
func Kelly(r []float64) float64 {
	v := Variance(r)
	if math.IsNaN(v) || v == 0 {
		return math.NaN()
	}
	return Mean(r) / v
}

// RiskOfRuin is ((1-edge)/(1+edge))^k with edge = 2*winrate - 1 and k = RuinUnits.
// A non-positive edge means certain ruin (1).
func RiskOfRuin(r []float64) float64 {
	wr := WinRate(r)
	if math.IsNaN(wr) {
		return math.NaN()
	}
	edge := 2*wr - 1
	if edge <= 0 {
		return 1
	}
	return math.Pow((1-edge)/(1+edge), RuinUnits)
}

// TailRatio is |Q95| / |Q05|
func TailRatio(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	lo := math.Abs(Quantile(r, 0.05))
	if lo == 0 {
		return math.NaN()
	}
	return math.Abs(Quantile(r, 0.95)) / lo
}

// OutlierWinRatio is mean(r >= Q99) / mean(r)
func OutlierWinRatio(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	q := Quantile(r, 0.99)
	return outlierRatio(r, func(v float64) bool { return v >= q })
}

// OutlierLossRatio is mean(r <= Q01) / mean(r)
func OutlierLossRatio(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	q := Quantile(r, 0.01)
	return outlierRatio(r, func(v float64) bool { return v <= q })
}

func outlierRatio(r []float64, tail func(float64) bool) float64 {
	m := Mean(r)
	if m == 0 {
		return math.NaN()
	}
	return Mean(filter(r, tail)) / m
}
