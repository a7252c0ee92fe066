package stats

import (
	"math"
	"time"

	"github.com/wonny/tearsheet/internal/drawdown"
)

// =============================================================================
// Risk-adjusted Ratios
// 입력 수익률은 이미 무위험 수익률이 차감된 초과수익률이어야 한다
// =============================================================================

// Volatility is the annualized sample standard deviation
func Volatility(r []float64, periodsPerYear int) float64 {
	return StdDev(r) * math.Sqrt(float64(periodsPerYear))
}

// Sharpe is mean / stdev * sqrt(P). Zero stdev yields 0.
func Sharpe(r []float64, periodsPerYear int) float64 {
	if len(r) < 2 {
		return math.NaN()
	}
	sd := StdDev(r)
	if sd == 0 {
		return 0
	}
	return Mean(r) / sd * math.Sqrt(float64(periodsPerYear))
}

// DownsideDeviation is sqrt(sum(min(r,0)^2) / n) against a zero target
func DownsideDeviation(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	var ss float64
	for _, v := range r {
		if v < 0 {
			ss += v * v
		}
	}
	return math.Sqrt(ss / float64(len(r)))
}

// Sortino is mean / downside deviation * sqrt(P). No downside yields 0.
func Sortino(r []float64, periodsPerYear int) float64 {
	if len(r) < 2 {
		return math.NaN()
	}
	dd := DownsideDeviation(r)
	if dd == 0 {
		return 0
	}
	return Mean(r) / dd * math.Sqrt(float64(periodsPerYear))
}

// AdjustedSortino is Sortino / sqrt(2), comparable in scale to Sharpe
func AdjustedSortino(r []float64, periodsPerYear int) float64 {
	return Sortino(r, periodsPerYear) / math.Sqrt2
}

// SmartSharpe is Sharpe divided by the autocorrelation penalty
func SmartSharpe(r []float64, periodsPerYear, lag int) float64 {
	return Sharpe(r, periodsPerYear) / AutocorrPenalty(r, lag)
}

// SmartSortino is Sortino divided by the autocorrelation penalty
func SmartSortino(r []float64, periodsPerYear, lag int) float64 {
	return Sortino(r, periodsPerYear) / AutocorrPenalty(r, lag)
}

// ProbabilisticSharpe is the probability that the true (per-period) Sharpe exceeds 0:
// Phi(SR * sqrt(n-1) / sqrt(1 - skew*SR + (kurt-1)/4 * SR^2)), kurt non-excess.
func ProbabilisticSharpe(r []float64) float64 {
	n := len(r)
	if n < 4 {
		return math.NaN()
	}
	sd := StdDev(r)
	if sd == 0 {
		return math.NaN()
	}
	sr := Mean(r) / sd
	skew := Skew(r)
	kurt := Kurtosis(r) + 3

	den := 1 - skew*sr + (kurt-1)/4*sr*sr
	if den <= 0 || math.IsNaN(den) {
		return math.NaN()
	}
	return NormCDF(sr * math.Sqrt(float64(n-1)) / math.Sqrt(den))
}

// Calmar is CAGR / |max drawdown|
func Calmar(r []float64, dates []time.Time, periodsPerYear int) float64 {
	mdd := drawdown.Max(drawdown.Series(r))
	if mdd == 0 {
		return math.NaN()
	}
	return CAGR(r, dates, periodsPerYear) / math.Abs(mdd)
}

// Omega is sum(max(r-t,0)) / sum(max(t-r,0)) for a per-period threshold t
func Omega(r []float64, threshold float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	var up, down float64
	for _, v := range r {
		d := v - threshold
		if d > 0 {
			up += d
		} else {
			down -= d
		}
	}
	return safeRatio(up, down)
}

// RecoveryFactor is |total return| / |max drawdown|
func RecoveryFactor(r []float64, dd []float64) float64 {
	mdd := drawdown.Max(dd)
	if mdd == 0 || len(r) == 0 {
		return math.NaN()
	}
	return math.Abs(Comp(r)) / math.Abs(mdd)
}
