package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// =============================================================================
// 통계 유틸리티
// =============================================================================

// Mean returns the arithmetic mean (NaN for empty input)
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// StdDev returns the sample standard deviation, denominator n-1 (NaN when n < 2)
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	if constant(x) {
		return 0
	}
	return stat.StdDev(x, nil)
}

// Variance returns the sample variance, denominator n-1 (NaN when n < 2)
func Variance(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	if constant(x) {
		return 0
	}
	return stat.Variance(x, nil)
}

// Skew returns the adjusted Fisher-Pearson sample skewness (NaN when n < 3)
func Skew(x []float64) float64 {
	if len(x) < 3 {
		return math.NaN()
	}
	if constant(x) {
		return math.NaN()
	}
	return stat.Skew(x, nil)
}

// Kurtosis returns the sample EXCESS kurtosis (NaN when n < 4)
func Kurtosis(x []float64) float64 {
	if len(x) < 4 {
		return math.NaN()
	}
	if constant(x) {
		return math.NaN()
	}
	return stat.ExKurtosis(x, nil)
}

// Quantile returns the q-quantile (q in [0,1]) with linear interpolation
// between closest ranks, h = (n-1)q. Input is not modified.
func Quantile(x []float64, q float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(x))
	copy(sorted, x)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	idx := q * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// 선형 보간
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// NormInv is the inverse standard normal CDF
func NormInv(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// NormCDF is the standard normal CDF
func NormCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// Autocorrelation returns the lag-k sample autocorrelation
// rho_k = sum_{t>=k}(x_t - m)(x_{t-k} - m) / sum_t (x_t - m)^2
func Autocorrelation(x []float64, k int) float64 {
	n := len(x)
	if k <= 0 || k >= n {
		return math.NaN()
	}
	m := stat.Mean(x, nil)

	var den float64
	for _, v := range x {
		den += (v - m) * (v - m)
	}
	if den == 0 {
		return math.NaN()
	}

	var num float64
	for t := k; t < n; t++ {
		num += (x[t] - m) * (x[t-k] - m)
	}
	return num / den
}

// AutocorrPenalty is sqrt(1 + 2 * sum_{k=1..K} (1 - k/n) * rho_k), K = min(n-1, lag)
func AutocorrPenalty(x []float64, lag int) float64 {
	n := len(x)
	if n < 3 {
		return math.NaN()
	}
	k := lag
	if k > n-1 {
		k = n - 1
	}

	var sum float64
	for i := 1; i <= k; i++ {
		rho := Autocorrelation(x, i)
		if math.IsNaN(rho) {
			return math.NaN()
		}
		sum += (1 - float64(i)/float64(n)) * rho
	}

	arg := 1 + 2*sum
	if arg <= 0 {
		return math.NaN()
	}
	return math.Sqrt(arg)
}

// constant reports whether every element equals the first.
// 부동소수점 누적 오차로 stdev가 0이 아닌 미세값이 되는 것을 막는다
func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func filter(x []float64, keep func(float64) bool) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}
