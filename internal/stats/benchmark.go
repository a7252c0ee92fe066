package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/tearsheet/internal/series"
)

// =============================================================================
// Benchmark Calculations
// 길이가 다르면 ErrShapeMismatch (직접 호출자에게는 에러로 전달)
// =============================================================================

func checkShape(r, b []float64) error {
	if len(r) != len(b) {
		return fmt.Errorf("%w: returns=%d benchmark=%d", series.ErrShapeMismatch, len(r), len(b))
	}
	return nil
}

// Beta is Cov(r,b) / Var(b), sample moments
func Beta(r, b []float64) (float64, error) {
	if err := checkShape(r, b); err != nil {
		return math.NaN(), err
	}
	if len(r) < 2 {
		return math.NaN(), nil
	}
	vb := stat.Variance(b, nil)
	if vb == 0 {
		return math.NaN(), nil
	}
	return stat.Covariance(r, b, nil) / vb, nil
}

// Alpha is the annualized intercept (mean(r) - beta*mean(b)) * P
func Alpha(r, b []float64, periodsPerYear int) (float64, error) {
	beta, err := Beta(r, b)
	if err != nil || math.IsNaN(beta) {
		return math.NaN(), err
	}
	return (Mean(r) - beta*Mean(b)) * float64(periodsPerYear), nil
}

// Correlation is the Pearson correlation of r and b
func Correlation(r, b []float64) (float64, error) {
	if err := checkShape(r, b); err != nil {
		return math.NaN(), err
	}
	if len(r) < 2 {
		return math.NaN(), nil
	}
	if stat.StdDev(r, nil) == 0 || stat.StdDev(b, nil) == 0 {
		return math.NaN(), nil
	}
	return stat.Correlation(r, b, nil), nil
}

// RSquared is the squared correlation
func RSquared(r, b []float64) (float64, error) {
	c, err := Correlation(r, b)
	if err != nil {
		return math.NaN(), err
	}
	return c * c, nil
}

// InformationRatio is mean(r-b) / stdev(r-b); NaN when the tracking error is 0
func InformationRatio(r, b []float64) (float64, error) {
	if err := checkShape(r, b); err != nil {
		return math.NaN(), err
	}
	active := make([]float64, len(r))
	for i := range r {
		active[i] = r[i] - b[i]
	}
	sd := StdDev(active)
	if math.IsNaN(sd) || sd == 0 {
		return math.NaN(), nil
	}
	return Mean(active) / sd, nil
}

// Treynor is (mean(r)*P - rf) / beta
func Treynor(r, b []float64, riskFreeRate float64, periodsPerYear int) (float64, error) {
	beta, err := Beta(r, b)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(beta) || beta == 0 {
		return math.NaN(), nil
	}
	return (Mean(r)*float64(periodsPerYear) - riskFreeRate) / beta, nil
}

// Greeks groups the benchmark-relative statistics
type Greeks struct {
	Beta             float64 `json:"beta"`
	Alpha            float64 `json:"alpha"`
	Correlation      float64 `json:"correlation"`
	RSquared         float64 `json:"r_squared"`
	InformationRatio float64 `json:"information_ratio"`
	Treynor          float64 `json:"treynor"`
}

// ComputeGreeks evaluates every benchmark statistic at once
func ComputeGreeks(r, b []float64, riskFreeRate float64, periodsPerYear int) (Greeks, error) {
	if err := checkShape(r, b); err != nil {
		return Greeks{}, err
	}
	var g Greeks
	g.Beta, _ = Beta(r, b)
	g.Alpha, _ = Alpha(r, b, periodsPerYear)
	g.Correlation, _ = Correlation(r, b)
	g.RSquared, _ = RSquared(r, b)
	g.InformationRatio, _ = InformationRatio(r, b)
	g.Treynor, _ = Treynor(r, b, riskFreeRate, periodsPerYear)
	return g, nil
}
