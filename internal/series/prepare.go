package series

import (
	"fmt"
	"math"
)

// PrepareOptions is the subset of report options consumed by Prepare
type PrepareOptions struct {
	PeriodsPerYear   int
	RiskFreeRate     float64 // annualized
	IncludeMissing   bool    // true: non-finite -> 0, false: drop
	TrimLeadingZeros bool
}

// PeriodicRate converts an annual rate to its per-period equivalent: (1+rf)^(1/P) - 1
func PeriodicRate(annual float64, periodsPerYear int) float64 {
	if annual == 0 || periodsPerYear <= 0 {
		return 0
	}
	return math.Pow(1+annual, 1/float64(periodsPerYear)) - 1
}

// Prepare cleans a raw return series into the canonical form used downstream
func Prepare(raw Series, opts PrepareOptions) (Series, error) {
	out, _, err := prepare(raw, nil, opts)
	return out, err
}

// PrepareWithBenchmark cleans returns and benchmark together so they stay index-aligned.
// An index is dropped when either side is non-finite (unless IncludeMissing).
// The risk-free deduction applies to the returns only.
func PrepareWithBenchmark(raw, bench Series, opts PrepareOptions) (Series, Series, error) {
	if raw.HasDates() && bench.HasDates() {
		a, b, err := Align(raw, bench)
		if err != nil {
			return Series{}, Series{}, err
		}
		raw, bench = a, b
	} else if raw.Len() != bench.Len() {
		return Series{}, Series{}, fmt.Errorf("%w: returns=%d benchmark=%d", ErrShapeMismatch, raw.Len(), bench.Len())
	}
	out, b, err := prepare(raw, &bench, opts)
	if err != nil {
		return Series{}, Series{}, err
	}
	return out, *b, nil
}

func prepare(raw Series, bench *Series, opts PrepareOptions) (Series, *Series, error) {
	if opts.PeriodsPerYear <= 0 {
		// 프로그래머 오류: 설정 검증을 통과하지 못한 값
		return Series{}, nil, fmt.Errorf("periods per year must be positive, got %d", opts.PeriodsPerYear)
	}

	dated := raw.HasDates()
	out := Series{Values: make([]float64, 0, raw.Len())}
	var outBench *Series
	if bench != nil {
		outBench = &Series{Values: make([]float64, 0, raw.Len())}
	}

	for i, v := range raw.Values {
		bv := 0.0
		if bench != nil {
			bv = bench.Values[i]
		}
		if !finite(v) || (bench != nil && !finite(bv)) {
			if !opts.IncludeMissing {
				continue
			}
			if !finite(v) {
				v = 0
			}
			if !finite(bv) {
				bv = 0
			}
		}
		out.Values = append(out.Values, v)
		if dated {
			out.Dates = append(out.Dates, raw.Dates[i])
		}
		if outBench != nil {
			outBench.Values = append(outBench.Values, bv)
			// 날짜 없는 벤치마크는 인덱스 정렬이므로 수익률 날짜를 붙인다
			switch {
			case dated:
				outBench.Dates = append(outBench.Dates, raw.Dates[i])
			case bench.HasDates():
				outBench.Dates = append(outBench.Dates, bench.Dates[i])
			}
		}
	}

	if opts.TrimLeadingZeros {
		k := 0
		for k < len(out.Values) && out.Values[k] == 0 {
			k++
		}
		if k > 0 {
			out = out.Slice(k, out.Len())
			if outBench != nil {
				trimmed := outBench.Slice(k, outBench.Len())
				outBench = &trimmed
			}
		}
	}

	if out.Len() == 0 {
		return Series{}, nil, ErrEmptySeries
	}

	if rfp := PeriodicRate(opts.RiskFreeRate, opts.PeriodsPerYear); rfp != 0 {
		excess := make([]float64, out.Len())
		for i, v := range out.Values {
			excess[i] = v - rfp
		}
		out.Values = excess
	}

	return out, outBench, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
