package stats

import (
	"math"
	"time"

	"github.com/wonny/tearsheet/internal/series"
)

// DaysPerYear is the calendar-day year used by CAGR
const DaysPerYear = 365.0

// =============================================================================
// Return Calculations
// =============================================================================

// Comp returns the compounded total return prod(1+r) - 1
func Comp(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	growth := 1.0
	for _, v := range r {
		growth *= 1 + v
	}
	return growth - 1
}

// CAGR annualizes the compounded return.
// Dated: (1+total)^(365/days) - 1 over the calendar span.
// Undated: (1+total)^(P/n) - 1.
func CAGR(r []float64, dates []time.Time, periodsPerYear int) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	total := Comp(r)

	var exponent float64
	if len(dates) == len(r) {
		days := series.DaysBetween(dates[0], dates[len(dates)-1])
		if days <= 0 {
			return math.NaN()
		}
		exponent = DaysPerYear / float64(days)
	} else {
		exponent = float64(periodsPerYear) / float64(len(r))
	}

	if 1+total < 0 {
		return math.NaN()
	}
	return math.Pow(1+total, exponent) - 1
}

// GeometricMean is the expected per-period return (prod(1+r))^(1/n) - 1
func GeometricMean(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	growth := Comp(r) + 1
	if growth <= 0 {
		return math.NaN()
	}
	return math.Pow(growth, 1/float64(len(r))) - 1
}

// Best returns the maximum return
func Best(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	m := r[0]
	for _, v := range r[1:] {
		m = math.Max(m, v)
	}
	return m
}

// Worst returns the minimum return
func Worst(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	m := r[0]
	for _, v := range r[1:] {
		m = math.Min(m, v)
	}
	return m
}

// ConsecutiveWins returns the longest run of r > 0
func ConsecutiveWins(r []float64) int {
	return longestRun(r, func(v float64) bool { return v > 0 })
}

// ConsecutiveLosses returns the longest run of r < 0
func ConsecutiveLosses(r []float64) int {
	return longestRun(r, func(v float64) bool { return v < 0 })
}

func longestRun(r []float64, match func(float64) bool) int {
	best, cur := 0, 0
	for _, v := range r {
		if match(v) {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

// Exposure is the share of non-zero periods, rounded up to whole percent
func Exposure(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	active := len(filter(r, func(v float64) bool { return v != 0 }))
	return math.Ceil(float64(active)/float64(len(r))*100) / 100
}

// =============================================================================
// Trade-style Statistics
// =============================================================================

// WinRate is |{r>0}| / |{r!=0}| (NaN when every period is flat)
func WinRate(r []float64) float64 {
	wins, active := 0, 0
	for _, v := range r {
		if v != 0 {
			active++
		}
		if v > 0 {
			wins++
		}
	}
	if active == 0 {
		return math.NaN()
	}
	return float64(wins) / float64(active)
}

// AvgWin is the mean of positive returns
func AvgWin(r []float64) float64 {
	return Mean(filter(r, func(v float64) bool { return v > 0 }))
}

// AvgLoss is the mean of negative returns
func AvgLoss(r []float64) float64 {
	return Mean(filter(r, func(v float64) bool { return v < 0 }))
}

// ProfitFactor is sum(max(r,0)) / |sum(min(r,0))|.
// No losses: +Inf when there are gains, NaN otherwise.
func ProfitFactor(r []float64) float64 {
	gains := sum(filter(r, func(v float64) bool { return v > 0 }))
	losses := math.Abs(sum(filter(r, func(v float64) bool { return v < 0 })))
	return safeRatio(gains, losses)
}

// PayoffRatio is avg(win) / |avg(loss)|
func PayoffRatio(r []float64) float64 {
	win, loss := AvgWin(r), AvgLoss(r)
	if math.IsNaN(win) || math.IsNaN(loss) || loss == 0 {
		return math.NaN()
	}
	return win / math.Abs(loss)
}

// GainToPain is sum(r) / |sum(min(r,0))|
func GainToPain(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	losses := math.Abs(sum(filter(r, func(v float64) bool { return v < 0 })))
	return safeRatio(sum(r), losses)
}

// CommonSenseRatio is ProfitFactor * TailRatio
func CommonSenseRatio(r []float64) float64 {
	return ProfitFactor(r) * TailRatio(r)
}

// CPCIndex is ProfitFactor * WinRate * PayoffRatio
func CPCIndex(r []float64) float64 {
	return ProfitFactor(r) * WinRate(r) * PayoffRatio(r)
}

// safeRatio divides, mapping x/0 to +Inf (x>0), -Inf (x<0) or NaN (x==0)
func safeRatio(num, den float64) float64 {
	if den == 0 {
		switch {
		case num > 0:
			return math.Inf(1)
		case num < 0:
			return math.Inf(-1)
		default:
			return math.NaN()
		}
	}
	return num / den
}
