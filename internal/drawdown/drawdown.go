package drawdown

import (
	"sort"
	"time"

	"github.com/wonny/tearsheet/internal/series"
)

// Episode is one peak-to-trough-to-recovery drawdown.
// Indices refer to the source series. Days is calendar days between start and end
// when the series is dated, index count otherwise.
type Episode struct {
	Start        int       `json:"start"`
	Valley       int       `json:"valley"`
	End          int       `json:"end"`
	StartDate    time.Time `json:"start_date,omitempty"`
	ValleyDate   time.Time `json:"valley_date,omitempty"`
	EndDate      time.Time `json:"end_date,omitempty"`
	Days         int       `json:"days"`
	MaxDrawdown  float64   `json:"max_drawdown"`  // <= 0
	RecoveryDays *int      `json:"recovery_days"` // nil when unrecovered
	Recovered    bool      `json:"recovered"`
}

// Analysis bundles the drawdown series and its episodes
type Analysis struct {
	Drawdowns []float64 `json:"drawdowns"`
	Episodes  []Episode `json:"episodes"`
}

// Analyze runs the full engine over a prepared series
// ⭐ SSOT: 드로다운 계산은 이 패키지에서만
func Analyze(s series.Series) Analysis {
	dd := Series(s.Values)
	return Analysis{
		Drawdowns: dd,
		Episodes:  Episodes(dd, s.Dates),
	}
}

// Series converts returns to drawdown ratios d_i = W_i / P_i - 1.
// The running peak starts at W_0, so d_0 is always 0.
func Series(returns []float64) []float64 {
	dd := make([]float64, len(returns))
	if len(returns) == 0 {
		return dd
	}

	wealth := series.Wealth(returns)
	peak := wealth[0]
	for i, w := range wealth {
		if w > peak {
			peak = w
		}
		d := w/peak - 1
		if d > 0 {
			d = 0
		}
		dd[i] = d
	}
	return dd
}

type state int

const (
	flat state = iota
	inDrawdown
)

// Episodes partitions a drawdown series into episodes.
// dates may be nil; when present it must match dd in length.
func Episodes(dd []float64, dates []time.Time) []Episode {
	dated := len(dates) == len(dd) && len(dd) > 0
	episodes := make([]Episode, 0)

	st := flat
	var cur Episode

	for i, d := range dd {
		switch st {
		case flat:
			if d < 0 {
				// d[i-1] == 0 holds here: either i == 0 or the previous reading closed an episode
				cur = Episode{Start: i, Valley: i, MaxDrawdown: d}
				st = inDrawdown
			}
		case inDrawdown:
			if d < cur.MaxDrawdown {
				cur.Valley = i
				cur.MaxDrawdown = d
			}
			if d == 0 {
				cur.End = i
				cur.Recovered = true
				episodes = append(episodes, finish(cur, dates, dated))
				st = flat
			}
		}
	}

	if st == inDrawdown {
		cur.End = len(dd) - 1
		cur.Recovered = false
		episodes = append(episodes, finish(cur, dates, dated))
	}

	return episodes
}

func finish(ep Episode, dates []time.Time, dated bool) Episode {
	if dated {
		ep.StartDate = dates[ep.Start]
		ep.ValleyDate = dates[ep.Valley]
		ep.EndDate = dates[ep.End]
		ep.Days = series.DaysBetween(dates[ep.Start], dates[ep.End])
	} else {
		ep.Days = ep.End - ep.Start
	}

	if ep.Recovered {
		var rec int
		if dated {
			rec = series.DaysBetween(dates[ep.Valley], dates[ep.End])
		} else {
			rec = ep.End - ep.Valley
		}
		ep.RecoveryDays = &rec
	}
	return ep
}

// Top returns up to n episodes ordered by depth (deepest first).
// Ties keep chronological order.
func Top(episodes []Episode, n int) []Episode {
	sorted := make([]Episode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MaxDrawdown < sorted[j].MaxDrawdown
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Max returns the minimum of the drawdown series (0 for empty)
func Max(dd []float64) float64 {
	m := 0.0
	for _, d := range dd {
		if d < m {
			m = d
		}
	}
	return m
}
