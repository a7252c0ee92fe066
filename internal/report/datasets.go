package report

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/tearsheet/internal/drawdown"
	"github.com/wonny/tearsheet/internal/period"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/stats"
)

// DrawdownTableSize is the number of episodes in the drawdown table
const DrawdownTableSize = 30

// Point is one chart observation. Date is zero for undated series.
type Point struct {
	Index int       `json:"index"`
	Date  time.Time `json:"date,omitempty"`
	Value float64   `json:"value"`
}

// Label renders the x-axis label of the point
func (p Point) Label() string {
	if p.Date.IsZero() {
		return fmt.Sprintf("%d", p.Index)
	}
	return p.Date.UTC().Format(series.DateLayout)
}

func points(s series.Series, values []float64, offset int) []Point {
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{Index: i + offset, Value: v}
		if s.HasDates() {
			out[i].Date = s.Dates[i+offset]
		}
	}
	return out
}

// =============================================================================
// Curves
// =============================================================================

// EquityCurve returns the compounded wealth index
func EquityCurve(s series.Series) []Point {
	return points(s, series.Wealth(s.Values), 0)
}

// DrawdownCurve returns the drawdown ratio series
func DrawdownCurve(s series.Series) []Point {
	return points(s, drawdown.Series(s.Values), 0)
}

// =============================================================================
// Tables
// =============================================================================

// YearRow is one row of the yearly-return table
type YearRow struct {
	Year      int     `json:"year"`
	Return    float64 `json:"return"`
	Benchmark float64 `json:"benchmark"` // NaN without a benchmark
}

// Multiplier is Return / Benchmark (NaN when undefined)
func (y YearRow) Multiplier() float64 {
	if math.IsNaN(y.Benchmark) || y.Benchmark == 0 {
		return math.NaN()
	}
	return y.Return / y.Benchmark
}

// YearlyReturns compounds returns (and the benchmark when given) per calendar year
func YearlyReturns(s series.Series, bench *series.Series) ([]YearRow, error) {
	buckets, err := period.Aggregate(s, period.Annual)
	if err != nil {
		return nil, err
	}

	benchByYear := map[int]float64{}
	if bench != nil {
		bb, err := period.Aggregate(*bench, period.Annual)
		if err != nil {
			return nil, fmt.Errorf("benchmark: %w", err)
		}
		for _, b := range bb {
			benchByYear[b.Key.Year()] = b.Return
		}
	}

	rows := make([]YearRow, len(buckets))
	for i, b := range buckets {
		rows[i] = YearRow{Year: b.Key.Year(), Return: b.Return, Benchmark: math.NaN()}
		if v, ok := benchByYear[b.Key.Year()]; ok {
			rows[i].Benchmark = v
		}
	}
	return rows, nil
}

// DrawdownRow is one row of the worst-drawdowns table
type DrawdownRow struct {
	Rank         int     `json:"rank"`
	Start        string  `json:"start"`
	Valley       string  `json:"valley"`
	End          string  `json:"end"` // empty when unrecovered
	Days         int     `json:"days"`
	DepthPercent float64 `json:"depth_percent"`
}

// DrawdownTable ranks the deepest n episodes
func DrawdownTable(s series.Series, episodes []drawdown.Episode, n int) []DrawdownRow {
	top := drawdown.Top(episodes, n)
	rows := make([]DrawdownRow, len(top))
	for i, ep := range top {
		rows[i] = DrawdownRow{
			Rank:         i + 1,
			Start:        stamp(s, ep.Start),
			Valley:       stamp(s, ep.Valley),
			Days:         ep.Days,
			DepthPercent: ep.MaxDrawdown * 100,
		}
		if ep.Recovered {
			rows[i].End = stamp(s, ep.End)
		}
	}
	return rows
}

func stamp(s series.Series, i int) string {
	if s.HasDates() {
		return s.Dates[i].UTC().Format(series.DateLayout)
	}
	return fmt.Sprintf("%d", i)
}

// =============================================================================
// Distribution
// =============================================================================

// Histogram is an equal-width binning; Edges has len(Counts)+1 entries
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// NewHistogram bins values into bins equal-width intervals; the last bin is closed
func NewHistogram(values []float64, bins int) (Histogram, error) {
	if bins < 1 {
		return Histogram{}, fmt.Errorf("histogram bins must be >= 1, got %d", bins)
	}
	if len(values) == 0 {
		return Histogram{}, series.ErrEmptySeries
	}

	lo, hi := stats.Worst(values), stats.Best(values)
	if lo == hi {
		// 모든 값이 같으면 단일 구간
		return Histogram{Edges: []float64{lo, hi}, Counts: []int{len(values)}}, nil
	}

	width := (hi - lo) / float64(bins)
	h := Histogram{
		Edges:  make([]float64, bins+1),
		Counts: make([]int, bins),
	}
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[bins] = hi

	for _, v := range values {
		k := int((v - lo) / width)
		if k >= bins {
			k = bins - 1
		}
		h.Counts[k]++
	}
	return h, nil
}

// =============================================================================
// Rolling statistics
// =============================================================================

// rolling applies fn to every trailing window; the first point sits at index window-1
func rolling(s series.Series, values []float64, window int, fn func([]float64) float64) ([]Point, error) {
	if window < 2 || window > len(values) {
		return nil, fmt.Errorf("%w: window %d over %d observations", series.ErrInsufficientData, window, len(values))
	}
	out := make([]float64, 0, len(values)-window+1)
	for end := window; end <= len(values); end++ {
		out = append(out, fn(values[end-window:end]))
	}
	return points(s, out, window-1), nil
}

// RollingVolatility is the annualized volatility over a trailing window
func RollingVolatility(s series.Series, window, periodsPerYear int) ([]Point, error) {
	return rolling(s, s.Values, window, func(w []float64) float64 {
		return stats.Volatility(w, periodsPerYear)
	})
}

// RollingSharpe runs over excess returns aligned with s
func RollingSharpe(s series.Series, excess []float64, window, periodsPerYear int) ([]Point, error) {
	return rolling(s, excess, window, func(w []float64) float64 {
		return stats.Sharpe(w, periodsPerYear)
	})
}

// RollingSortino runs over excess returns aligned with s
func RollingSortino(s series.Series, excess []float64, window, periodsPerYear int) ([]Point, error) {
	return rolling(s, excess, window, func(w []float64) float64 {
		return stats.Sortino(w, periodsPerYear)
	})
}

// RollingBeta regresses s on an index-aligned benchmark over a trailing window
func RollingBeta(s, bench series.Series, window int) ([]Point, error) {
	if s.Len() != bench.Len() {
		return nil, fmt.Errorf("%w: returns=%d benchmark=%d", series.ErrShapeMismatch, s.Len(), bench.Len())
	}
	if window < 2 || window > s.Len() {
		return nil, fmt.Errorf("%w: window %d over %d observations", series.ErrInsufficientData, window, s.Len())
	}

	out := make([]float64, 0, s.Len()-window+1)
	for end := window; end <= s.Len(); end++ {
		beta, _ := stats.Beta(s.Values[end-window:end], bench.Values[end-window:end])
		out = append(out, beta)
	}
	return points(s, out, window-1), nil
}

// =============================================================================
// Monthly heatmap
// =============================================================================

// Heatmap is a year x month grid of compounded monthly returns (NaN where absent)
type Heatmap struct {
	Years  []int         `json:"years"`
	Values [][12]float64 `json:"-"`
}

// MarshalJSON encodes missing months as null
func (h Heatmap) MarshalJSON() ([]byte, error) {
	grid := make([][12]*float64, len(h.Values))
	for y, row := range h.Values {
		for m, v := range row {
			if !math.IsNaN(v) {
				v := v
				grid[y][m] = &v
			}
		}
	}
	return json.Marshal(struct {
		Years  []int          `json:"years"`
		Values [][12]*float64 `json:"values"`
	}{h.Years, grid})
}

// At returns the return of year index y and month (1-12)
func (h Heatmap) At(y int, month time.Month) float64 {
	return h.Values[y][month-1]
}

// MonthlyHeatmap groups monthly buckets by year, ascending
func MonthlyHeatmap(s series.Series) (Heatmap, error) {
	buckets, err := period.Aggregate(s, period.Monthly)
	if err != nil {
		return Heatmap{}, err
	}

	byYear := map[int]*[12]float64{}
	for _, b := range buckets {
		y := b.Key.Year()
		row, ok := byYear[y]
		if !ok {
			row = &[12]float64{}
			for m := range row {
				row[m] = math.NaN()
			}
			byYear[y] = row
		}
		row[b.Key.Month()-1] = b.Return
	}

	h := Heatmap{}
	for y := range byYear {
		h.Years = append(h.Years, y)
	}
	sort.Ints(h.Years)
	for _, y := range h.Years {
		h.Values = append(h.Values, *byYear[y])
	}
	return h, nil
}
