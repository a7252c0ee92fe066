package series

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date format for labels and inputs
const DateLayout = "2006-01-02"

// Series is an ordered sequence of periodic simple returns.
// ⭐ SSOT: 모든 분석 레이어가 사용하는 수익률 시계열 표현
// Dates is optional; when present it has the same length as Values and is strictly increasing.
type Series struct {
	Dates  []time.Time `json:"dates,omitempty"`
	Values []float64   `json:"values"`
}

// New builds a validated Series. dates may be nil.
func New(dates []time.Time, values []float64) (Series, error) {
	if dates != nil && len(dates) != len(values) {
		return Series{}, fmt.Errorf("%w: %d dates, %d values", ErrShapeMismatch, len(dates), len(values))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return Series{}, fmt.Errorf("%w: %s follows %s", ErrUnsorted,
				dates[i].Format(DateLayout), dates[i-1].Format(DateLayout))
		}
	}
	return Series{Dates: dates, Values: values}, nil
}

// FromValues builds an undated Series
func FromValues(values []float64) Series {
	return Series{Values: values}
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.Values)
}

// HasDates reports whether the series carries timestamps
func (s Series) HasDates() bool {
	return len(s.Dates) > 0 && len(s.Dates) == len(s.Values)
}

// First returns the first timestamp (zero time when undated)
func (s Series) First() time.Time {
	if !s.HasDates() {
		return time.Time{}
	}
	return s.Dates[0]
}

// Last returns the last timestamp (zero time when undated)
func (s Series) Last() time.Time {
	if !s.HasDates() {
		return time.Time{}
	}
	return s.Dates[len(s.Dates)-1]
}

// Slice returns the half-open index window [from, to)
func (s Series) Slice(from, to int) Series {
	if from < 0 {
		from = 0
	}
	if to > s.Len() {
		to = s.Len()
	}
	if from >= to {
		return Series{}
	}
	out := Series{Values: s.Values[from:to]}
	if s.HasDates() {
		out.Dates = s.Dates[from:to]
	}
	return out
}

// Since returns the observations dated on or after t.
// Undated series are returned unchanged.
func (s Series) Since(t time.Time) Series {
	if !s.HasDates() {
		return s
	}
	for i, d := range s.Dates {
		if !d.Before(t) {
			return s.Slice(i, s.Len())
		}
	}
	return Series{}
}

// CalendarDays returns whole calendar days between the first and last stamps
func (s Series) CalendarDays() int {
	if !s.HasDates() {
		return 0
	}
	return DaysBetween(s.Dates[0], s.Dates[len(s.Dates)-1])
}

// DaysBetween counts calendar days from a to b using UTC dates
func DaysBetween(a, b time.Time) int {
	ua := truncateDay(a)
	ub := truncateDay(b)
	return int(ub.Sub(ua).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Wealth returns the compounded wealth index W_i = prod_{k<=i}(1 + r_k)
func Wealth(values []float64) []float64 {
	out := make([]float64, len(values))
	w := 1.0
	for i, r := range values {
		w *= 1 + r
		out[i] = w
	}
	return out
}

// Align keeps only the dates present in both series, preserving order.
// Undated inputs must already have equal length.
func Align(a, b Series) (Series, Series, error) {
	if !a.HasDates() || !b.HasDates() {
		if a.Len() != b.Len() {
			return Series{}, Series{}, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, a.Len(), b.Len())
		}
		return a, b, nil
	}

	idx := make(map[int64]int, b.Len())
	for i, d := range b.Dates {
		idx[truncateDay(d).Unix()] = i
	}

	var outA, outB Series
	for i, d := range a.Dates {
		j, ok := idx[truncateDay(d).Unix()]
		if !ok {
			continue
		}
		outA.Dates = append(outA.Dates, a.Dates[i])
		outA.Values = append(outA.Values, a.Values[i])
		outB.Dates = append(outB.Dates, b.Dates[j])
		outB.Values = append(outB.Values, b.Values[j])
	}

	if outA.Len() == 0 {
		return Series{}, Series{}, ErrEmptySeries
	}
	return outA, outB, nil
}
