package period

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/tearsheet/internal/series"
)

// Period is a calendar bucketing frequency
type Period string

const (
	Daily     Period = "D"
	Weekly    Period = "W"
	Monthly   Period = "M"
	Quarterly Period = "Q"
	Annual    Period = "A"
)

// Parse converts a period code (D/W/M/Q/A, case-insensitive; Y accepted for A)
func Parse(code string) (Period, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "D":
		return Daily, nil
	case "W":
		return Weekly, nil
	case "M":
		return Monthly, nil
	case "Q":
		return Quarterly, nil
	case "A", "Y":
		return Annual, nil
	}
	return "", fmt.Errorf("unknown period %q", code)
}

// Bucket is one aggregated calendar interval
type Bucket struct {
	Key    time.Time `json:"key"` // UTC start of [start, next)
	Return float64   `json:"return"`
	Count  int       `json:"count"`
}

// Label renders the bucket key at the period's granularity
func (b Bucket) Label(p Period) string {
	switch p {
	case Monthly:
		return b.Key.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", b.Key.Year(), (int(b.Key.Month())-1)/3+1)
	case Annual:
		return b.Key.Format("2006")
	default:
		return b.Key.Format(series.DateLayout)
	}
}

// KeyOf returns the UTC start of the interval containing t.
// ⭐ 모든 버킷 키는 UTC 로 계산 (월초 경계 드리프트 방지)
func KeyOf(t time.Time, p Period) time.Time {
	u := t.UTC()
	y, m, d := u.Date()
	switch p {
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case Weekly:
		// ISO week: Monday start
		offset := (int(u.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		qm := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}

// Aggregate compounds s into calendar buckets: prod(1+r) - 1 per bucket, chronological.
func Aggregate(s series.Series, p Period) ([]Bucket, error) {
	if s.Len() == 0 {
		return nil, series.ErrEmptySeries
	}
	if !s.HasDates() {
		return nil, series.ErrNoDates
	}

	buckets := make([]Bucket, 0)
	var cur *Bucket
	var first, growth float64

	flush := func() {
		if cur.Count == 1 {
			// 단일 원소 버킷은 원래 값을 그대로 유지
			cur.Return = first
		} else {
			cur.Return = growth - 1
		}
		buckets = append(buckets, *cur)
	}

	for i, r := range s.Values {
		key := KeyOf(s.Dates[i], p)
		if cur == nil || !cur.Key.Equal(key) {
			if cur != nil {
				flush()
			}
			cur = &Bucket{Key: key}
			first, growth = r, 1.0
		}
		growth *= 1 + r
		cur.Count++
	}
	flush()

	return buckets, nil
}

// Returns extracts the bucket returns
func Returns(buckets []Bucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Return
	}
	return out
}

// Labels extracts the bucket labels
func Labels(buckets []Bucket, p Period) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.Label(p)
	}
	return out
}

// AggregateValues is Aggregate returning only the bucket returns
func AggregateValues(s series.Series, p Period) ([]float64, error) {
	buckets, err := Aggregate(s, p)
	if err != nil {
		return nil, err
	}
	return Returns(buckets), nil
}
