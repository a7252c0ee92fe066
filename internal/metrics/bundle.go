package metrics

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind selects how an entry is formatted
type Kind string

const (
	Percent Kind = "percent" // fraction, rendered x100 with "%"
	Ratio   Kind = "ratio"
	Count   Kind = "count"
	Date    Kind = "date"
	Text    Kind = "text"
)

// Missing is the presentation of any non-finite value
const Missing = "-"

// Entry is one labeled row of the bundle.
// Benchmark holds the same metric evaluated on the benchmark series (NaN when not applicable).
type Entry struct {
	Label     string
	Kind      Kind
	Value     float64
	Benchmark float64
	Text      string // Date / Text kinds
	BenchText string
}

// Display formats the strategy value
func (e Entry) Display() string {
	return format(e.Kind, e.Value, e.Text)
}

// BenchmarkDisplay formats the benchmark value
func (e Entry) BenchmarkDisplay() string {
	return format(e.Kind, e.Benchmark, e.BenchText)
}

func format(kind Kind, v float64, text string) string {
	switch kind {
	case Date, Text:
		if text == "" {
			return Missing
		}
		return text
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing
	}

	switch kind {
	case Percent:
		return fmt.Sprintf("%.2f%%", v*100)
	case Count:
		return fmt.Sprintf("%d", int64(math.Round(v)))
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// Bundle is the ordered metric mapping; insertion order is the presentation order
type Bundle struct {
	Entries      []Entry
	HasBenchmark bool
	Warnings     []string
}

// Get looks up an entry by label
func (b *Bundle) Get(label string) (Entry, bool) {
	for _, e := range b.Entries {
		if e.Label == label {
			return e, true
		}
	}
	return Entry{}, false
}

// Value returns the numeric value of label (NaN when absent)
func (b *Bundle) Value(label string) float64 {
	if e, ok := b.Get(label); ok {
		return e.Value
	}
	return math.NaN()
}

// Labels returns the labels in order
func (b *Bundle) Labels() []string {
	out := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		out[i] = e.Label
	}
	return out
}

func (b *Bundle) add(e Entry) {
	b.Entries = append(b.Entries, e)
}

// =============================================================================
// JSON
// 순서 보존을 위해 map이 아닌 배열로 직렬화, NaN/Inf는 null
// =============================================================================

type entryJSON struct {
	Label            string   `json:"label"`
	Kind             Kind     `json:"kind"`
	Value            *float64 `json:"value"`
	Display          string   `json:"display"`
	Benchmark        *float64 `json:"benchmark,omitempty"`
	BenchmarkDisplay string   `json:"benchmark_display,omitempty"`
	Text             string   `json:"text,omitempty"`
	BenchText        string   `json:"bench_text,omitempty"`
}

type bundleJSON struct {
	Metrics      []entryJSON `json:"metrics"`
	HasBenchmark bool        `json:"has_benchmark"`
	Warnings     []string    `json:"warnings,omitempty"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromPtr(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON encodes the bundle as an ordered array
func (b Bundle) MarshalJSON() ([]byte, error) {
	out := bundleJSON{
		Metrics:      make([]entryJSON, len(b.Entries)),
		HasBenchmark: b.HasBenchmark,
		Warnings:     b.Warnings,
	}
	for i, e := range b.Entries {
		ej := entryJSON{
			Label:   e.Label,
			Kind:    e.Kind,
			Value:   finitePtr(e.Value),
			Display: e.Display(),
			Text:    e.Text,
		}
		if b.HasBenchmark {
			ej.Benchmark = finitePtr(e.Benchmark)
			ej.BenchmarkDisplay = e.BenchmarkDisplay()
			ej.BenchText = e.BenchText
		}
		out.Metrics[i] = ej
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a bundle (null values become NaN)
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var in bundleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.HasBenchmark = in.HasBenchmark
	b.Warnings = in.Warnings
	b.Entries = make([]Entry, len(in.Metrics))
	for i, ej := range in.Metrics {
		b.Entries[i] = Entry{
			Label:     ej.Label,
			Kind:      ej.Kind,
			Value:     fromPtr(ej.Value),
			Benchmark: fromPtr(ej.Benchmark),
			Text:      ej.Text,
			BenchText: ej.BenchText,
		}
	}
	return nil
}
