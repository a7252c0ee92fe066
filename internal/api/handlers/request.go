package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/series"
)

// SeriesRequest is the body of POST /api/metrics and POST /api/tearsheet.
// null elements are missing observations.
type SeriesRequest struct {
	Dates     []string        `json:"dates,omitempty"`
	Returns   []*float64      `json:"returns"`
	Benchmark []*float64      `json:"benchmark,omitempty"`
	Options   json.RawMessage `json:"options,omitempty"`
}

// Input converts the request into a metrics input
func (req SeriesRequest) Input() (metrics.Input, error) {
	var dates []time.Time
	if len(req.Dates) > 0 {
		dates = make([]time.Time, len(req.Dates))
		for i, d := range req.Dates {
			t, err := time.Parse(series.DateLayout, d)
			if err != nil {
				return metrics.Input{}, fmt.Errorf("dates[%d]: invalid date %q", i, d)
			}
			dates[i] = t
		}
	}

	ret, err := series.New(dates, floats(req.Returns))
	if err != nil {
		return metrics.Input{}, err
	}
	in := metrics.Input{Returns: ret}

	if req.Benchmark != nil {
		var bdates []time.Time
		if dates != nil && len(req.Benchmark) == len(dates) {
			bdates = dates
		}
		bench, err := series.New(bdates, floats(req.Benchmark))
		if err != nil {
			return metrics.Input{}, err
		}
		in.Benchmark = &bench
	}
	return in, nil
}

// ResolveOptions overlays the request options on defaults
func (req SeriesRequest) ResolveOptions(defaults reportconfig.Options) (reportconfig.Options, error) {
	opts := defaults
	if len(req.Options) > 0 && string(req.Options) != "null" {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			return reportconfig.Options{}, fmt.Errorf("invalid options: %w", err)
		}
	}
	return opts, reportconfig.Validate(opts)
}

func floats(in []*float64) []float64 {
	out := make([]float64, len(in))
	for i, p := range in {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	return out
}
