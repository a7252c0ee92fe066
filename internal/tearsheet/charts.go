package tearsheet

import (
	"fmt"
	"html/template"
	"math"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/wonny/tearsheet/internal/report"
)

const (
	chartWidth  = 900
	chartHeight = 320
)

// Chart is one rendered inline SVG
type Chart struct {
	Title string
	SVG   template.HTML
}

// renderCharts draws every chart the report has data for
func renderCharts(rep *report.Report) ([]Chart, error) {
	var out []Chart

	add := func(title string, svg []byte, err error) error {
		if err != nil {
			return fmt.Errorf("render %s chart: %w", title, err)
		}
		out = append(out, Chart{Title: title, SVG: template.HTML(svg)}) // go-charts 출력 SVG
		return nil
	}

	if len(rep.Equity) == 0 {
		return out, nil
	}

	equity := [][]float64{values(rep.Equity)}
	legend := []string{"Strategy"}
	if len(rep.BenchEquity) == len(rep.Equity) {
		equity = append(equity, values(rep.BenchEquity))
		legend = append(legend, "Benchmark")
	}
	svg, err := lineSVG("Cumulative Returns", labels(rep.Equity), equity, legend)
	if err := add("Cumulative Returns", svg, err); err != nil {
		return nil, err
	}

	svg, err = lineSVG("Underwater", labels(rep.Underwater), [][]float64{values(rep.Underwater)}, nil)
	if err := add("Underwater", svg, err); err != nil {
		return nil, err
	}

	if len(rep.Histogram.Counts) > 0 {
		svg, err = histogramSVG(rep.Histogram)
		if err := add("Return Distribution", svg, err); err != nil {
			return nil, err
		}
	}

	rollingCharts := []struct {
		title string
		pts   []report.Point
	}{
		{"Rolling Volatility", rep.RollingVol},
		{"Rolling Sharpe", rep.RollingSR},
		{"Rolling Sortino", rep.RollingSort},
		{"Rolling Beta", rep.RollingBeta},
	}
	for _, rc := range rollingCharts {
		if len(rc.pts) < 2 {
			continue
		}
		svg, err = lineSVG(rc.title, labels(rc.pts), [][]float64{values(rc.pts)}, nil)
		if err := add(rc.title, svg, err); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func lineSVG(title string, xLabels []string, data [][]float64, legend []string) ([]byte, error) {
	opts := []charts.OptionFunc{
		charts.SVGTypeOption(),
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	}
	if len(legend) > 0 {
		opts = append(opts, charts.LegendLabelsOptionFunc(legend, charts.PositionRight))
	}

	p, err := charts.LineRender(data, opts...)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

func histogramSVG(h report.Histogram) ([]byte, error) {
	xLabels := make([]string, len(h.Counts))
	counts := make([]float64, len(h.Counts))
	for i, c := range h.Counts {
		xLabels[i] = fmt.Sprintf("%.1f%%", (h.Edges[i]+h.Edges[i+1])/2*100)
		counts[i] = float64(c)
	}

	p, err := charts.BarRender(
		[][]float64{counts},
		charts.SVGTypeOption(),
		charts.TitleTextOptionFunc("Return Distribution"),
		charts.XAxisDataOptionFunc(xLabels),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// splitNumber keeps roughly six x-axis ticks
func splitNumber(n int) int {
	if n <= 30 {
		if s := n / 3; s >= 3 {
			return s
		}
		return 3
	}
	return 6
}

// values carries the last finite value over NaN/Inf points (0 before the first one)
func values(pts []report.Point) []float64 {
	out := make([]float64, len(pts))
	last := 0.0
	for i, p := range pts {
		if !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) {
			last = p.Value
		}
		out[i] = last
	}
	return out
}

func labels(pts []report.Point) []string {
	out := make([]string, len(pts))
	for i, p := range pts {
		out[i] = p.Label()
	}
	return out
}
