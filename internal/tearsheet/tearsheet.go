package tearsheet

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/wonny/tearsheet/internal/report"
	"github.com/wonny/tearsheet/internal/series"
)

//go:embed templates/tearsheet.html.tmpl
var templateFS embed.FS

var page = template.Must(template.ParseFS(templateFS, "templates/tearsheet.html.tmpl"))

var monthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type metricRow struct {
	Label, Value, Bench string
}

type yearRow struct {
	Year                             int
	Return, Bench, Multiplier, Class string
}

type drawdownRow struct {
	Rank               int
	Start, Valley, End string
	Depth              string
	Days               int
}

type cell struct {
	Text, Class string
}

type heatmapRow struct {
	Year  int
	Cells []cell
}

type heatmapView struct {
	Months [12]string
	Rows   []heatmapRow
}

type view struct {
	Title, Period, Generated string
	HasBenchmark             bool
	Metrics                  []metricRow
	Yearly                   []yearRow
	Drawdowns                []drawdownRow
	Heatmap                  *heatmapView
	Charts                   []Chart
	Warnings, Notes          []string
}

// Render writes a self-contained HTML tearsheet for rep
func Render(w io.Writer, rep *report.Report) error {
	v, err := newView(rep)
	if err != nil {
		return err
	}
	if err := page.Execute(w, v); err != nil {
		return fmt.Errorf("execute tearsheet template: %w", err)
	}
	return nil
}

func newView(rep *report.Report) (*view, error) {
	charts, err := renderCharts(rep)
	if err != nil {
		return nil, err
	}

	v := &view{
		Title:        rep.Title,
		Generated:    rep.GeneratedAt.Format("2006-01-02 15:04 UTC"),
		HasBenchmark: rep.Metrics.HasBenchmark,
		Charts:       charts,
		Warnings:     rep.Metrics.Warnings,
		Notes:        rep.Notes,
	}

	v.Period = fmt.Sprintf("%d observations", len(rep.Equity))
	if n := len(rep.Equity); n > 0 && !rep.Equity[0].Date.IsZero() {
		v.Period = fmt.Sprintf("%s ~ %s", rep.Equity[0].Date.Format(series.DateLayout), rep.Equity[n-1].Date.Format(series.DateLayout))
	}

	for _, e := range rep.Metrics.Entries {
		v.Metrics = append(v.Metrics, metricRow{Label: e.Label, Value: e.Display(), Bench: e.BenchmarkDisplay()})
	}

	for _, y := range rep.Yearly {
		v.Yearly = append(v.Yearly, yearRow{
			Year:       y.Year,
			Return:     pct(y.Return),
			Bench:      pct(y.Benchmark),
			Multiplier: ratio(y.Multiplier()),
			Class:      sign(y.Return),
		})
	}

	for _, d := range rep.Drawdowns {
		v.Drawdowns = append(v.Drawdowns, drawdownRow{
			Rank:   d.Rank,
			Start:  d.Start,
			Valley: d.Valley,
			End:    orDash(d.End),
			Depth:  fmt.Sprintf("%.2f%%", d.DepthPercent),
			Days:   d.Days,
		})
	}

	if rep.Heatmap != nil {
		hv := &heatmapView{Months: monthNames}
		for i, year := range rep.Heatmap.Years {
			row := heatmapRow{Year: year}
			for _, r := range rep.Heatmap.Values[i] {
				row.Cells = append(row.Cells, cell{Text: pctPlain(r), Class: sign(r)})
			}
			hv.Rows = append(hv.Rows, row)
		}
		v.Heatmap = hv
	}

	return v, nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func pct(x float64) string {
	if !finite(x) {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", x*100)
}

func pctPlain(x float64) string {
	if !finite(x) {
		return ""
	}
	return fmt.Sprintf("%.2f", x*100)
}

func ratio(x float64) string {
	if !finite(x) {
		return "-"
	}
	return fmt.Sprintf("%.2f", x)
}

func sign(x float64) string {
	switch {
	case !finite(x):
		return ""
	case x >= 0:
		return "pos"
	default:
		return "neg"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
