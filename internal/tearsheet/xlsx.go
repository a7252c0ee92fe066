package tearsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/tearsheet/internal/report"
)

type sheet struct {
	name string
	rows [][]interface{}
}

// WriteXLSX exports the report tables as a workbook.
// Sheets: Metrics, EOY Returns, Drawdowns and Monthly Returns (dated input only).
func WriteXLSX(w io.Writer, rep *report.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	sheets := []sheet{
		{"Metrics", metricRows(rep)},
		{"Drawdowns", drawdownRows(rep)},
	}
	if len(rep.Yearly) > 0 {
		sheets = append(sheets, sheet{"EOY Returns", yearlyRows(rep)})
	}
	if rep.Heatmap != nil {
		sheets = append(sheets, sheet{"Monthly Returns", heatmapRows(rep.Heatmap)})
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return err
		}

		for r, row := range sh.rows {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", sh.name, r+1, err)
			}
		}
		if err := f.SetRowStyle(sh.name, 1, 1, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func metricRows(rep *report.Report) [][]interface{} {
	header := []interface{}{"Metric", "Strategy"}
	if rep.Metrics.HasBenchmark {
		header = append(header, "Benchmark")
	}
	rows := [][]interface{}{header}
	for _, e := range rep.Metrics.Entries {
		row := []interface{}{e.Label, e.Display()}
		if rep.Metrics.HasBenchmark {
			row = append(row, e.BenchmarkDisplay())
		}
		rows = append(rows, row)
	}
	rows = append(rows, []interface{}{}, []interface{}{"Generated", rep.GeneratedAt.Format(time.RFC3339)})
	return rows
}

func yearlyRows(rep *report.Report) [][]interface{} {
	rows := [][]interface{}{{"Year", "Return", "Benchmark", "Multiplier"}}
	for _, y := range rep.Yearly {
		rows = append(rows, []interface{}{y.Year, cellValue(y.Return), cellValue(y.Benchmark), cellValue(y.Multiplier())})
	}
	return rows
}

func drawdownRows(rep *report.Report) [][]interface{} {
	rows := [][]interface{}{{"Rank", "Started", "Valley", "Recovered", "Drawdown %", "Days"}}
	for _, d := range rep.Drawdowns {
		rows = append(rows, []interface{}{d.Rank, d.Start, d.Valley, orDash(d.End), d.DepthPercent, d.Days})
	}
	return rows
}

func heatmapRows(h *report.Heatmap) [][]interface{} {
	header := []interface{}{"Year"}
	for _, m := range monthNames {
		header = append(header, m)
	}
	rows := [][]interface{}{header}
	for i, year := range h.Years {
		row := []interface{}{year}
		for _, v := range h.Values[i] {
			row = append(row, cellValue(v))
		}
		rows = append(rows, row)
	}
	return rows
}

// cellValue leaves non-finite values blank
func cellValue(v float64) interface{} {
	if !finite(v) {
		return nil
	}
	return v
}
