// Package input loads return (or price) tables from CSV and XLSX files.
package input

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/pkg/httputil"
)

// ErrUnsupportedFormat is returned for file extensions other than .csv and .xlsx
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Options controls how a table is interpreted
type Options struct {
	// Prices treats the value columns as price levels; returns are p_t/p_{t-1}-1 with 0 for the first row
	Prices bool
	// Sheet selects an XLSX sheet by name (first sheet when empty)
	Sheet string
}

var dateLayouts = []string{
	series.DateLayout,
	"2006/01/02",
	"20060102",
	"01-02-06",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Load reads path, dispatching on the file extension
func Load(path string, opts Options) (metrics.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return metrics.Input{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	ext := filepath.Ext(path)
	if ext == "" {
		return metrics.Input{}, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return decode(f, ext, opts)
}

// Fetcher downloads remote tables
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

var _ Fetcher = (*httputil.Client)(nil)

// Open loads a local path or an http(s) URL
func Open(ctx context.Context, f Fetcher, location string, opts Options) (metrics.Input, error) {
	u, err := url.Parse(location)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Load(location, opts)
	}

	body, err := f.Fetch(ctx, location)
	if err != nil {
		return metrics.Input{}, fmt.Errorf("fetch input: %w", err)
	}
	return decode(bytes.NewReader(body), filepath.Ext(u.Path), opts)
}

func decode(r io.Reader, ext string, opts Options) (metrics.Input, error) {
	switch strings.ToLower(ext) {
	case ".csv", ".txt", "":
		return ReadCSV(r, opts)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, opts)
	default:
		return metrics.Input{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ReadCSV parses `date,return[,benchmark]` rows; the date column is optional
func ReadCSV(r io.Reader, opts Options) (metrics.Input, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	rows, err := cr.ReadAll()
	if err != nil {
		return metrics.Input{}, fmt.Errorf("read csv: %w", err)
	}
	return FromRows(rows, opts)
}

// ReadXLSX parses the same layout from a workbook sheet
func ReadXLSX(r io.Reader, opts Options) (metrics.Input, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return metrics.Input{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return metrics.Input{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return FromRows(rows, opts)
}

// FromRows converts a string grid into a returns input.
// A non-numeric first row is treated as a header. Blank value cells are missing (NaN).
func FromRows(rows [][]string, opts Options) (metrics.Input, error) {
	rows = dropBlank(rows)
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return metrics.Input{}, series.ErrEmptySeries
	}

	_, dated := parseDate(rows[0][0])
	first := 0
	if dated {
		first = 1
	}
	width := len(rows[0]) - first
	if width < 1 {
		return metrics.Input{}, fmt.Errorf("row 1: no value column")
	}
	if width > 2 {
		width = 2
	}

	var dates []time.Time
	cols := make([][]float64, width)
	for i, row := range rows {
		if dated {
			d, ok := parseDate(row[0])
			if !ok {
				return metrics.Input{}, fmt.Errorf("row %d: invalid date %q", i+1, row[0])
			}
			dates = append(dates, d)
		}
		for c := 0; c < width; c++ {
			cell := ""
			if first+c < len(row) {
				cell = row[first+c]
			}
			v, err := parseValue(cell)
			if err != nil {
				return metrics.Input{}, fmt.Errorf("row %d column %d: %w", i+1, first+c+1, err)
			}
			cols[c] = append(cols[c], v)
		}
	}

	if opts.Prices {
		for c := range cols {
			cols[c] = priceReturns(cols[c])
		}
	}

	ret, err := series.New(dates, cols[0])
	if err != nil {
		return metrics.Input{}, err
	}
	in := metrics.Input{Returns: ret}
	if width == 2 {
		bench, err := series.New(dates, cols[1])
		if err != nil {
			return metrics.Input{}, err
		}
		in.Benchmark = &bench
	}
	return in, nil
}

// priceReturns converts levels into simple returns; the first row is 0
func priceReturns(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if math.IsNaN(prev) || prev == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = prices[i]/prev - 1
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseValue accepts plain decimals and percent strings ("1.5%")
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return math.NaN(), nil
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSuffix(s, "%")
		scale = 0.01
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v * scale, nil
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	if _, ok := parseDate(row[0]); ok {
		return false
	}
	_, err := parseValue(row[0])
	return err != nil
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
