package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tearsheet/internal/metrics"
)

// metricsCmd prints the metrics bundle of a returns file
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "성과 지표 계산",
	Long: `수익률 시계열의 성과 지표 번들을 계산하여 출력합니다.

벤치마크가 주어지면 Benchmark 열과 Alpha/Beta 등의 상대 지표가 추가됩니다.

Examples:
  go run ./cmd/tearsheet metrics --input returns.csv
  go run ./cmd/tearsheet metrics --input returns.csv --benchmark spy.csv --rf 0.03
  go run ./cmd/tearsheet metrics --input prices.xlsx --prices --mode basic --json`,
	RunE: runMetrics,
}

var (
	metricsSeries  seriesFlags
	metricsOptions optionFlags
	metricsJSON    bool
)

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsSeries.register(metricsCmd)
	metricsOptions.register(metricsCmd)
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "print the bundle as JSON")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	opts, err := metricsOptions.apply(cmd, a.opts)
	if err != nil {
		return err
	}

	in, err := metricsSeries.load(cmd.Context(), a)
	if err != nil {
		return err
	}

	bundle, err := metrics.NewAggregator(a.log).Compute(in, opts)
	if err != nil {
		return fmt.Errorf("compute metrics: %w", err)
	}

	if metricsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}

	printBundle(opts.Title, bundle)
	return nil
}

// printBundle prints the bundle as a Metric / Strategy [/ Benchmark] table
func printBundle(title string, b *metrics.Bundle) {
	period := ""
	if start, ok := b.Get("Start Period"); ok {
		if end, ok := b.Get("End Period"); ok {
			period = start.Display() + " ~ " + end.Display()
		}
	}
	PrintHeader(title, period)

	columns := []string{"Metric", "Strategy"}
	widths := []int{28, 14}
	if b.HasBenchmark {
		columns = append(columns, "Benchmark")
		widths = append(widths, 14)
	}

	PrintTableHeader(columns, widths)
	for _, e := range b.Entries {
		row := []string{e.Label, e.Display()}
		if b.HasBenchmark {
			row = append(row, e.BenchmarkDisplay())
		}
		PrintTableRow(row, widths)
	}

	for _, w := range b.Warnings {
		PrintWarning(w)
	}
}
