package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tearsheet/internal/drawdown"
	"github.com/wonny/tearsheet/internal/report"
	"github.com/wonny/tearsheet/internal/series"
)

// drawdownsCmd prints the worst drawdown episodes
var drawdownsCmd = &cobra.Command{
	Use:   "drawdowns",
	Short: "최악의 드로다운 구간 출력",
	Long: `수익률 시계열의 드로다운 구간을 깊이 순으로 출력합니다.

미회복 구간은 Recovered 열이 "-" 로 표시됩니다.

Examples:
  go run ./cmd/tearsheet drawdowns --input returns.csv
  go run ./cmd/tearsheet drawdowns --input prices.csv --prices --top 5`,
	RunE: runDrawdowns,
}

var (
	drawdownsSeries  seriesFlags
	drawdownsOptions optionFlags
	drawdownsTop     int
)

func init() {
	rootCmd.AddCommand(drawdownsCmd)

	drawdownsSeries.register(drawdownsCmd)
	drawdownsOptions.register(drawdownsCmd)
	drawdownsCmd.Flags().IntVar(&drawdownsTop, "top", 10, "number of episodes")
}

func runDrawdowns(cmd *cobra.Command, args []string) error {
	if drawdownsTop < 1 {
		return fmt.Errorf("--top must be >= 1, got %d", drawdownsTop)
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	opts, err := drawdownsOptions.apply(cmd, a.opts)
	if err != nil {
		return err
	}

	in, err := drawdownsSeries.load(cmd.Context(), a)
	if err != nil {
		return err
	}

	prep := opts.Prepare()
	prep.RiskFreeRate = 0
	s, err := series.Prepare(in.Returns, prep)
	if err != nil {
		return fmt.Errorf("prepare returns: %w", err)
	}

	an := drawdown.Analyze(s)
	rows := report.DrawdownTable(s, an.Episodes, drawdownsTop)

	PrintHeader(opts.Title+" - Worst Drawdowns", "")
	if len(rows) == 0 {
		PrintInfo("No drawdowns")
		return nil
	}

	widths := []int{4, 12, 12, 12, 10, 6}
	PrintTableHeader([]string{"#", "Started", "Valley", "Recovered", "Drawdown", "Days"}, widths)
	for _, r := range rows {
		end := r.End
		if end == "" {
			end = "-"
		}
		PrintTableRow([]string{
			fmt.Sprintf("%d", r.Rank),
			r.Start,
			r.Valley,
			end,
			fmt.Sprintf("%.2f%%", r.DepthPercent),
			fmt.Sprintf("%d", r.Days),
		}, widths)
	}
	return nil
}
