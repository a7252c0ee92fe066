package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/report"
	"github.com/wonny/tearsheet/internal/tearsheet"
)

// reportCmd renders a full tearsheet to a file
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Tearsheet 리포트 생성 (HTML/XLSX)",
	Long: `수익률 시계열로부터 tearsheet 리포트를 생성합니다.

출력 형식은 --format 또는 출력 파일 확장자로 결정됩니다.
  .html : 차트 + 지표 + 월간 히트맵 + 드로다운 표
  .xlsx : Metrics / Drawdowns / EOY Returns / Monthly Returns 시트

Examples:
  go run ./cmd/tearsheet report --input returns.csv --out tearsheet.html
  go run ./cmd/tearsheet report --input returns.csv --benchmark spy.csv --out tearsheet.xlsx
  go run ./cmd/tearsheet report --input https://example.com/returns.csv --title "Growth" --out growth.html`,
	RunE: runReport,
}

var (
	reportSeries  seriesFlags
	reportOptions optionFlags
	reportOut     string
	reportFormat  string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportSeries.register(reportCmd)
	reportOptions.register(reportCmd)
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "tearsheet.html", "output file")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "html|xlsx (default: from --out extension)")
}

// outputFormat resolves the explicit format or the output extension
func outputFormat(explicit, path string) (string, error) {
	format := strings.ToLower(explicit)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case "html", "htm":
		return "html", nil
	case "xlsx":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("unsupported report format %q (html, xlsx)", format)
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(reportFormat, reportOut)
	if err != nil {
		return err
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	opts, err := reportOptions.apply(cmd, a.opts)
	if err != nil {
		return err
	}

	in, err := reportSeries.load(cmd.Context(), a)
	if err != nil {
		return err
	}

	rep, err := report.NewBuilder(metrics.NewAggregator(a.log)).Build(in, opts)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if dir := filepath.Dir(reportOut); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(reportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", reportOut, err)
	}
	defer f.Close()

	switch format {
	case "xlsx":
		err = tearsheet.WriteXLSX(f, rep)
	default:
		err = tearsheet.Render(f, rep)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", reportOut, err)
	}

	a.log.WithFields(map[string]interface{}{
		"path":   reportOut,
		"format": format,
	}).Info("Report written")

	for _, w := range rep.Metrics.Warnings {
		PrintWarning(w)
	}
	for _, n := range rep.Notes {
		PrintInfo(n)
	}
	PrintSuccess(fmt.Sprintf("Report written to %s", reportOut))
	return f.Close()
}
