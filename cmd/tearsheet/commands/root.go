package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tearsheet",
	Short: "Portfolio performance analytics and tearsheets",
	Long: `Tearsheet CLI

수익률 시계열로부터 성과 지표, 드로다운, HTML/XLSX 리포트를 생성합니다.
입력은 CSV/XLSX 파일, http(s) URL, 또는 PostgreSQL 에 저장된 포트폴리오.

Usage:
  go run ./cmd/tearsheet [command]

Examples:
  go run ./cmd/tearsheet metrics --input returns.csv
  go run ./cmd/tearsheet report --input returns.csv --benchmark spy.csv --out report.html
  go run ./cmd/tearsheet drawdowns --input prices.xlsx --prices --top 10
  go run ./cmd/tearsheet api
  go run ./cmd/tearsheet scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "report options YAML (default: REPORT_OPTIONS or built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
