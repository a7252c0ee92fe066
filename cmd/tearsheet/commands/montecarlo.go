package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tearsheet/internal/montecarlo"
	"github.com/wonny/tearsheet/internal/series"
)

// montecarloCmd resamples a return series into simulated paths
var montecarloCmd = &cobra.Command{
	Use:   "montecarlo",
	Short: "Monte Carlo 시뮬레이션",
	Long: `관측 수익률을 재표본추출하여 최종 수익률과 최대 드로다운 분포를 추정합니다.

Methods:
  bootstrap : 복원 추출, --horizon 길이의 경로 (기본)
  shuffle   : 관측 수익률의 순열 (최종 수익률은 동일, 경로만 변화)

Examples:
  go run ./cmd/tearsheet montecarlo --input returns.csv
  go run ./cmd/tearsheet montecarlo --input returns.csv --method shuffle --sims 5000 --bust -0.2
  go run ./cmd/tearsheet montecarlo --input returns.csv --horizon 252 --goal 0.3 --seed 42 --json`,
	RunE: runMonteCarlo,
}

var (
	mcSeries  seriesFlags
	mcOptions optionFlags
	mcConfig  = montecarlo.DefaultConfig()
	mcMethod  string
	mcJSON    bool
)

func init() {
	rootCmd.AddCommand(montecarloCmd)

	mcSeries.register(montecarloCmd)
	mcOptions.register(montecarloCmd)

	f := montecarloCmd.Flags()
	f.IntVar(&mcConfig.Simulations, "sims", mcConfig.Simulations, "number of simulated paths")
	f.StringVar(&mcMethod, "method", string(mcConfig.Method), "bootstrap|shuffle")
	f.IntVar(&mcConfig.Horizon, "horizon", 0, "bootstrap path length (default: observations)")
	f.Int64Var(&mcConfig.Seed, "seed", 0, "random seed (0 = clock)")
	f.Float64Var(&mcConfig.Bust, "bust", 0, "bust threshold on cumulative return (e.g. -0.2)")
	f.Float64Var(&mcConfig.Goal, "goal", 0, "goal on cumulative return (e.g. 0.5)")
	f.IntVar(&mcConfig.MinSamples, "min-samples", mcConfig.MinSamples, "minimum observations")
	f.BoolVar(&mcJSON, "json", false, "print the result as JSON")
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg := mcConfig
	cfg.Method = montecarlo.Method(mcMethod)
	mc, err := montecarlo.NewSimulator(cfg)
	if err != nil {
		return err
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	opts, err := mcOptions.apply(cmd, a.opts)
	if err != nil {
		return err
	}

	in, err := mcSeries.load(cmd.Context(), a)
	if err != nil {
		return err
	}

	prep := opts.Prepare()
	prep.RiskFreeRate = 0
	s, err := series.Prepare(in.Returns, prep)
	if err != nil {
		return fmt.Errorf("prepare returns: %w", err)
	}

	res, err := mc.Simulate(cmd.Context(), s.Values)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	if mcJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	PrintHeader(opts.Title+" - Monte Carlo", fmt.Sprintf("%d paths x %d periods (%s)", cfg.Simulations, res.Horizon, cfg.Method))
	PrintKeyValue("Observed return", fmt.Sprintf("%.2f%%", res.ObservedReturn*100), 18)
	PrintKeyValue("Observed max DD", fmt.Sprintf("%.2f%%", res.ObservedDrawdown*100), 18)
	PrintSeparator()

	widths := []int{12, 14, 14}
	PrintTableHeader([]string{"Percentile", "Return", "Max Drawdown"}, widths)
	for _, p := range montecarlo.Percentiles {
		PrintTableRow([]string{
			fmt.Sprintf("p%d", p),
			fmt.Sprintf("%.2f%%", res.Terminal.Percentiles[p]*100),
			fmt.Sprintf("%.2f%%", res.MaxDrawdown.Percentiles[p]*100),
		}, widths)
	}
	PrintTableRow([]string{
		"mean",
		fmt.Sprintf("%.2f%%", res.Terminal.Mean*100),
		fmt.Sprintf("%.2f%%", res.MaxDrawdown.Mean*100),
	}, widths)

	if res.BustProbability != nil {
		PrintKeyValue("P(bust)", fmt.Sprintf("%.1f%%", *res.BustProbability*100), 18)
	}
	if res.GoalProbability != nil {
		PrintKeyValue("P(goal)", fmt.Sprintf("%.1f%%", *res.GoalProbability*100), 18)
	}
	return nil
}
