package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/tearsheet/internal/drawdown"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/stats"
)

// Method selects how simulated paths are drawn from the observed returns
type Method string

const (
	MethodBootstrap Method = "bootstrap" // 복원 추출 (horizon 길이)
	MethodShuffle   Method = "shuffle"   // 비복원 순열 (경로 의존성만 변화)
)

// Percentiles reported for every summary
var Percentiles = []int{1, 5, 10, 25, 50, 75, 90, 95, 99}

// Config holds simulation settings
// ⭐ SSOT: 재현성을 위해 모든 설정을 결과에 기록
type Config struct {
	Simulations int     `json:"simulations"` // 기본: 1000
	Method      Method  `json:"method"`
	Horizon     int     `json:"horizon"` // bootstrap 경로 길이, 0 = 관측치 수
	Seed        int64   `json:"seed"`    // 0 = 랜덤
	Bust        float64 `json:"bust"`    // 누적 수익률 하한 (예: -0.2), 0 = 미사용
	Goal        float64 `json:"goal"`    // 누적 수익률 목표 (예: 0.5), 0 = 미사용
	MinSamples  int     `json:"min_samples"`
}

// DefaultConfig returns the default simulation settings
func DefaultConfig() Config {
	return Config{
		Simulations: 1000,
		Method:      MethodBootstrap,
		MinSamples:  30, // fail-closed: 30개 미만이면 실패
	}
}

// Validate checks the settings
func (c Config) Validate() error {
	switch {
	case c.Simulations < 2:
		return fmt.Errorf("simulations must be >= 2, got %d", c.Simulations)
	case c.Method != MethodBootstrap && c.Method != MethodShuffle:
		return fmt.Errorf("method must be %q or %q, got %q", MethodBootstrap, MethodShuffle, c.Method)
	case c.Horizon < 0:
		return fmt.Errorf("horizon must be >= 0, got %d", c.Horizon)
	case c.Bust > 0:
		return fmt.Errorf("bust must be a loss (<= 0), got %g", c.Bust)
	case c.Goal < 0:
		return fmt.Errorf("goal must be a gain (>= 0), got %g", c.Goal)
	}
	return nil
}

// Summary describes the distribution of one simulated quantity
type Summary struct {
	Mean        float64         `json:"mean"`
	StdDev      float64         `json:"std_dev"`
	Min         float64         `json:"min"`
	Max         float64         `json:"max"`
	Percentiles map[int]float64 `json:"percentiles"`
}

// Result is the outcome of a simulation run
type Result struct {
	RunID       string    `json:"run_id"`
	RunDate     time.Time `json:"run_date"`
	Config      Config    `json:"config"`
	Samples     int       `json:"samples"`
	Horizon     int       `json:"horizon"`
	Terminal    Summary   `json:"terminal_return"`
	MaxDrawdown Summary   `json:"max_drawdown"`

	// 관측 경로의 값 (비교 기준)
	ObservedReturn   float64 `json:"observed_return"`
	ObservedDrawdown float64 `json:"observed_drawdown"`

	// Bust / Goal 이 0 이면 nil
	BustProbability *float64 `json:"bust_probability,omitempty"`
	GoalProbability *float64 `json:"goal_probability,omitempty"`
}

// Simulator draws return paths from a single return series
type Simulator struct {
	config Config
	rng    *rand.Rand
}

// NewSimulator creates a simulator; a zero seed draws from the clock
func NewSimulator(config Config) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// Simulate runs the configured number of paths over returns.
// The context is checked between paths.
func (mc *Simulator) Simulate(ctx context.Context, returns []float64) (*Result, error) {
	if len(returns) == 0 {
		return nil, series.ErrEmptySeries
	}
	if len(returns) < mc.config.MinSamples {
		return nil, fmt.Errorf("%w: %d samples, need %d", series.ErrInsufficientData, len(returns), mc.config.MinSamples)
	}

	horizon := len(returns)
	if mc.config.Method == MethodBootstrap && mc.config.Horizon > 0 {
		horizon = mc.config.Horizon
	}

	n := mc.config.Simulations
	terminal := make([]float64, n)
	maxDD := make([]float64, n)
	busts, goals := 0, 0

	path := make([]float64, horizon)
	for i := 0; i < n; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		mc.draw(returns, path)

		wealth := series.Wealth(path)
		terminal[i] = wealth[len(wealth)-1] - 1
		maxDD[i] = drawdown.Max(drawdown.Series(path))

		low, high := extremes(wealth)
		if mc.config.Bust != 0 && low-1 <= mc.config.Bust {
			busts++
		}
		if mc.config.Goal != 0 && high-1 >= mc.config.Goal {
			goals++
		}
	}

	result := &Result{
		RunID:            uuid.New().String(),
		RunDate:          time.Now(),
		Config:           mc.config,
		Samples:          len(returns),
		Horizon:          horizon,
		Terminal:         summarize(terminal),
		MaxDrawdown:      summarize(maxDD),
		ObservedReturn:   stats.Comp(returns),
		ObservedDrawdown: drawdown.Max(drawdown.Series(returns)),
	}
	if mc.config.Bust != 0 {
		p := float64(busts) / float64(n)
		result.BustProbability = &p
	}
	if mc.config.Goal != 0 {
		p := float64(goals) / float64(n)
		result.GoalProbability = &p
	}
	return result, nil
}

// draw fills path from returns according to the method
func (mc *Simulator) draw(returns, path []float64) {
	if mc.config.Method == MethodShuffle {
		copy(path, returns)
		mc.rng.Shuffle(len(path), func(i, j int) { path[i], path[j] = path[j], path[i] })
		return
	}
	for d := range path {
		path[d] = returns[mc.rng.Intn(len(returns))]
	}
}

func extremes(wealth []float64) (float64, float64) {
	low, high := 1.0, 1.0
	for _, w := range wealth {
		low = math.Min(low, w)
		high = math.Max(high, w)
	}
	return low, high
}

func summarize(x []float64) Summary {
	s := Summary{
		Mean:        stats.Mean(x),
		StdDev:      stats.StdDev(x),
		Min:         stats.Worst(x),
		Max:         stats.Best(x),
		Percentiles: make(map[int]float64, len(Percentiles)),
	}
	for _, p := range Percentiles {
		s.Percentiles[p] = stats.Quantile(x, float64(p)/100)
	}
	return s
}
