package montecarlo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/stats"
)

func sample(n int) []float64 {
	pattern := []float64{0.01, -0.02, 0.015, -0.008, 0.02, 0.003, -0.004}
	out := make([]float64, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name string
		fn   func(*Config)
	}{
		{"too few simulations", func(c *Config) { c.Simulations = 1 }},
		{"unknown method", func(c *Config) { c.Method = "parametric" }},
		{"negative horizon", func(c *Config) { c.Horizon = -1 }},
		{"positive bust", func(c *Config) { c.Bust = 0.1 }},
		{"negative goal", func(c *Config) { c.Goal = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.fn(&cfg)
			assert.Error(t, cfg.Validate())

			_, err := NewSimulator(cfg)
			assert.Error(t, err)
		})
	}
}

func TestSimulate_Shuffle(t *testing.T) {
	returns := sample(100)
	cfg := DefaultConfig()
	cfg.Method = MethodShuffle
	cfg.Simulations = 200
	cfg.Seed = 42

	mc, err := NewSimulator(cfg)
	require.NoError(t, err)
	res, err := mc.Simulate(context.Background(), returns)
	require.NoError(t, err)

	// 순열은 최종 복리 수익률을 바꾸지 않음
	assert.InDelta(t, stats.Comp(returns), res.Terminal.Mean, 1e-12)
	assert.InDelta(t, 0, res.Terminal.StdDev, 1e-12)
	assert.Equal(t, 100, res.Horizon)

	// 드로다운 분포는 경로에 따라 달라짐
	assert.LessOrEqual(t, res.MaxDrawdown.Min, res.MaxDrawdown.Percentiles[50])
	assert.LessOrEqual(t, res.MaxDrawdown.Percentiles[50], res.MaxDrawdown.Max)
	assert.LessOrEqual(t, res.MaxDrawdown.Max, 0.0)
	assert.Len(t, res.MaxDrawdown.Percentiles, len(Percentiles))

	assert.Nil(t, res.BustProbability)
	assert.Nil(t, res.GoalProbability)
	assert.NotEmpty(t, res.RunID)
}

func TestSimulate_BootstrapIsReproducible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulations = 300
	cfg.Horizon = 252
	cfg.Seed = 7
	cfg.Bust = -0.05
	cfg.Goal = 0.05

	run := func() *Result {
		mc, err := NewSimulator(cfg)
		require.NoError(t, err)
		res, err := mc.Simulate(context.Background(), sample(60))
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.Terminal, b.Terminal)
	assert.Equal(t, a.MaxDrawdown, b.MaxDrawdown)
	assert.Equal(t, 252, a.Horizon)
	assert.Equal(t, 60, a.Samples)

	require.NotNil(t, a.BustProbability)
	require.NotNil(t, a.GoalProbability)
	assert.GreaterOrEqual(t, *a.BustProbability, 0.0)
	assert.LessOrEqual(t, *a.BustProbability, 1.0)
	assert.Positive(t, a.Terminal.StdDev)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"bust_probability"`)
}

func TestSimulate_Errors(t *testing.T) {
	mc, err := NewSimulator(DefaultConfig())
	require.NoError(t, err)

	_, err = mc.Simulate(context.Background(), nil)
	assert.True(t, errors.Is(err, series.ErrEmptySeries))

	_, err = mc.Simulate(context.Background(), sample(10))
	assert.True(t, errors.Is(err, series.ErrInsufficientData))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = mc.Simulate(ctx, sample(60))
	assert.True(t, errors.Is(err, context.Canceled))
}
