package drawdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tearsheet/internal/series"
)

func TestSeries_FirstIsZero(t *testing.T) {
	dd := Series([]float64{-0.05, 0.01})
	assert.Equal(t, 0.0, dd[0])
	assert.Equal(t, 0.0, dd[1])
}

func TestAnalyze_SingleEpisode(t *testing.T) {
	a := Analyze(series.FromValues([]float64{0.01, -0.02, 0.015, -0.008, 0.02}))

	assert.InDelta(t, -0.02, Max(a.Drawdowns), 1e-12)
	require.Len(t, a.Episodes, 1)

	ep := a.Episodes[0]
	assert.Equal(t, 1, ep.Start)
	assert.Equal(t, 1, ep.Valley)
	assert.Equal(t, 4, ep.End)
	assert.True(t, ep.Recovered)
	assert.Equal(t, 3, ep.Days, "index count when undated")
	require.NotNil(t, ep.RecoveryDays)
	assert.Equal(t, 3, *ep.RecoveryDays)
}

func TestAnalyze_TwoEpisodesWithDates(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{
		start,
		start.AddDate(0, 0, 1),
		start.AddDate(0, 0, 4),
		start.AddDate(0, 0, 5),
		start.AddDate(0, 0, 12),
	}
	s, err := series.New(dates, []float64{0.05, -0.10, 0.15, -0.10, 0.30})
	require.NoError(t, err)

	a := Analyze(s)
	require.Len(t, a.Episodes, 2)

	first, second := a.Episodes[0], a.Episodes[1]
	assert.Equal(t, 1, first.Valley)
	assert.Equal(t, 2, first.End)
	assert.Equal(t, 3, first.Days)
	assert.Equal(t, 3, *first.RecoveryDays)
	assert.Equal(t, dates[1], first.StartDate)

	assert.Equal(t, 3, second.Valley)
	assert.Equal(t, 4, second.End)
	assert.Equal(t, 7, second.Days)
	assert.Equal(t, 7, *second.RecoveryDays)
}

func TestAnalyze_UnrecoveredTail(t *testing.T) {
	a := Analyze(series.FromValues([]float64{0.05, -0.10, 0.05, -0.10, 0.01}))
	require.Len(t, a.Episodes, 1)

	ep := a.Episodes[0]
	assert.Equal(t, 3, ep.Valley)
	assert.Equal(t, 4, ep.End)
	assert.False(t, ep.Recovered)
	assert.Nil(t, ep.RecoveryDays)
}

func TestAnalyze_ValleyTieBreaksToFirst(t *testing.T) {
	// -10% then flat then back to the same trough, then recovery
	a := Analyze(series.FromValues([]float64{0.1, -0.1, 0, 0, 0.2}))
	require.Len(t, a.Episodes, 1)
	assert.Equal(t, 1, a.Episodes[0].Valley)
}

func TestAnalyze_MonotoneWealthHasNoEpisodes(t *testing.T) {
	a := Analyze(series.FromValues([]float64{0.01, 0, 0.02, 0.03}))
	assert.Empty(t, a.Episodes)
	for _, d := range a.Drawdowns {
		assert.Equal(t, 0.0, d)
	}
}

func TestEpisodes_ReconstructIndexSet(t *testing.T) {
	values := []float64{0.02, -0.01, -0.01, 0.05, 0.01, -0.03, 0.04, -0.02, 0.01, -0.05}
	a := Analyze(series.FromValues(values))

	covered := make([]bool, len(values))
	for _, ep := range a.Episodes {
		for i := ep.Start; i <= ep.End; i++ {
			if a.Drawdowns[i] < 0 {
				assert.False(t, covered[i], "index %d in two episodes", i)
				covered[i] = true
			}
		}
		if ep.Start > 0 {
			assert.Equal(t, 0.0, a.Drawdowns[ep.Start-1])
		}
		assert.Less(t, a.Drawdowns[ep.Start], 0.0)
		assert.True(t, a.Drawdowns[ep.End] == 0 || ep.End == len(values)-1)
	}

	// every negative reading belongs to an episode; the rest are flat gaps
	for i, d := range a.Drawdowns {
		assert.Equal(t, d < 0, covered[i], "index %d", i)
		assert.GreaterOrEqual(t, d, -1.0)
		assert.LessOrEqual(t, d, 0.0)
	}
}

func TestTop(t *testing.T) {
	eps := []Episode{
		{Start: 0, MaxDrawdown: -0.1},
		{Start: 5, MaxDrawdown: -0.3},
		{Start: 9, MaxDrawdown: -0.2},
	}

	top := Top(eps, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 5, top[0].Start)
	assert.Equal(t, 9, top[1].Start)
	assert.Len(t, Top(eps, 30), 3)
	assert.Equal(t, 0, eps[0].Start, "input is not reordered")
}
