package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/store"
	"github.com/wonny/tearsheet/pkg/config"
	"github.com/wonny/tearsheet/pkg/logger"
)

type fakeStore struct {
	inputs map[string]metrics.Input
	runs   []store.Run
}

func (s *fakeStore) LoadReturns(_ context.Context, id string, _, _ time.Time) (metrics.Input, error) {
	in, ok := s.inputs[id]
	if !ok {
		return metrics.Input{}, store.ErrNotFound
	}
	return in, nil
}

func (s *fakeStore) SaveRun(_ context.Context, run *store.Run) error {
	run.ID = uuid.New()
	s.runs = append(s.runs, *run)
	return nil
}

func input(t *testing.T, n int) metrics.Input {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	values := make([]float64, n)
	for i := range values {
		dates[i] = start.AddDate(0, 0, i)
		values[i] = []float64{0.01, -0.005, 0.002}[i%3]
	}
	s, err := series.New(dates, values)
	require.NoError(t, err)
	return metrics.Input{Returns: s}
}

func TestNightlyReportJob(t *testing.T) {
	dir := t.TempDir()
	st := &fakeStore{inputs: map[string]metrics.Input{"growth": input(t, 40)}}
	cfg := config.ReportConfig{
		Dir:        dir,
		Schedule:   "0 30 18 * * 1-5",
		Portfolios: []string{"growth", "ghost"},
		Lookback:   24 * time.Hour * 365,
	}
	job := NewNightlyReportJob(st, metrics.NewAggregator(logger.Nop()), reportconfig.Default(), cfg, logger.Nop())

	assert.Equal(t, "nightly_report", job.Name())
	assert.Equal(t, "0 30 18 * * 1-5", job.Schedule())

	err := job.Run(context.Background())
	require.Error(t, err, "ghost portfolio has no returns")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	// growth 는 정상 처리
	require.Len(t, st.runs, 1)
	run := st.runs[0]
	assert.Equal(t, "growth", run.PortfolioID)
	assert.Equal(t, filepath.Join(dir, "growth_2024-02-09.html"), run.ReportPath)
	assert.NotEmpty(t, run.Bundle.Entries)

	html, err := os.ReadFile(run.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>growth</title>")
}

func TestReportCleanupJob(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.html")
	fresh := filepath.Join(dir, "fresh.html")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	past := time.Now().Add(-100 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	job := NewReportCleanupJob(dir, 90*24*time.Hour, "0 0 3 * * *", logger.Nop())
	require.NoError(t, job.Run(context.Background()))

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)

	// 보존 기간 0 이면 아무것도 지우지 않음
	require.NoError(t, NewReportCleanupJob(dir, 0, "", logger.Nop()).Run(context.Background()))
	require.NoError(t, NewReportCleanupJob(filepath.Join(dir, "missing"), time.Hour, "", logger.Nop()).Run(context.Background()))
}
