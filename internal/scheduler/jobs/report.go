package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/report"
	"github.com/wonny/tearsheet/internal/reportconfig"
	"github.com/wonny/tearsheet/internal/series"
	"github.com/wonny/tearsheet/internal/store"
	"github.com/wonny/tearsheet/internal/tearsheet"
	"github.com/wonny/tearsheet/pkg/config"
	"github.com/wonny/tearsheet/pkg/logger"
)

// ReportStore is the persistence surface of the nightly report
type ReportStore interface {
	LoadReturns(ctx context.Context, portfolioID string, from, to time.Time) (metrics.Input, error)
	SaveRun(ctx context.Context, run *store.Run) error
}

// NightlyReportJob renders and records a tearsheet per configured portfolio
// ⭐ SSOT: 정기 리포트 생성은 이 Job에서만
type NightlyReportJob struct {
	store   ReportStore
	builder *report.Builder
	opts    reportconfig.Options
	config  config.ReportConfig
	now     func() time.Time
	logger  *logger.Logger
}

// NewNightlyReportJob creates a new nightly report job
func NewNightlyReportJob(st ReportStore, agg *metrics.Aggregator, opts reportconfig.Options, cfg config.ReportConfig, log *logger.Logger) *NightlyReportJob {
	return &NightlyReportJob{
		store:   st,
		builder: report.NewBuilder(agg),
		opts:    opts,
		config:  cfg,
		now:     time.Now,
		logger:  log,
	}
}

// Name returns the job name
func (j *NightlyReportJob) Name() string {
	return "nightly_report"
}

// Schedule returns the cron schedule (weekdays 18:30 by default)
func (j *NightlyReportJob) Schedule() string {
	return j.config.Schedule
}

// Run builds every portfolio's report; one failure does not stop the others
func (j *NightlyReportJob) Run(ctx context.Context) error {
	j.logger.WithField("portfolios", len(j.config.Portfolios)).Info("Starting nightly report")

	if err := os.MkdirAll(j.config.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	var errs []error
	for _, id := range j.config.Portfolios {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := j.runPortfolio(ctx, id); err != nil {
			j.logger.WithError(err).WithField("portfolio", id).Error("Portfolio report failed")
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (j *NightlyReportJob) runPortfolio(ctx context.Context, id string) error {
	to := j.now().UTC()
	from := to.Add(-j.config.Lookback)

	in, err := j.store.LoadReturns(ctx, id, from, to)
	if err != nil {
		return fmt.Errorf("load returns: %w", err)
	}

	opts := j.opts
	opts.Title = id
	rep, err := j.builder.Build(in, opts)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	asOf := in.Returns.Last()
	path := filepath.Join(j.config.Dir, fmt.Sprintf("%s_%s.html", id, asOf.Format(series.DateLayout)))

	var buf bytes.Buffer
	if err := tearsheet.Render(&buf, rep); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	optsHash, err := reportconfig.Hash(j.opts)
	if err != nil {
		return err
	}
	run := &store.Run{
		PortfolioID: id,
		OptionsHash: optsHash,
		AsOf:        asOf,
		Bundle:      rep.Metrics,
		ReportPath:  path,
	}
	if err := j.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"portfolio": id,
		"run":       run.ID.String(),
		"path":      path,
	}).Info("Portfolio report written")
	return nil
}
