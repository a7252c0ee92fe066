package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/tearsheet/pkg/logger"
)

// ReportCleanupJob deletes rendered reports older than the retention period
type ReportCleanupJob struct {
	dir       string
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *logger.Logger
}

// NewReportCleanupJob creates a new cleanup job
func NewReportCleanupJob(dir string, retention time.Duration, schedule string, log *logger.Logger) *ReportCleanupJob {
	return &ReportCleanupJob{
		dir:       dir,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *ReportCleanupJob) Name() string {
	return "report_cleanup"
}

// Schedule returns the cron schedule (daily 03:00 by default)
func (j *ReportCleanupJob) Schedule() string {
	return j.schedule
}

// Run removes *.html files whose modification time is past retention
func (j *ReportCleanupJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}

	entries, err := os.ReadDir(j.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	cutoff := j.now().Add(-j.retention)
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, e.Name())); err != nil {
			return err
		}
		count++
	}

	if count > 0 {
		j.logger.WithField("removed", count).Info("Report cleanup completed")
	}
	return nil
}
