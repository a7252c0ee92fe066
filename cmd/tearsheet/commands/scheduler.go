package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/scheduler"
	"github.com/wonny/tearsheet/internal/scheduler/jobs"
	"github.com/wonny/tearsheet/pkg/database"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 리포트 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/tearsheet scheduler start
  go run ./cmd/tearsheet scheduler list
  go run ./cmd/tearsheet scheduler run nightly_report`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- nightly_report: REPORT_SCHEDULE (기본 평일 18:30), REPORT_PORTFOLIOS 의 tearsheet 생성
- report_cleanup: REPORT_CLEANUP_SCHEDULE (기본 매일 03:00), REPORT_RETENTION 보다 오래된 리포트 삭제

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	PrintHeader("Tearsheet Scheduler", "")

	sched, db, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer db.Close()

	sched.Start()

	PrintSuccess("Scheduler started successfully")
	fmt.Fprintln(out, "\nRegistered jobs:")
	printJobs(sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, db, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer db.Close()

	fmt.Fprintln(out, "Registered jobs:")
	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(name); err == nil && !t.IsZero() {
			next = t.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(out, "  - %-16s next: %s\n", name, next)
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	PrintInfo(fmt.Sprintf("Running job: %s", jobName))

	sched, db, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer db.Close()

	result, err := sched.RunJob(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempts (%s): %s", jobName, result.Attempts, result.Duration, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, result.Duration))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	sched, db, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer db.Close()

	stats := sched.GetJobStats()

	fmt.Fprintln(out, "Job Statistics:")
	fmt.Fprintln(out)

	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Fprintf(out, "📊 %s\n", jobName)
		PrintKeyValue("Schedule", stat.Schedule, 12)
		PrintKeyValue("Total Runs", fmt.Sprintf("%d", stat.TotalRuns), 12)
		PrintKeyValue("Success", fmt.Sprintf("%d (%.1f%%)", stat.SuccessCount, stat.SuccessRate*100), 12)
		PrintKeyValue("Failures", fmt.Sprintf("%d", stat.FailureCount), 12)

		if stat.LastRun != nil {
			PrintKeyValue("Last Run", stat.LastRun.Format("2006-01-02 15:04:05"), 12)
		}
		fmt.Fprintln(out)
	}

	return nil
}

// initScheduler wires the report jobs; the caller closes the returned DB
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *database.DB, error) {
	a, err := bootstrap()
	if err != nil {
		return nil, nil, err
	}

	db, repo, err := openStore(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	sched := scheduler.New(a.log)

	nightly := jobs.NewNightlyReportJob(repo, metrics.NewAggregator(a.log), a.opts, a.cfg.Report, a.log)
	cleanup := jobs.NewReportCleanupJob(a.cfg.Report.Dir, a.cfg.Report.Retention, a.cfg.Report.Cleanup, a.log)

	for _, job := range []scheduler.Job{nightly, cleanup} {
		if err := sched.AddJob(job); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}

	return sched, db, nil
}
