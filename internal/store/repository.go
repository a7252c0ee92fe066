// Package store persists return series and computed report runs in PostgreSQL.
package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/tearsheet/internal/metrics"
	"github.com/wonny/tearsheet/internal/series"
)

// ErrNotFound is returned when a run or portfolio has no rows
var ErrNotFound = errors.New("not found")

//go:embed schema.sql
var schema string

// Run is one persisted metrics computation
type Run struct {
	ID          uuid.UUID       `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	OptionsHash string          `json:"options_hash"`
	AsOf        time.Time       `json:"as_of"`
	Bundle      *metrics.Bundle `json:"bundle"`
	ReportPath  string          `json:"report_path,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Repository handles return and run persistence
// ⭐ SSOT: tearsheet 스키마 접근은 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the schema and tables when missing
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// =============================================================================
// Returns
// =============================================================================

// LoadReturns reads a portfolio's daily returns in [from, to].
// The benchmark is attached only when at least one row carries it.
func (r *Repository) LoadReturns(ctx context.Context, portfolioID string, from, to time.Time) (metrics.Input, error) {
	query := `
		SELECT date, ret, benchmark
		FROM tearsheet.daily_returns
		WHERE portfolio_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date`

	rows, err := r.pool.Query(ctx, query, portfolioID, from, to)
	if err != nil {
		return metrics.Input{}, fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	var (
		dates       []time.Time
		values      []float64
		bench       []float64
		anyBenchRow bool
	)
	for rows.Next() {
		var (
			date   time.Time
			ret, b *float64
		)
		if err := rows.Scan(&date, &ret, &b); err != nil {
			return metrics.Input{}, fmt.Errorf("failed to scan return: %w", err)
		}
		dates = append(dates, date.UTC())
		values = append(values, orNaN(ret))
		bench = append(bench, orNaN(b))
		anyBenchRow = anyBenchRow || b != nil
	}
	if err := rows.Err(); err != nil {
		return metrics.Input{}, fmt.Errorf("failed to iterate returns: %w", err)
	}
	if len(values) == 0 {
		return metrics.Input{}, fmt.Errorf("portfolio %s: %w", portfolioID, ErrNotFound)
	}

	s, err := series.New(dates, values)
	if err != nil {
		return metrics.Input{}, err
	}
	in := metrics.Input{Returns: s}
	if anyBenchRow {
		b, err := series.New(dates, bench)
		if err != nil {
			return metrics.Input{}, err
		}
		in.Benchmark = &b
	}
	return in, nil
}

// SaveReturns upserts a dated input for a portfolio
func (r *Repository) SaveReturns(ctx context.Context, portfolioID string, in metrics.Input) error {
	if !in.Returns.HasDates() {
		return fmt.Errorf("save returns: %w", series.ErrNoDates)
	}
	if in.Returns.Len() == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO tearsheet.daily_returns (portfolio_id, date, ret, benchmark)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (portfolio_id, date) DO UPDATE SET
			ret = EXCLUDED.ret,
			benchmark = EXCLUDED.benchmark`

	for i, d := range in.Returns.Dates {
		var b *float64
		if in.Benchmark != nil && i < in.Benchmark.Len() {
			b = nullable(in.Benchmark.Values[i])
		}
		batch.Queue(query, portfolioID, d, nullable(in.Returns.Values[i]), b)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range in.Returns.Dates {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save returns: %w", err)
		}
	}
	return nil
}

// =============================================================================
// Runs
// =============================================================================

// SaveRun stores a computed bundle; ID and CreatedAt are filled when empty
func (r *Repository) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	bundleJSON, err := json.Marshal(run.Bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}

	query := `
		INSERT INTO tearsheet.report_runs (
			id, portfolio_id, options_hash, as_of, bundle, report_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.pool.Exec(ctx, query,
		run.ID, run.PortfolioID, run.OptionsHash, run.AsOf, bundleJSON, run.ReportPath, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, portfolio_id, options_hash, as_of, bundle, report_path, created_at
		FROM tearsheet.report_runs
		WHERE id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the latest runs of a portfolio, newest first
func (r *Repository) ListRuns(ctx context.Context, portfolioID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, portfolio_id, options_hash, as_of, bundle, report_path, created_at
		FROM tearsheet.report_runs
		WHERE portfolio_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		run        Run
		bundleJSON []byte
	)
	if err := row.Scan(&run.ID, &run.PortfolioID, &run.OptionsHash, &run.AsOf,
		&bundleJSON, &run.ReportPath, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Bundle = &metrics.Bundle{}
	if err := json.Unmarshal(bundleJSON, run.Bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bundle: %w", err)
	}
	return &run, nil
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// nullable maps NaN/Inf to SQL NULL
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
