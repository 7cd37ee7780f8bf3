package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ifpusa/p21-tools/internal/diag"
)

// Store reads and writes diagnostic runs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store on an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the diagnostic tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS diag_run (
	run_id         UUID PRIMARY KEY,
	server_url     TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ NOT NULL,
	total_requests INT NOT NULL,
	total_failures INT NOT NULL,
	success_rate   DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS diag_result (
	run_id        UUID NOT NULL REFERENCES diag_run(run_id) ON DELETE CASCADE,
	pattern       TEXT NOT NULL,
	attempt       INT NOT NULL,
	ts            TIMESTAMPTZ NOT NULL,
	elapsed_ms    BIGINT NOT NULL,
	success       BOOLEAN NOT NULL,
	status_code   INT NOT NULL,
	error_type    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, pattern, attempt)
);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create diag tables: %w", err)
	}
	return nil
}

// SaveRun stores a completed diagnostic run and all of its results in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, runID uuid.UUID, run *diag.RunResults, report *diag.Report, finishedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO diag_run (run_id, server_url, started_at, finished_at, total_requests, total_failures, success_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, run.ServerURL, run.StartedAt, finishedAt,
		report.TotalRequests, report.TotalFailures, report.OverallRate,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, pr := range run.Patterns {
		for _, result := range pr.Results {
			batch.Queue(`
				INSERT INTO diag_result (run_id, pattern, attempt, ts, elapsed_ms, success, status_code, error_type, error_message)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				runID, pr.Pattern.Name, result.Attempt, result.Timestamp,
				result.ElapsedMS, result.Success, result.StatusCode,
				result.ErrorType, result.ErrorMessage,
			)
		}
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	return nil
}

// RunSummary is one stored run's headline numbers.
type RunSummary struct {
	RunID         uuid.UUID
	ServerURL     string
	StartedAt     time.Time
	TotalRequests int
	TotalFailures int
	SuccessRate   float64
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, server_url, started_at, total_requests, total_failures, success_rate
		FROM diag_run
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.RunID, &run.ServerURL, &run.StartedAt,
			&run.TotalRequests, &run.TotalFailures, &run.SuccessRate); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
