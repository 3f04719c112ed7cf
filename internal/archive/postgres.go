// Package archive copies terminal job records to Postgres for retention.
// It is write-only: the in-memory table stays authoritative and nothing
// here is ever read back into the core.
package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"job-mailbox/internal/models"
)

// Archive wraps pgxpool for the retention sink.
type Archive struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Archive, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Archive{pool: pool}, nil
}

func (a *Archive) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// EnsureSchema creates the archive tables if they do not exist.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS archived_jobs (
			id BIGINT PRIMARY KEY,
			file_name TEXT NOT NULL,
			delay_seconds DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			payload_ref TEXT NOT NULL,
			result_payload_ref TEXT NOT NULL DEFAULT '',
			total_units INT NOT NULL DEFAULT 0,
			completed_units INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS archived_job_logs (
			job_id BIGINT NOT NULL REFERENCES archived_jobs(id) ON DELETE CASCADE,
			seq INT NOT NULL,
			message TEXT NOT NULL,
			level TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (job_id, seq)
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// Save upserts the record and rewrites its log rows. A job can reach a
// terminal state more than once in permissive mode, so the write replaces
// any earlier snapshot of the same id.
func (a *Archive) Save(ctx context.Context, job models.JobRecord) error {
	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	_, err = tx.Exec(ctx, `
		INSERT INTO archived_jobs (id, file_name, delay_seconds, status, summary, payload_ref, result_payload_ref, total_units, completed_units, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			summary = EXCLUDED.summary,
			result_payload_ref = EXCLUDED.result_payload_ref,
			total_units = EXCLUDED.total_units,
			completed_units = EXCLUDED.completed_units,
			archived_at = NOW()
	`, job.ID, job.FileName, job.DelaySeconds, job.Status, job.Summary, job.PayloadRef, job.ResultPayloadRef, job.TotalUnits, job.CompletedUnits, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert archived job: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM archived_job_logs WHERE job_id = $1`, job.ID); err != nil {
		return fmt.Errorf("clear archived logs: %w", err)
	}
	for i, entry := range job.Log {
		if _, err := tx.Exec(ctx, `
			INSERT INTO archived_job_logs (job_id, seq, message, level, ts)
			VALUES ($1, $2, $3, $4, $5)
		`, job.ID, i, entry.Message, entry.Level, entry.Timestamp); err != nil {
			return fmt.Errorf("insert archived log: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
