package turso

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

const maxRetries = 2

// RecordRepository stores raw records in the experiments, trials and runs tables.
type RecordRepository struct {
	db    *sql.DB
	label string
}

// NewRecordRepository creates a repository over db. label is reported by Describe.
func NewRecordRepository(db *sql.DB, label string) *RecordRepository {
	return &RecordRepository{db: db, label: label}
}

func (r *RecordRepository) Describe() string {
	return "db:" + r.label
}

func (r *RecordRepository) Load(ctx context.Context) (domain.RawData, error) {
	return WithRetry(ctx, maxRetries, func() (domain.RawData, error) {
		return r.load(ctx)
	})
}

func (r *RecordRepository) load(ctx context.Context) (domain.RawData, error) {
	var raw domain.RawData

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, experiment_name, project_id, created_at, is_del FROM experiments ORDER BY seq, id`)
	if err != nil {
		return raw, fmt.Errorf("failed to query experiments: %w", err)
	}
	for rows.Next() {
		var e domain.RawExperiment
		if err := rows.Scan(&e.ID, &e.Name, &e.ProjectID, &e.CreatedAt, &e.IsDeleted); err != nil {
			_ = rows.Close()
			return raw, fmt.Errorf("failed to scan experiment: %w", err)
		}
		raw.Experiments = append(raw.Experiments, e)
	}
	if err := closeRows(rows); err != nil {
		return raw, fmt.Errorf("failed to read experiments: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT id, experiment_id, status, created_at, accuracy, duration FROM trials ORDER BY seq, id`)
	if err != nil {
		return raw, fmt.Errorf("failed to query trials: %w", err)
	}
	for rows.Next() {
		var t domain.RawTrial
		if err := rows.Scan(&t.ID, &t.ExperimentID, &t.Status, &t.CreatedAt, &t.Accuracy, &t.Duration); err != nil {
			_ = rows.Close()
			return raw, fmt.Errorf("failed to scan trial: %w", err)
		}
		raw.Trials = append(raw.Trials, t)
	}
	if err := closeRows(rows); err != nil {
		return raw, fmt.Errorf("failed to read trials: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT id, trial_id, tokens, costs, latency_ms, created_at FROM runs ORDER BY seq, id`)
	if err != nil {
		return raw, fmt.Errorf("failed to query runs: %w", err)
	}
	for rows.Next() {
		var run domain.RawRun
		if err := rows.Scan(&run.ID, &run.TrialID, &run.Tokens, &run.Cost, &run.LatencyMs, &run.CreatedAt); err != nil {
			_ = rows.Close()
			return raw, fmt.Errorf("failed to scan run: %w", err)
		}
		raw.Runs = append(raw.Runs, run)
	}
	if err := closeRows(rows); err != nil {
		return raw, fmt.Errorf("failed to read runs: %w", err)
	}

	return raw, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

// ReplaceAll swaps the stored records for raw. Rows repeating an id already
// inserted are skipped, so the first occurrence wins.
func (r *RecordRepository) ReplaceAll(ctx context.Context, raw domain.RawData) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"runs", "trials", "experiments"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO experiments (id, experiment_name, project_id, created_at, is_del, seq) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare experiment insert: %w", err)
	}
	for i, e := range raw.Experiments {
		if _, err := stmt.ExecContext(ctx, e.ID, e.Name, e.ProjectID, e.CreatedAt, e.IsDeleted, i); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to insert experiment %d: %w", e.ID, err)
		}
	}
	_ = stmt.Close()

	stmt, err = tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO trials (id, experiment_id, status, created_at, accuracy, duration, seq) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare trial insert: %w", err)
	}
	for i, t := range raw.Trials {
		if _, err := stmt.ExecContext(ctx, t.ID, t.ExperimentID, t.Status, t.CreatedAt, t.Accuracy, t.Duration, i); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to insert trial %d: %w", t.ID, err)
		}
	}
	_ = stmt.Close()

	stmt, err = tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO runs (id, trial_id, tokens, costs, latency_ms, created_at, seq) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare run insert: %w", err)
	}
	for i, run := range raw.Runs {
		if _, err := stmt.ExecContext(ctx, run.ID, run.TrialID, run.Tokens, run.Cost, run.LatencyMs, run.CreatedAt, i); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to insert run %d: %w", run.ID, err)
		}
	}
	_ = stmt.Close()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

func (r *RecordRepository) Counts(ctx context.Context) (experiments, trials, runs int64, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM experiments),
			(SELECT COUNT(*) FROM trials),
			(SELECT COUNT(*) FROM runs)
	`).Scan(&experiments, &trials, &runs)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	return experiments, trials, runs, nil
}
