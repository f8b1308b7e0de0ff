// Package storage archives report runs in SQLite so refresh history
// survives restarts and failed runs stay inspectable.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mizan/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// Run is one archived report run.
type Run struct {
	ID        int64               `json:"id"`
	State     string              `json:"state"`
	Snapshot  core.LedgerSnapshot `json:"snapshot"`
	CreatedAt time.Time           `json:"createdAt"`
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveRun archives one completed run and returns its id.
func (r *SQLiteRepository) SaveRun(ctx context.Context, state string, snap core.LedgerSnapshot) (int64, error) {
	snapshotJSON, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	errorsJSON, err := json.Marshal(snap.Errors)
	if err != nil {
		return 0, fmt.Errorf("marshal source errors: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO report_runs (
			window_start, window_end, state,
			total_revenue, total_expenses, net_profit,
			transaction_count, source_errors, snapshot_json, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Window.Start.Format(time.RFC3339Nano),
		snap.Window.End.Format(time.RFC3339Nano),
		state,
		snap.Summary.TotalRevenue.String(),
		snap.Summary.TotalExpenses.String(),
		snap.Summary.NetProfit.String(),
		len(snap.Ledger),
		string(errorsJSON),
		string(snapshotJSON),
		snap.FetchedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	slog.InfoContext(ctx, "Report run archived",
		"run_id", id,
		"state", state,
		"transactions", len(snap.Ledger),
		"source_errors", len(snap.Errors))

	return id, nil
}

// LatestRun returns the most recently archived run, or sql.ErrNoRows.
func (r *SQLiteRepository) LatestRun(ctx context.Context) (Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, state, snapshot_json, created_at
		FROM report_runs
		ORDER BY id DESC
		LIMIT 1`)
	return scanRun(row)
}

// ListRuns returns up to limit archived runs, newest first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, state, snapshot_json, created_at
		FROM report_runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// PruneRuns deletes all but the newest keep runs.
func (r *SQLiteRepository) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM report_runs
		WHERE id NOT IN (
			SELECT id FROM report_runs ORDER BY id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run          Run
		snapshotJSON string
		createdAt    string
	)
	if err := row.Scan(&run.ID, &run.State, &snapshotJSON, &createdAt); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(snapshotJSON), &run.Snapshot); err != nil {
		return Run{}, fmt.Errorf("unmarshal snapshot for run %d: %w", run.ID, err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		run.CreatedAt = t
	}
	return run, nil
}
