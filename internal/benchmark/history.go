// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package benchmark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// historySchema holds one row per provider per run.
const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id          TEXT NOT NULL,
    provider_id     TEXT NOT NULL,
    dataset         TEXT NOT NULL,
    started_at      INTEGER NOT NULL,
    duration_ms     INTEGER NOT NULL,
    total           INTEGER NOT NULL,
    correct         INTEGER NOT NULL,
    failures        INTEGER NOT NULL,
    accuracy        REAL NOT NULL,
    mean_confidence REAL NOT NULL,
    p50_us          INTEGER NOT NULL,
    p90_us          INTEGER NOT NULL,
    p99_us          INTEGER NOT NULL,
    PRIMARY KEY (run_id, provider_id)
);
CREATE INDEX IF NOT EXISTS idx_runs_provider ON runs(provider_id, started_at);
`

// =============================================================================
// RUN HISTORY
// =============================================================================

// HistoryRow is one provider's line of a past run.
type HistoryRow struct {
	RunID          string
	ProviderID     string
	Dataset        string
	StartedAt      time.Time
	Duration       time.Duration
	Total          int
	Correct        int
	Failures       int
	Accuracy       float64
	MeanConfidence float64
	P50            time.Duration
	P90            time.Duration
	P99            time.Duration
}

// History records benchmark runs in a SQLite database.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	if path == "" {
		return nil, errors.New("benchmark: history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the database.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Record inserts one row per provider result in a single transaction.
// Recording the same run twice replaces its rows.
func (h *History) Record(ctx context.Context, c *Comparison) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO runs
		(run_id, provider_id, dataset, started_at, duration_ms, total, correct, failures,
		 accuracy, mean_confidence, p50_us, p90_us, p99_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range c.Providers {
		r := c.Results[id]
		if r == nil {
			continue
		}
		_, err := stmt.ExecContext(ctx,
			c.RunID, r.ProviderID, c.Dataset, r.StartTime.UnixMilli(), r.Duration.Milliseconds(),
			r.Total, r.Correct, r.Failures, r.Accuracy, r.MeanConfidence,
			r.P50.Microseconds(), r.P90.Microseconds(), r.P99.Microseconds())
		if err != nil {
			return fmt.Errorf("failed to record %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit rows, newest first. An empty providerID
// matches every provider.
func (h *History) Recent(ctx context.Context, providerID string, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `SELECT run_id, provider_id, dataset, started_at, duration_ms,
		total, correct, failures, accuracy, mean_confidence, p50_us, p90_us, p99_us
		FROM runs
		WHERE ? = '' OR provider_id = ?
		ORDER BY started_at DESC, provider_id
		LIMIT ?`, providerID, providerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var row HistoryRow
		var startedMs, durationMs, p50, p90, p99 int64
		if err := rows.Scan(&row.RunID, &row.ProviderID, &row.Dataset, &startedMs, &durationMs,
			&row.Total, &row.Correct, &row.Failures, &row.Accuracy, &row.MeanConfidence,
			&p50, &p90, &p99); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		row.StartedAt = time.UnixMilli(startedMs)
		row.Duration = time.Duration(durationMs) * time.Millisecond
		row.P50 = time.Duration(p50) * time.Microsecond
		row.P90 = time.Duration(p90) * time.Microsecond
		row.P99 = time.Duration(p99) * time.Microsecond
		out = append(out, row)
	}
	return out, rows.Err()
}
