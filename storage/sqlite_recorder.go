package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"rent-scraper/services"
	"rent-scraper/utils"
)

// SQLiteRecorder persists run history and histograms to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("could not create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	utils.Info("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at      INTEGER NOT NULL,
			site            TEXT NOT NULL,
			reported        INTEGER,
			accepted        INTEGER,
			rejected        INTEGER,
			record_errors   INTEGER,
			elapsed_ms      INTEGER,
			median_all      REAL,
			median_owners   REAL,
			median_agencies REAL,
			bucket_width    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_site_ts ON runs(site, started_at)`,

		`CREATE TABLE IF NOT EXISTS histogram_buckets (
			run_id   INTEGER NOT NULL REFERENCES runs(id),
			lo       REAL NOT NULL,
			hi       REAL NOT NULL,
			listings INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_buckets_run ON histogram_buckets(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run row and its buckets in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO runs
		(started_at, site, reported, accepted, rejected, record_errors, elapsed_ms,
		 median_all, median_owners, median_agencies, bucket_width)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.StartedAt.Unix(), run.Site, run.Reported, run.Accepted, run.Rejected,
		run.RecordErrors, run.Elapsed.Milliseconds(),
		run.MedianAll, run.MedianOwners, run.MedianAgencies, run.Histogram.Width,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	for _, b := range run.Histogram.Buckets {
		if _, err := tx.Exec(`INSERT INTO histogram_buckets (run_id, lo, hi, listings) VALUES (?,?,?,?)`,
			runID, b.Lo, b.Hi, b.Count); err != nil {
			return fmt.Errorf("insert bucket: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the latest runs of a site, newest first, with their histograms.
func (r *SQLiteRecorder) RecentRuns(site string, limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, started_at, site, reported, accepted, rejected, record_errors,
		elapsed_ms, median_all, median_owners, median_agencies, bucket_width
		FROM runs WHERE site = ? ORDER BY started_at DESC, id DESC LIMIT ?`, site, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var (
		ids  []int64
		runs []RunRecord
	)
	for rows.Next() {
		var (
			id        int64
			startedAt int64
			elapsedMS int64
			run       RunRecord
		)
		if err := rows.Scan(&id, &startedAt, &run.Site, &run.Reported, &run.Accepted, &run.Rejected,
			&run.RecordErrors, &elapsedMS, &run.MedianAll, &run.MedianOwners, &run.MedianAgencies,
			&run.Histogram.Width); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.Unix(startedAt, 0)
		run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		ids = append(ids, id)
		runs = append(runs, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		buckets, err := r.buckets(id)
		if err != nil {
			return nil, err
		}
		runs[i].Histogram.Buckets = buckets
	}
	return runs, nil
}

func (r *SQLiteRecorder) buckets(runID int64) ([]services.Bucket, error) {
	rows, err := r.db.Query(`SELECT lo, hi, listings FROM histogram_buckets WHERE run_id = ? ORDER BY lo`, runID)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	var out []services.Bucket
	for rows.Next() {
		var b services.Bucket
		if err := rows.Scan(&b.Lo, &b.Hi, &b.Count); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}
