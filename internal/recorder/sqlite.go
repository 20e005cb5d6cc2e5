package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"SectorSentinel/internal/model"
)

// SQLiteRecorder persists job history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log logrus.FieldLogger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log logrus.FieldLogger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API server read while a job writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			target      TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			skipped     INTEGER NOT NULL DEFAULT 0,
			resolved    INTEGER NOT NULL DEFAULT 0,
			missing     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS symbol_outcomes (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES runs(id),
			symbol   TEXT NOT NULL,
			status   TEXT NOT NULL,
			provider TEXT,
			date     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_symbol ON symbol_outcomes(symbol, status)`,

		`CREATE TABLE IF NOT EXISTS validations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			latest_daily TEXT,
			ok           INTEGER NOT NULL,
			gaps         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_validations_ts ON validations(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(report *model.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var finished sql.NullInt64
	if !report.FinishedAt.IsZero() {
		finished = sql.NullInt64{Int64: report.FinishedAt.Unix(), Valid: true}
	}
	resolved := report.Resolved()
	if _, err := tx.Exec(`INSERT INTO runs
		(id, kind, target, started_at, finished_at, skipped, resolved, missing)
		VALUES (?,?,?,?,?,?,?,?)`,
		report.ID, string(report.Kind), report.Target, report.StartedAt.Unix(), finished,
		report.Skipped, resolved, len(report.Outcomes)-resolved,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", report.ID, err)
	}

	for _, o := range report.Outcomes {
		if _, err := tx.Exec(`INSERT INTO symbol_outcomes
			(run_id, symbol, status, provider, date)
			VALUES (?,?,?,?,?)`,
			report.ID, o.Symbol, string(o.Status), o.Provider, o.Date,
		); err != nil {
			return fmt.Errorf("insert outcome %s: %w", o.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordValidation(evt *ValidationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := evt.CheckedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO validations
		(timestamp, latest_daily, ok, gaps)
		VALUES (?,?,?,?)`,
		ts.Unix(), evt.LatestDaily, evt.OK, strings.Join(evt.Gaps, "\n"),
	)
	return err
}

// RecentRuns lists the newest runs first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, kind, target, started_at, finished_at, skipped, resolved, missing
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s        RunSummary
			kind     string
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &kind, &s.Target, &started, &finished, &s.Skipped, &s.Resolved, &s.Missing); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Kind = model.RunKind(kind)
		s.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			s.FinishedAt = time.Unix(finished.Int64, 0)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
