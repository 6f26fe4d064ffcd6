// Package history keeps a local journal of completed sync runs in SQLite, so
// operators can see what past runs did without digging through logs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one journaled sync run.
type Run struct {
	ID          int64
	RunID       string
	SourceRoot  string
	TargetRoot  string
	Format      string
	ArtStrategy string
	DryRun      bool

	StartedAt  time.Time
	FinishedAt time.Time

	Copied     int
	Transcoded int
	ArtCopied  int
	Skipped    int
	Filtered   int
	Failed     int

	SourceBytes int64
	TargetBytes int64
}

// Store persists runs in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to (or creates) the history database and applies the schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

func (s *Store) applySchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS sync_runs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            run_id TEXT NOT NULL UNIQUE,
            source_root TEXT NOT NULL,
            target_root TEXT NOT NULL,
            format TEXT NOT NULL,
            art_strategy TEXT NOT NULL,
            dry_run INTEGER NOT NULL DEFAULT 0,
            started_at TEXT NOT NULL,
            finished_at TEXT NOT NULL,
            copied INTEGER NOT NULL DEFAULT 0,
            transcoded INTEGER NOT NULL DEFAULT 0,
            art_copied INTEGER NOT NULL DEFAULT 0,
            skipped INTEGER NOT NULL DEFAULT 0,
            filtered INTEGER NOT NULL DEFAULT 0,
            failed INTEGER NOT NULL DEFAULT 0,
            source_bytes INTEGER NOT NULL DEFAULT 0,
            target_bytes INTEGER NOT NULL DEFAULT 0
        )`)
	if err != nil {
		return fmt.Errorf("create sync_runs table: %w", err)
	}
	return nil
}

// RecordRun inserts one completed run.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO sync_runs (
            run_id, source_root, target_root, format, art_strategy, dry_run,
            started_at, finished_at,
            copied, transcoded, art_copied, skipped, filtered, failed,
            source_bytes, target_bytes
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.SourceRoot, run.TargetRoot, run.Format, run.ArtStrategy, boolToInt(run.DryRun),
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Copied, run.Transcoded, run.ArtCopied, run.Skipped, run.Filtered, run.Failed,
		run.SourceBytes, run.TargetBytes,
	)
	if err != nil {
		return 0, fmt.Errorf("insert sync run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read insert id: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, run_id, source_root, target_root, format, art_strategy, dry_run,
               started_at, finished_at,
               copied, transcoded, art_copied, skipped, filtered, failed,
               source_bytes, target_bytes
        FROM sync_runs
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var dryRun int
		var started, finished string
		if err := rows.Scan(
			&run.ID, &run.RunID, &run.SourceRoot, &run.TargetRoot, &run.Format, &run.ArtStrategy, &dryRun,
			&started, &finished,
			&run.Copied, &run.Transcoded, &run.ArtCopied, &run.Skipped, &run.Filtered, &run.Failed,
			&run.SourceBytes, &run.TargetBytes,
		); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		run.DryRun = dryRun != 0
		if ts, err := time.Parse(time.RFC3339Nano, started); err == nil {
			run.StartedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			run.FinishedAt = ts
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
