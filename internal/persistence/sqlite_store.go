// Package persistence keeps batch-run history in a sqlite database so it
// survives restarts. Entries are written once and never updated.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/driftwatch/audiosync/internal/avsync"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// LoadRuns returns every stored run, newest first, results in run order.
func (s *SQLiteStore) LoadRuns(ctx context.Context) ([]avsync.BatchRun, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, mode, file_count, created_at
		 FROM batch_runs
		 ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]avsync.BatchRun, 0)
	for rows.Next() {
		var run avsync.BatchRun
		var mode string
		if err := rows.Scan(&run.ID, &mode, &run.FileCount, &run.Timestamp); err != nil {
			return nil, err
		}
		run.Mode = avsync.Mode(mode)
		ret = append(ret, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range ret {
		results, err := s.loadResults(ctx, ret[i].ID)
		if err != nil {
			return nil, err
		}
		ret[i].Results = results
	}
	return ret, nil
}

func (s *SQLiteStore) loadResults(ctx context.Context, runID string) ([]avsync.Result, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT video_file, audio_file, start_delay_ms, end_delay_ms, elapsed_ms, error
		 FROM run_results
		 WHERE run_id = ?
		 ORDER BY ord ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]avsync.Result, 0)
	for rows.Next() {
		var item avsync.Result
		var start, end sql.NullFloat64
		if err := rows.Scan(&item.VideoFile, &item.AudioFile, &start, &end, &item.ElapsedMs, &item.Error); err != nil {
			return nil, err
		}
		if start.Valid {
			v := start.Float64
			item.StartDelayMs = &v
		}
		if end.Valid {
			v := end.Float64
			item.EndDelayMs = &v
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// SaveRun writes a run and its ordered results in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run avsync.BatchRun) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(
		ctx,
		`INSERT INTO batch_runs (id, mode, file_count, created_at) VALUES (?, ?, ?, ?)`,
		run.ID,
		string(run.Mode),
		run.FileCount,
		run.Timestamp.UTC(),
	); err != nil {
		return err
	}

	for ord, result := range run.Results {
		if _, err = tx.ExecContext(
			ctx,
			`INSERT INTO run_results (run_id, ord, video_file, audio_file, start_delay_ms, end_delay_ms, elapsed_ms, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			ord,
			result.VideoFile,
			result.AudioFile,
			nullableFloat(result.StartDelayMs),
			nullableFloat(result.EndDelayMs),
			result.ElapsedMs,
			result.Error,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM run_results WHERE run_id = ?`, runID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM batch_runs WHERE id = ?`, runID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ClearRuns(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM run_results`); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM batch_runs`); err != nil {
		return err
	}
	return tx.Commit()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
